package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/config"
	"github.com/imbi7py/snafu/internal/operations"
	"github.com/imbi7py/snafu/internal/runner"
	"github.com/imbi7py/snafu/internal/selfinstall"
	"github.com/imbi7py/snafu/internal/user"
	"github.com/imbi7py/snafu/internal/utils"
	"github.com/imbi7py/snafu/internal/versions"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install snafu itself",
	Long:  "Create the managed directory layout, install the snafu launcher, add the\ncommand directories to PATH and register the uninstaller. With --python a\ndefault Python version is installed and activated in the same run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, _ := cmd.Flags().GetString("from")
		addToPath, _ := cmd.Flags().GetBool("add-to-path")
		dry, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		// The state database must not be opened before Setup runs: the OS
		// gate has to reject unsupported systems before anything is created,
		// and the pre-migration backup has to see the database as-is.
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		if !dry && !yes && !utils.Confirm(fmt.Sprintf("Set up snafu under %s?", cfg.Root)) {
			fmt.Println("aborted")
			return nil
		}

		actions, err := selfinstall.Setup(cmd.Context(), selfinstall.Options{
			From:      from,
			Publisher: cfg.Publisher,
			AddToPath: addToPath,
			DryRun:    dry,
			Run:       runner.New(dry),
			Out:       os.Stdout,
		})
		if err != nil {
			return err
		}
		for _, a := range actions {
			fmt.Printf("- %s\n", a)
		}
		if dry {
			return nil
		}

		if cfg.DefaultPython != "" {
			name, err := resolveDefaultPython(cfg.DefaultPython)
			if err != nil {
				return err
			}
			env, closer, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer closer()
			if err := installDefaultPython(cmd.Context(), env, name); err != nil {
				return err
			}
		}
		fmt.Println("setup completed")
		return nil
	},
}

// resolveDefaultPython maps the default-version preference to a definition
// name. "latest" picks the newest known definition.
func resolveDefaultPython(pref string) (string, error) {
	if strings.EqualFold(pref, "latest") {
		return versions.LatestName()
	}
	return pref, nil
}

// installDefaultPython persists the preference and runs the install+use pair
// for it, once.
func installDefaultPython(ctx context.Context, env *operations.Env, name string) error {
	if err := user.SetProfile(user.Profile{DefaultPython: name}); err != nil {
		return err
	}
	if err := env.Install(ctx, name, ""); err != nil {
		return err
	}
	return env.Activate(ctx, []string{name})
}

func init() {
	setupCmd.Flags().String("from", "", "Source launcher binary (default is the running executable)")
	setupCmd.Flags().Bool("add-to-path", true, "Add the cmd and scripts directories to the user PATH")
	setupCmd.Flags().String("python", "", "Install and activate this Python version after setup (\"latest\" picks the newest)")
	setupCmd.Flags().Bool("yes", false, "Assume yes for prompts")
	rootCmd.AddCommand(setupCmd)
}
