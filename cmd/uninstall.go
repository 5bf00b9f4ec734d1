package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/user"
	"github.com/imbi7py/snafu/internal/utils"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall VERSION [VERSION...]",
	Short: "Uninstall Python versions",
	Long:  "Run the uninstaller for each named version and remove its published commands.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file != "" && len(args) > 1 {
			return fmt.Errorf("--file only applies to a single version")
		}
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !utils.Confirm(fmt.Sprintf("Uninstall %d version(s)?", len(args))) {
			fmt.Println("aborted")
			return nil
		}
		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		for _, name := range args {
			if err := env.Uninstall(cmd.Context(), name, file); err != nil {
				return err
			}
			// A removed version cannot stay the default preference.
			if p, ok, perr := user.GetProfile(); perr == nil && ok && p.DefaultPython == name {
				if err := user.ClearProfile(); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	uninstallCmd.Flags().String("file", "", "Use a local uninstaller instead of the recorded or downloaded one")
	uninstallCmd.Flags().Bool("yes", false, "Assume yes for prompts")
	rootCmd.AddCommand(uninstallCmd)
}
