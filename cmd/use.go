package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/operations"
	"github.com/imbi7py/snafu/internal/user"
)

var useCmd = &cobra.Command{
	Use:     "use [VERSION...]",
	Aliases: []string{"activate"},
	Short:   "Select the active Python versions",
	Long:    "Publish python/pip/script commands for the named versions, earlier names\ntaking precedence. With no arguments the previously stored selection is\nre-applied. Example:\n  snafu use 3.6 2.7",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		if err := env.Activate(cmd.Context(), args); err != nil {
			if errors.Is(err, operations.ErrNoActiveVersions) {
				return fmt.Errorf("no versions selected and none stored; run: snafu use VERSION")
			}
			return err
		}
		if len(args) > 0 {
			// The top version doubles as the default python preference.
			if err := user.SetProfile(user.Profile{DefaultPython: args[0]}); err != nil {
				env.Log.Warn("persist preference", "error", err)
			}
		}
		names, err := env.Repo.ActiveNames()
		if err != nil {
			return err
		}
		fmt.Printf("Using: %v\n", names)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
