package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Remove all published commands",
	Long:  "Remove every python/pip/script command published by snafu. The stored\nselection is kept, so a bare 'snafu use' restores it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		if err := env.Deactivate(); err != nil {
			return err
		}
		fmt.Println("Deactivated.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deactivateCmd)
}
