package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/operations"
)

var linkCmd = &cobra.Command{
	Use:   "link COMMAND [COMMAND...]",
	Short: "Publish commands from the active Python versions",
	Long:  "Publish named script commands (e.g. pip-installed entry points) from the\nactive versions, first match wins. Example:\n  snafu link flake8",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		for _, command := range args {
			provider, err := env.Link(command, force)
			if errors.Is(err, operations.ErrLinkExists) {
				return fmt.Errorf("%s is already published from another version; use --force to replace it", command)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Published %s from %s\n", command, provider)
		}
		return nil
	},
}

func init() {
	linkCmd.Flags().BoolP("force", "f", false, "Replace an existing publication")
	rootCmd.AddCommand(linkCmd)
}
