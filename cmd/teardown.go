package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/config"
	"github.com/imbi7py/snafu/internal/selfinstall"
	"github.com/imbi7py/snafu/internal/utils"
)

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Remove snafu and everything it manages",
	Long:  "Restore PATH, drop the uninstaller registration and delete the whole\ninstallation root, managed Python versions included.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		verbose, _ := cmd.Flags().GetBool("verbose")

		home, err := config.Home()
		if err != nil {
			return err
		}
		if !yes && !utils.Confirm(fmt.Sprintf("Remove %s and every managed Python version?", home)) {
			fmt.Println("aborted")
			return nil
		}
		actions, err := selfinstall.Teardown(verbose)
		for _, a := range actions {
			fmt.Printf("- %s\n", a)
		}
		if err != nil {
			return err
		}
		fmt.Println("teardown completed")
		return nil
	},
}

func init() {
	teardownCmd.Flags().Bool("yes", false, "Assume yes for prompts")
	rootCmd.AddCommand(teardownCmd)
}
