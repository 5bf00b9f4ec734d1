package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install VERSION [VERSION...]",
	Short: "Install one or more Python versions",
	Long:  "Download and run the python.org installer for each named version.\nExample:\n  snafu install 3.6\n  snafu install 3.5 3.5-32",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file != "" && len(args) > 1 {
			return fmt.Errorf("--file only applies to a single version")
		}
		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		for _, name := range args {
			if err := env.Install(cmd.Context(), name, file); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	installCmd.Flags().String("file", "", "Use a local installer instead of downloading")
	rootCmd.AddCommand(installCmd)
}
