package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/statefile"
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export the snafu state database",
	Long:  "Copy the state database (installations, active set, published links) to\nFILE for backup or migration.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := statefile.Export(args[0]); err != nil {
			return err
		}
		fmt.Printf("Exported state to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
