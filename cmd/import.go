package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/statefile"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a snafu state database",
	Long:  "Replace the state database with FILE. Refuses to overwrite an existing\ndatabase unless --overwrite is given. Run 'snafu use' afterwards to\nre-publish commands from the imported selection.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		if err := statefile.Import(args[0], overwrite); err != nil {
			return err
		}
		fmt.Printf("Imported state from %s\n", args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("overwrite", false, "Replace an existing state database")
	rootCmd.AddCommand(importCmd)
}
