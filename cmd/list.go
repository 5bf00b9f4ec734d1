package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List Python versions",
	Long:  "List installed Python versions. Active versions are marked with '*',\ninstalled ones with 'o'. Use --all to include versions available for\ninstall. Example:\n  snafu list --all",
	RunE: func(cmd *cobra.Command, _ []string) error {
		all, _ := cmd.Flags().GetBool("all")
		filter, _ := cmd.Flags().GetString("filter")
		long, _ := cmd.Flags().GetBool("long")

		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		entries, err := env.List(all, filter)
		if err != nil {
			return err
		}
		if long {
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Version", "Latest", "Status", "Location"})
			for _, e := range entries {
				status := ""
				switch {
				case e.Active:
					status = "active"
				case e.Installed:
					status = "installed"
				}
				t.AppendRow(table.Row{e.Name, e.Latest, status, e.InstallPath})
			}
			t.Render()
			return nil
		}
		for _, e := range entries {
			marker := " "
			switch {
			case e.Active:
				marker = "*"
			case e.Installed:
				marker = "o"
			}
			fmt.Printf("%s %s\n", marker, e.Name)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("all", false, "Include versions that are not installed")
	listCmd.Flags().String("filter", "", "Filter version names (fuzzy match)")
	listCmd.Flags().BoolP("long", "l", false, "Show a detailed table")
	rootCmd.AddCommand(listCmd)
}
