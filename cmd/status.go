package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/selfinstall"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snafu installation status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := selfinstall.GetStatus()
		if err != nil {
			return err
		}
		fmt.Printf("snafu status:\n")
		if st.LauncherFound {
			fmt.Printf("- Launcher: %s\n", st.LauncherPath)
		} else {
			fmt.Printf("- Launcher: not found (expected: %s)\n", st.LauncherPath)
		}
		fmt.Printf("- Launcher shim: %v\n", st.ShimPresent)
		fmt.Printf("- cmd on PATH: %v\n", st.CmdOnPath)
		fmt.Printf("- scripts on PATH: %v\n", st.ScriptsOnPath)
		if st.MetadataFound {
			fmt.Printf("- Setup metadata: present\n")
		} else {
			fmt.Printf("- Setup metadata: not found\n")
		}
		fmt.Printf("- Uninstall registration: %v\n", st.UninstallRegistered)

		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()
		names, err := env.Repo.ActiveNames()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Printf("- Active versions: none\n")
		} else {
			fmt.Printf("- Active versions: %s\n", strings.Join(names, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
