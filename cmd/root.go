package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "snafu",
	Short:   "snafu manages multiple Python installations on Windows",
	Long:    "snafu installs Python versions from python.org, keeps them side by side,\nand publishes python/pip/script commands for the versions you select.",
	Version: version.Version,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is snafu.yaml in the installation root)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolP("dry-run", "n", false, "Show external commands instead of running them")
	rootCmd.SetVersionTemplate("snafu {{.Version}}\n")
}
