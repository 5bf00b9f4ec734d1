package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whereCmd = &cobra.Command{
	Use:   "where VERSION",
	Short: "Print the interpreter path of an installed version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		p, err := env.Where(args[0])
		if err != nil {
			return err
		}
		fmt.Println(p)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whereCmd)
}
