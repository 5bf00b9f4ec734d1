package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/user"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [VERSION...]",
	Short: "Upgrade installed Python versions to their latest micro release",
	Long:  "Re-run a newer installer over each named installation. With --all every\ninstalled version is checked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		file, _ := cmd.Flags().GetString("file")
		if all && len(args) > 0 {
			return fmt.Errorf("--all does not take version arguments")
		}
		if !all && len(args) == 0 {
			// Fall back to the default version chosen at setup time.
			p, ok, err := user.GetProfile()
			if err != nil {
				return err
			}
			if !ok || p.DefaultPython == "" {
				return fmt.Errorf("name versions to upgrade, or pass --all")
			}
			args = []string{p.DefaultPython}
		}
		if file != "" && (all || len(args) > 1) {
			return fmt.Errorf("--file only applies to a single version")
		}
		env, closer, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer closer()

		names := args
		if all {
			insts, err := env.Repo.ListInstallations()
			if err != nil {
				return err
			}
			for _, inst := range insts {
				names = append(names, inst.Name)
			}
			if len(names) == 0 {
				fmt.Println("Nothing is installed.")
				return nil
			}
		}
		for _, name := range names {
			if err := env.Upgrade(cmd.Context(), name, file); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	upgradeCmd.Flags().Bool("all", false, "Upgrade every installed version")
	upgradeCmd.Flags().String("file", "", "Use a local installer instead of downloading")
	rootCmd.AddCommand(upgradeCmd)
}
