package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/imbi7py/snafu/internal/config"
	"github.com/imbi7py/snafu/internal/db"
	"github.com/imbi7py/snafu/internal/operations"
	"github.com/imbi7py/snafu/internal/runner"
	"github.com/imbi7py/snafu/internal/store"
)

// newEnv wires the collaborators a command needs: layered config, the state
// database, the process runner and a logger. The returned closer releases
// the database connection.
func newEnv(cmd *cobra.Command) (*operations.Env, func(), error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if _, err := config.EnsureLayout(); err != nil {
		return nil, nil, err
	}
	conn, err := db.InitDB()
	if err != nil {
		return nil, nil, err
	}

	dry, _ := cmd.Flags().GetBool("dry-run")
	lvl := slog.LevelInfo
	if cfg.Verbose {
		lvl = slog.LevelDebug
	}
	env := &operations.Env{
		Cfg:  cfg,
		Repo: store.NewRepository(conn),
		Run:  runner.New(dry),
		Log:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})),
		Out:  os.Stdout,
	}
	return env, func() { _ = conn.Close() }, nil
}
