// Package commands implements the gridplan subcommands.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gridplan-labs/gridplan/internal/cli/output"
	"github.com/gridplan-labs/gridplan/internal/config"
	"github.com/gridplan-labs/gridplan/internal/seed"
	"github.com/gridplan-labs/gridplan/internal/store"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Renderer *output.Renderer
}

// NewCommandContext opens the store, runs migrations, and builds the
// renderer. The returned cleanup function must be called (typically via
// defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig(cmd)
	logger := config.LoggerFromContext(cmd.Context())

	st, err := store.Open(cmd.Context(), cfg.Database.StoreConfig(), logger)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	cleanup := func() {
		_ = st.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Store:    st,
		Renderer: r,
	}, cleanup, nil
}

// getConfig returns the configuration loaded by the root command, falling
// back to defaults for direct command invocation in tests.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		cfg = &config.Config{
			Server:   config.ServerConfig{Host: config.DefaultHost, Port: config.DefaultPort},
			Database: config.DatabaseConfig{Driver: config.DefaultDriver, Path: config.DefaultDBPath},
			Solver:   config.SolverConfig{Budget: config.DefaultSolveBudget},
			SeedsDir: config.DefaultSeedsDir,
			Output:   config.DefaultOutput,
		}
	}
	return cfg
}

// newSeedLoader builds a seed loader for the configured directory.
func newSeedLoader(cc *CommandContext) *seed.Loader {
	return seed.NewLoader(cc.Cfg.SeedsDir, cc.Store, cc.Logger)
}
