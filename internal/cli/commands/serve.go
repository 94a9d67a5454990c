package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridplan-labs/gridplan/internal/assist"
	"github.com/gridplan-labs/gridplan/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the timetable web server",
		Long: `Start the web server. Seeds are loaded and the timetable solved on
startup; the page then renders from the cached result.

With --watch, changes to seed CSV files trigger a re-seed and re-solve,
and connected browsers update over SSE.`,
		Example: `  # Serve on the default port
  gridplan serve

  # Serve with live re-solve on seed changes
  gridplan serve --watch

  # Serve on a different port
  gridplan serve --port 9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var assistant *assist.Assistant
	if cc.Cfg.Assist.Enabled() {
		client, err := assist.NewOpenAIClient(cc.Cfg.Assist.Endpoint, cc.Cfg.Assist.APIKey, cc.Cfg.Assist.Deployment)
		if err != nil {
			return err
		}
		assistant = assist.New(client, cc.Logger)
	}

	srv := web.NewServer(web.Config{
		Store:         cc.Store,
		Seeds:         newSeedLoader(cc),
		Assistant:     assistant,
		Host:          cc.Cfg.Server.Host,
		Port:          cc.Cfg.Server.Port,
		Watch:         cc.Cfg.Server.Watch,
		SeedsDir:      cc.Cfg.SeedsDir,
		SessionSecret: cc.Cfg.Server.SessionSecret,
		SolveBudget:   cc.Cfg.Solver.Budget,
		Logger:        cc.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
