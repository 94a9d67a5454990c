package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gridplan-labs/gridplan/internal/cli/output"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]string{
					"version":    version,
					"build_date": buildDate,
					"git_commit": gitCommit,
					"go_version": runtime.Version(),
				})
			}

			r.KeyValue("Version", version)
			r.KeyValue("Build Date", buildDate)
			r.KeyValue("Git Commit", gitCommit)
			r.KeyValue("Go Version", runtime.Version())
			return nil
		},
	}

	return cmd
}
