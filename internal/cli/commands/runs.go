package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gridplan-labs/gridplan/internal/cli/output"
	"github.com/gridplan-labs/gridplan/internal/store"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent solve runs",
		Long: `List recent solve runs, newest first, with their status and how many
courses were assigned.`,
		Example: `  # Show the last 20 runs
  gridplan runs

  # Show the last 5 runs as JSON
  gridplan runs --limit 5 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func runRuns(cmd *cobra.Command, limit int) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cc.Store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(runs)
	}

	cc.Renderer.Header("Solve Runs")
	if len(runs) == 0 {
		cc.Renderer.Muted("No runs yet. Try: gridplan solve")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			string(run.Status),
			run.SolveStatus,
			assignedColumn(run),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	cc.Renderer.Table([]string{"RUN", "STATUS", "SOLVE", "ASSIGNED", "STARTED"}, rows)
	return nil
}

func assignedColumn(run *store.Run) string {
	if run.Status != store.RunStatusCompleted {
		return "-"
	}
	return fmt.Sprintf("%s / %s",
		strconv.Itoa(run.AssignedCourses), strconv.Itoa(run.TotalCourses))
}
