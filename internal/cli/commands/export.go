package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gridplan-labs/gridplan/internal/store"
	"github.com/gridplan-labs/gridplan/internal/timetable"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var format string
	var runID string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a solved schedule as JSON or YAML",
		Long: `Export the assignments of a solve run. Without --run, the latest
completed run is exported.`,
		Example: `  # Export the latest schedule as JSON
  gridplan export

  # Export as YAML
  gridplan export --format yaml

  # Export a specific run
  gridplan export --run 1b7e9c0a-...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, format, runID)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format (json|yaml)")
	cmd.Flags().StringVar(&runID, "run", "", "Run ID to export (default: latest completed)")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type exportDoc struct {
	Run         exportRun              `json:"run" yaml:"run"`
	Assignments []timetable.Assignment `json:"assignments" yaml:"assignments"`
}

type exportRun struct {
	ID          string `json:"id" yaml:"id"`
	SolveStatus string `json:"solve_status" yaml:"solve_status"`
	Assigned    int    `json:"assigned" yaml:"assigned"`
	Total       int    `json:"total" yaml:"total"`
	StartedAt   string `json:"started_at" yaml:"started_at"`
}

func runExport(cmd *cobra.Command, format, runID string) error {
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported export format %q", format)
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()

	var run *store.Run
	if runID != "" {
		run, err = cc.Store.GetRun(ctx, runID)
	} else {
		run, err = cc.Store.LatestRun(ctx)
	}
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no completed runs to export")
	}

	assignments, err := cc.Store.GetAssignments(ctx, run.ID)
	if err != nil {
		return err
	}

	doc := exportDoc{
		Run: exportRun{
			ID:          run.ID,
			SolveStatus: run.SolveStatus,
			Assigned:    run.AssignedCourses,
			Total:       run.TotalCourses,
			StartedAt:   run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		},
		Assignments: assignments,
	}

	if format == "yaml" {
		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		cc.Renderer.Printf("%s", out)
		return nil
	}
	return cc.Renderer.JSON(doc)
}
