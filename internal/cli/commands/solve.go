package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridplan-labs/gridplan/internal/cli/output"
	"github.com/gridplan-labs/gridplan/internal/solver"
	"github.com/gridplan-labs/gridplan/internal/timetable"
)

// NewSolveCommand creates the solve command.
func NewSolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the timetable and print the result",
		Long: `Load seeds, assign courses to rooms and weekly time slots, and print
the resulting schedule. The run and its assignments are persisted.

The solver maximizes the number of assigned courses. Within the time
budget the result is reported as optimal; past it, as the best feasible
schedule found.`,
		Example: `  # Solve with the default budget
  gridplan solve

  # Allow a longer search
  gridplan solve --budget 60s

  # Machine-readable result
  gridplan solve --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSolve(cmd)
		},
	}

	return cmd
}

type solveResultJSON struct {
	RunID       string                 `json:"run_id"`
	Status      string                 `json:"status"`
	Assigned    int                    `json:"assigned"`
	Total       int                    `json:"total"`
	ElapsedMS   int64                  `json:"elapsed_ms"`
	Assignments []timetable.Assignment `json:"assignments"`
	Unassigned  []timetable.Course     `json:"unassigned,omitempty"`
}

func runSolve(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()

	if err := newSeedLoader(cc).Load(ctx); err != nil {
		return err
	}

	courses, err := cc.Store.ListCourses(ctx)
	if err != nil {
		return err
	}
	rooms, err := cc.Store.ListRooms(ctx)
	if err != nil {
		return err
	}

	run, err := cc.Store.CreateRun(ctx)
	if err != nil {
		return err
	}

	result, err := solver.Solve(ctx, courses, rooms, solver.Options{
		Budget: cc.Cfg.Solver.Budget,
		Logger: cc.Logger,
	})
	if err != nil {
		_ = cc.Store.FailRun(ctx, run.ID, err.Error())
		return err
	}

	if err := cc.Store.CompleteRun(ctx, run.ID, string(result.Status), len(result.Schedule.Assignments), len(courses)); err != nil {
		return err
	}
	if err := cc.Store.SaveAssignments(ctx, run.ID, result.Schedule.Assignments); err != nil {
		return err
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(solveResultJSON{
			RunID:       run.ID,
			Status:      string(result.Status),
			Assigned:    len(result.Schedule.Assignments),
			Total:       len(courses),
			ElapsedMS:   result.Elapsed.Milliseconds(),
			Assignments: result.Schedule.Assignments,
			Unassigned:  result.Schedule.Unassigned,
		})
	}

	return solveText(cc.Renderer, run.ID, result, len(courses))
}

func solveText(r *output.Renderer, runID string, result *solver.Result, total int) error {
	r.Header("Timetable")
	r.KeyValue("Run", runID)
	r.KeyValue("Status", string(result.Status))
	r.KeyValue("Assigned", fmt.Sprintf("%d / %d", len(result.Schedule.Assignments), total))
	r.KeyValue("Elapsed", result.Elapsed.Round(time.Millisecond).String())
	r.Println("")

	if len(result.Schedule.Assignments) > 0 {
		rows := make([][]string, 0, len(result.Schedule.Assignments))
		for _, a := range result.Schedule.Assignments {
			rows = append(rows, []string{
				a.Course.ID(),
				a.Course.Professor,
				a.Room,
				string(a.Day),
				periodRange(a.Start, a.End),
			})
		}
		r.Table([]string{"COURSE", "PROFESSOR", "ROOM", "DAY", "PERIODS"}, rows)
	}

	if len(result.Schedule.Unassigned) > 0 {
		r.Println("")
		r.Error(fmt.Sprintf("%d courses could not be assigned:", len(result.Schedule.Unassigned)))
		byGrade := result.Schedule.UnassignedByGrade()
		grades := make([]int, 0, len(byGrade))
		for grade := range byGrade {
			grades = append(grades, grade)
		}
		sort.Ints(grades)
		for _, grade := range grades {
			r.Muted(fmt.Sprintf("  Year %d: %s", grade, strings.Join(byGrade[grade], ", ")))
		}
	}

	return nil
}

func periodRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}
