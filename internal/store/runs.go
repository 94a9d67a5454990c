package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gridplan-labs/gridplan/internal/timetable"
)

// RunStatus is the lifecycle state of a solve run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one solve execution.
type Run struct {
	ID              string     `json:"id"`
	Status          RunStatus  `json:"status"`
	SolveStatus     string     `json:"solve_status,omitempty"` // optimal or feasible, set on completion
	TotalCourses    int        `json:"total_courses"`
	AssignedCourses int        `json:"assigned_courses"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// CreateRun records the start of a solve run.
func (s *Store) CreateRun(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating solve run", slog.String("id", run.ID))

	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO solve_runs (id, status, started_at) VALUES (?, ?, ?)"),
		run.ID, string(run.Status), run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run completed with its counts and solve status.
func (s *Store) CompleteRun(ctx context.Context, id, solveStatus string, assigned, total int) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE solve_runs SET status = ?, solve_status = ?, assigned_courses = ?, total_courses = ?, completed_at = ? WHERE id = ?"),
		string(RunStatusCompleted), solveStatus, assigned, total, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// FailRun marks a run failed with an error message.
func (s *Store) FailRun(ctx context.Context, id, errMsg string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE solve_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?"),
		string(RunStatusFailed), errMsg, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, status, solve_status, total_courses, assigned_courses, error, started_at, completed_at FROM solve_runs WHERE id = ?"),
		id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent completed run, or nil when none exists.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, status, solve_status, total_courses, assigned_courses, error, started_at, completed_at FROM solve_runs WHERE status = ? ORDER BY started_at DESC LIMIT 1"),
		string(RunStatusCompleted))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT id, status, solve_status, total_courses, assigned_courses, error, started_at, completed_at FROM solve_runs ORDER BY started_at DESC LIMIT ?"),
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveAssignments persists the placed courses of a run.
func (s *Store) SaveAssignments(ctx context.Context, runID string, assignments []timetable.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO assignments (run_id, course_id, subject, section, professor, dept, grade, duration, room, day, start_period, end_period) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx,
			runID, a.Course.ID(), a.Course.Subject, a.Course.Section,
			a.Course.Professor, a.Course.Department, a.Course.Grade, a.Course.Duration,
			a.Room, string(a.Day), a.Start, a.End); err != nil {
			return fmt.Errorf("failed to insert assignment %s: %w", a.Course.ID(), err)
		}
	}
	return tx.Commit()
}

// GetAssignments returns the placed courses of a run ordered by room, day,
// and start period.
func (s *Store) GetAssignments(ctx context.Context, runID string) ([]timetable.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT subject, section, professor, dept, grade, duration, room, day, start_period, end_period FROM assignments WHERE run_id = ? ORDER BY room, day, start_period"),
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assignments []timetable.Assignment
	for rows.Next() {
		var a timetable.Assignment
		var day string
		if err := rows.Scan(&a.Course.Subject, &a.Course.Section, &a.Course.Professor,
			&a.Course.Department, &a.Course.Grade, &a.Course.Duration,
			&a.Room, &day, &a.Start, &a.End); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Day = timetable.Day(day)
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var status string
	var solveStatus, errMsg sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(&run.ID, &status, &solveStatus, &run.TotalCourses,
		&run.AssignedCourses, &errMsg, &run.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.SolveStatus = solveStatus.String
	run.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}
