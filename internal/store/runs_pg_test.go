package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Postgres-dialect tests: verify the rebound statements the store sends,
// without needing a live server.

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db, driver: DriverPostgres, logger: slog.New(slog.DiscardHandler)}, mock
}

func TestCreateRun_PostgresPlaceholders(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO solve_runs \(id, status, started_at\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(sqlmock.AnyArg(), string(RunStatusRunning), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run, err := s.CreateRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRun_PostgresPlaceholders(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE solve_runs SET status = \$1, solve_status = \$2, assigned_courses = \$3, total_courses = \$4, completed_at = \$5 WHERE id = \$6`).
		WithArgs(string(RunStatusCompleted), "optimal", 8, 10, sqlmock.AnyArg(), "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CompleteRun(context.Background(), "run-1", "optimal", 8, 10))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRun_PostgresScan(t *testing.T) {
	s, mock := newMockStore(t)

	started := time.Now().UTC()
	completed := started.Add(time.Second)
	rows := sqlmock.NewRows([]string{
		"id", "status", "solve_status", "total_courses", "assigned_courses", "error", "started_at", "completed_at",
	}).AddRow("run-1", "completed", "feasible", 10, 7, nil, started, completed)

	mock.ExpectQuery(`SELECT id, status, solve_status, .* FROM solve_runs WHERE status = \$1 ORDER BY started_at DESC LIMIT 1`).
		WithArgs(string(RunStatusCompleted)).
		WillReturnRows(rows)

	run, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "feasible", run.SolveStatus)
	assert.Equal(t, 7, run.AssignedCourses)
	require.NotNil(t, run.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
