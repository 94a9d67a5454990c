package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coursesCSV = `subject,class,time,peofessor,dept,grade,enrollment
Algorithms,A,2,Kim,CS,2,40
Databases,B,3,Lee,CS,3,25
`

const roomsCSV = `number,capacity
101,45
201,60
`

// setupTestEnv points the CLI at a temp database and seeds directory.
func setupTestEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	seedsDir := filepath.Join(dir, "seeds")
	require.NoError(t, os.MkdirAll(seedsDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(seedsDir, "courses.csv"), []byte(coursesCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(seedsDir, "rooms.csv"), []byte(roomsCSV), 0o600))

	t.Setenv("GRIDPLAN_DATABASE_PATH", filepath.Join(dir, "gridplan.db"))
	t.Setenv("GRIDPLAN_SEEDS_DIR", seedsDir)
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSeedCommand(t *testing.T) {
	setupTestEnv(t)

	out, err := runCommand(t, "seed", "--output", "json")
	require.NoError(t, err)

	var result struct {
		Courses int `json:"courses"`
		Rooms   int `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Courses)
	assert.Equal(t, 2, result.Rooms)
}

func TestSolveCommand(t *testing.T) {
	setupTestEnv(t)

	out, err := runCommand(t, "solve", "--output", "json")
	require.NoError(t, err)

	var result struct {
		Status      string `json:"status"`
		Assigned    int    `json:"assigned"`
		Total       int    `json:"total"`
		Assignments []struct {
			Room string `json:"room"`
			Day  string `json:"day"`
		} `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "optimal", result.Status)
	assert.Equal(t, 2, result.Assigned)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Assignments, 2)
}

func TestSolveCommand_ReportsUnassigned(t *testing.T) {
	setupTestEnv(t)

	// An enrollment above every room capacity leaves the course unassigned.
	seedsDir := os.Getenv("GRIDPLAN_SEEDS_DIR")
	oversized := coursesCSV + "Chemistry,C,2,Park,Chem,1,500\n"
	require.NoError(t, os.WriteFile(filepath.Join(seedsDir, "courses.csv"), []byte(oversized), 0o600))

	out, err := runCommand(t, "solve", "--output", "json")
	require.NoError(t, err)

	var result struct {
		Status     string `json:"status"`
		Assigned   int    `json:"assigned"`
		Total      int    `json:"total"`
		Unassigned []struct {
			Subject string `json:"subject"`
		} `json:"unassigned"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "optimal", result.Status)
	assert.Equal(t, 2, result.Assigned)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, "Chemistry", result.Unassigned[0].Subject)

	runsOut, err := runCommand(t, "runs", "--output", "json")
	require.NoError(t, err)

	var runs []struct {
		AssignedCourses int `json:"assigned_courses"`
		TotalCourses    int `json:"total_courses"`
	}
	require.NoError(t, json.Unmarshal([]byte(runsOut), &runs))
	require.NotEmpty(t, runs)
	assert.Equal(t, 2, runs[0].AssignedCourses)
	assert.Equal(t, 3, runs[0].TotalCourses)
}

func TestSolveCommand_TextOutput(t *testing.T) {
	setupTestEnv(t)

	out, err := runCommand(t, "solve")
	require.NoError(t, err)
	assert.Contains(t, out, "Timetable")
	assert.Contains(t, out, "Algorithms_A")
	assert.Contains(t, out, "2 / 2")
}

func TestRunsCommand(t *testing.T) {
	setupTestEnv(t)

	_, err := runCommand(t, "solve", "--output", "json")
	require.NoError(t, err)

	out, err := runCommand(t, "runs", "--output", "json")
	require.NoError(t, err)

	var runs []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.NotEmpty(t, runs)
	assert.Equal(t, "completed", runs[0].Status)
}

func TestExportCommand(t *testing.T) {
	setupTestEnv(t)

	_, err := runCommand(t, "solve", "--output", "json")
	require.NoError(t, err)

	out, err := runCommand(t, "export")
	require.NoError(t, err)

	var doc struct {
		Run struct {
			SolveStatus string `json:"solve_status"`
		} `json:"run"`
		Assignments []struct {
			Room string `json:"room"`
		} `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "optimal", doc.Run.SolveStatus)
	assert.Len(t, doc.Assignments, 2)

	yamlOut, err := runCommand(t, "export", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, yamlOut, "assignments:")
	assert.Contains(t, yamlOut, "solve_status: optimal")
}

func TestExportCommand_NoRuns(t *testing.T) {
	setupTestEnv(t)

	_, err := runCommand(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completed runs")
}

func TestVersionCommand(t *testing.T) {
	setupTestEnv(t)

	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
