// Package seed loads course and room seed data from CSV files.
//
// The upstream data files are known to be imperfect: the courses export has
// carried a misspelled professor column and sometimes lacks enrollment
// numbers, and the rooms export may omit capacities. Parsing normalizes all
// of that so the rest of the system only ever sees clean records.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gridplan-labs/gridplan/internal/timetable"
)

// Seed file names looked up inside the seeds directory.
const (
	CoursesFile = "courses.csv"
	RoomsFile   = "rooms.csv"
)

// DefaultEnrollment is assumed when the courses file has no enrollment column.
const DefaultEnrollment = 30

// Store is the subset of the data store the loader needs.
type Store interface {
	ReplaceCourses(ctx context.Context, courses []timetable.Course) error
	ReplaceRooms(ctx context.Context, rooms []timetable.Room) error
}

// Loader reads seed CSVs from a directory and replaces the backing tables.
type Loader struct {
	dir    string
	store  Store
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger discards.
func NewLoader(dir string, store Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{dir: dir, store: store, logger: logger}
}

// Load reads courses.csv and rooms.csv from the seeds directory and replaces
// the corresponding tables. A missing seeds directory or a missing individual
// file is not an error; existing data is left untouched in that case.
func (l *Loader) Load(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		l.logger.Debug("seeds directory not found, skipping", slog.String("dir", l.dir))
		return nil
	}

	if err := l.loadCourses(ctx); err != nil {
		return err
	}
	return l.loadRooms(ctx)
}

func (l *Loader) loadCourses(ctx context.Context) error {
	path := filepath.Join(l.dir, CoursesFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	courses, err := ParseCourses(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	l.logger.Debug("loading course seed", slog.String("path", path), slog.Int("rows", len(courses)))
	if err := l.store.ReplaceCourses(ctx, courses); err != nil {
		return fmt.Errorf("failed to load courses: %w", err)
	}
	return nil
}

func (l *Loader) loadRooms(ctx context.Context) error {
	path := filepath.Join(l.dir, RoomsFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	rooms, err := ParseRooms(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	l.logger.Debug("loading room seed", slog.String("path", path), slog.Int("rows", len(rooms)))
	if err := l.store.ReplaceRooms(ctx, rooms); err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}
	return nil
}

// ParseCourses reads the courses CSV. Required columns: subject, class (or
// section), time (duration in periods), professor, dept, grade. The
// misspelling "peofessor" is accepted for professor. An enrollment column is
// optional; absent values default to DefaultEnrollment.
func ParseCourses(r io.Reader) ([]timetable.Course, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := headerIndex(header)
	// Long-standing typo in the upstream course export.
	if _, ok := idx["professor"]; !ok {
		if i, ok := idx["peofessor"]; ok {
			idx["professor"] = i
		}
	}
	if i, ok := idx["class"]; ok {
		idx["section"] = i
	}

	for _, col := range []string{"subject", "section", "time", "professor", "dept", "grade"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("courses CSV missing column %q", col)
		}
	}
	_, hasEnrollment := idx["enrollment"]

	var courses []timetable.Course
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		duration, err := atoi(record[idx["time"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time value: %w", line, err)
		}
		grade, err := atoi(record[idx["grade"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad grade value: %w", line, err)
		}

		enrollment := DefaultEnrollment
		if hasEnrollment {
			if v := strings.TrimSpace(record[idx["enrollment"]]); v != "" {
				enrollment, err = atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad enrollment value: %w", line, err)
				}
			}
		}

		courses = append(courses, timetable.Course{
			Subject:    strings.TrimSpace(record[idx["subject"]]),
			Section:    strings.TrimSpace(record[idx["section"]]),
			Duration:   duration,
			Professor:  strings.TrimSpace(record[idx["professor"]]),
			Department: strings.TrimSpace(record[idx["dept"]]),
			Grade:      grade,
			Enrollment: enrollment,
		})
	}
	return courses, nil
}

// Capacity defaults applied when the rooms CSV has no capacity column: the
// historical six-room building gets its known mix of sizes, anything else a
// flat 50 seats.
var sixRoomCapacities = []int{45, 45, 45, 45, 60, 60}

const fallbackCapacity = 50

// ParseRooms reads the rooms CSV. Required column: number. A capacity column
// is optional; when absent, defaults are assigned by room count.
func ParseRooms(r io.Reader) ([]timetable.Room, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := headerIndex(header)
	if _, ok := idx["number"]; !ok {
		return nil, fmt.Errorf("rooms CSV missing column %q", "number")
	}
	capIdx, hasCapacity := idx["capacity"]

	var rooms []timetable.Room
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		room := timetable.Room{Number: strings.TrimSpace(record[idx["number"]])}
		if hasCapacity {
			room.Capacity, err = atoi(record[capIdx])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad capacity value: %w", line, err)
			}
		}
		rooms = append(rooms, room)
	}

	if !hasCapacity {
		applyCapacityDefaults(rooms)
	}
	return rooms, nil
}

func applyCapacityDefaults(rooms []timetable.Room) {
	if len(rooms) == len(sixRoomCapacities) {
		for i := range rooms {
			rooms[i].Capacity = sixRoomCapacities[i]
		}
		return
	}
	for i := range rooms {
		rooms[i].Capacity = fallbackCapacity
	}
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return idx
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
