package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/gridplan-labs/gridplan/internal/timetable"
)

// ReplaceCourses replaces the courses table contents. On postgres the rows go
// in through COPY; on sqlite through a prepared insert inside a transaction.
func (s *Store) ReplaceCourses(ctx context.Context, courses []timetable.Course) error {
	s.logger.Debug("replacing courses", slog.Int("rows", len(courses)))

	if s.driver == DriverPostgres {
		rows := make([][]any, 0, len(courses))
		for _, c := range courses {
			rows = append(rows, []any{
				c.ID(), c.Subject, c.Section, c.Duration,
				c.Professor, c.Department, c.Grade, c.Enrollment,
			})
		}
		cols := []string{"id", "subject", "section", "duration", "professor", "dept", "grade", "enrollment"}
		return s.replaceViaCopy(ctx, "courses", cols, rows)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM courses"); err != nil {
		return fmt.Errorf("failed to clear courses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO courses (id, subject, section, duration, professor, dept, grade, enrollment) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range courses {
		if _, err := stmt.ExecContext(ctx,
			c.ID(), c.Subject, c.Section, c.Duration,
			c.Professor, c.Department, c.Grade, c.Enrollment); err != nil {
			return fmt.Errorf("failed to insert course %s: %w", c.ID(), err)
		}
	}
	return tx.Commit()
}

// ReplaceRooms replaces the rooms table contents.
func (s *Store) ReplaceRooms(ctx context.Context, rooms []timetable.Room) error {
	s.logger.Debug("replacing rooms", slog.Int("rows", len(rooms)))

	if s.driver == DriverPostgres {
		rows := make([][]any, 0, len(rooms))
		for _, r := range rooms {
			rows = append(rows, []any{r.Number, r.Capacity})
		}
		return s.replaceViaCopy(ctx, "rooms", []string{"number", "capacity"}, rows)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM rooms"); err != nil {
		return fmt.Errorf("failed to clear rooms: %w", err)
	}
	for _, r := range rooms {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rooms (number, capacity) VALUES (?, ?)", r.Number, r.Capacity); err != nil {
			return fmt.Errorf("failed to insert room %s: %w", r.Number, err)
		}
	}
	return tx.Commit()
}

// replaceViaCopy clears a table and bulk-loads rows over a single postgres
// connection using COPY FROM.
func (s *Store) replaceViaCopy(ctx context.Context, table string, cols []string, rows [][]any) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()
		if _, err := pgxConn.CopyFrom(ctx, pgx.Identifier{table}, cols, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy into %s: %w", table, err)
		}
		return nil
	})
}

// ListCourses returns all courses ordered by ID.
func (s *Store) ListCourses(ctx context.Context) ([]timetable.Course, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT subject, section, duration, professor, dept, grade, enrollment FROM courses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var courses []timetable.Course
	for rows.Next() {
		var c timetable.Course
		if err := rows.Scan(&c.Subject, &c.Section, &c.Duration, &c.Professor, &c.Department, &c.Grade, &c.Enrollment); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// ListRooms returns all rooms ordered by number.
func (s *Store) ListRooms(ctx context.Context) ([]timetable.Room, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT number, capacity FROM rooms ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rooms []timetable.Room
	for rows.Next() {
		var r timetable.Room
		if err := rows.Scan(&r.Number, &r.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
