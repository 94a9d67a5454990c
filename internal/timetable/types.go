// Package timetable defines the weekly course timetable domain: courses,
// rooms, slots, and solved schedules.
package timetable

import (
	"fmt"
	"sort"
)

// Day is a teaching day of the week.
type Day string

// Teaching days, Monday through Friday.
const (
	Monday    Day = "Mon"
	Tuesday   Day = "Tue"
	Wednesday Day = "Wed"
	Thursday  Day = "Thu"
	Friday    Day = "Fri"
)

// Days lists teaching days in week order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

// Periods per day. Period numbering is 1-based: a course starting at period p
// with duration d occupies periods p..p+d-1, and p+d-1 must not exceed
// MaxPeriod.
const (
	MinPeriod = 1
	MaxPeriod = 9
)

// Course is a single teachable course section.
type Course struct {
	Subject    string `json:"subject" yaml:"subject"`
	Section    string `json:"section" yaml:"section"`
	Duration   int    `json:"duration" yaml:"duration"` // contiguous periods
	Professor  string `json:"professor" yaml:"professor"`
	Department string `json:"department" yaml:"department"`
	Grade      int    `json:"grade" yaml:"grade"`
	Enrollment int    `json:"enrollment" yaml:"enrollment"`
}

// ID returns the course identifier, unique per subject and section.
func (c Course) ID() string {
	return c.Subject + "_" + c.Section
}

// GroupID returns the student-group key a course belongs to. Courses sharing
// a department, grade, and section appear on the same weekly grid.
func (c Course) GroupID() string {
	return fmt.Sprintf("%s · Year %d · Section %s", c.Department, c.Grade, c.Section)
}

// Room is a classroom with a seat capacity.
type Room struct {
	Number   string `json:"number" yaml:"number"`
	Capacity int    `json:"capacity" yaml:"capacity"`
}

// Assignment places a course into a room at a day and start period.
type Assignment struct {
	Course Course `json:"course" yaml:"course"`
	Room   string `json:"room" yaml:"room"`
	Day    Day    `json:"day" yaml:"day"`
	Start  int    `json:"start" yaml:"start"`
	End    int    `json:"end" yaml:"end"` // inclusive: Start + Course.Duration - 1
}

// Schedule is the outcome of one solve: the placed courses plus everything
// that could not be placed.
type Schedule struct {
	Assignments []Assignment `json:"assignments" yaml:"assignments"`
	Unassigned  []Course     `json:"unassigned" yaml:"unassigned"`
}

// Total returns the number of courses the schedule was solved over.
func (s *Schedule) Total() int {
	return len(s.Assignments) + len(s.Unassigned)
}

// Sort orders assignments by room, day, then start period, matching the
// report ordering of the solver output.
func (s *Schedule) Sort() {
	dayIndex := make(map[Day]int, len(Days))
	for i, d := range Days {
		dayIndex[d] = i
	}
	sort.Slice(s.Assignments, func(i, j int) bool {
		a, b := s.Assignments[i], s.Assignments[j]
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.Day != b.Day {
			return dayIndex[a.Day] < dayIndex[b.Day]
		}
		return a.Start < b.Start
	})
	sort.Slice(s.Unassigned, func(i, j int) bool {
		return s.Unassigned[i].ID() < s.Unassigned[j].ID()
	})
}

// UnassignedByGrade groups unassigned course subjects by grade, each list
// sorted for deterministic output.
func (s *Schedule) UnassignedByGrade() map[int][]string {
	byGrade := make(map[int][]string)
	for _, c := range s.Unassigned {
		byGrade[c.Grade] = append(byGrade[c.Grade], c.Subject)
	}
	for g := range byGrade {
		sort.Strings(byGrade[g])
	}
	return byGrade
}
