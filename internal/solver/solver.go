// Package solver places courses into rooms and weekly slots. It is an exact
// branch-and-bound maximizer: every returned schedule satisfies the capacity,
// room-conflict, and professor-conflict constraints, and unless the time
// budget runs out the number of assigned courses is optimal.
package solver

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/gridplan-labs/gridplan/internal/timetable"
)

// Status reports how the search ended.
type Status string

const (
	// StatusOptimal means the search space was exhausted; no schedule
	// assigns more courses than the one returned.
	StatusOptimal Status = "optimal"
	// StatusFeasible means the time budget expired; the returned schedule
	// is the best incumbent found so far.
	StatusFeasible Status = "feasible"
)

// Options tunes a solve.
type Options struct {
	// Budget bounds wall-clock search time. Zero means no bound.
	Budget time.Duration
	// Logger receives search progress at debug level. Nil discards.
	Logger *slog.Logger
}

// Result is the outcome of one solve.
type Result struct {
	Status   Status
	Schedule *timetable.Schedule
	Elapsed  time.Duration
	Explored int64 // search nodes visited
}

// placement is one feasible (room, day, start) choice for a course.
type placement struct {
	room  int // index into rooms
	day   int // index into timetable.Days
	start int
	mask  uint16 // periods covered, bit p set for period p
}

// candidate pairs a course with its feasible placements.
type candidate struct {
	course     timetable.Course
	placements []placement
}

// deadlineCheckInterval is how many nodes pass between deadline checks.
const deadlineCheckInterval = 1024

type search struct {
	cands    []candidate
	rooms    []timetable.Room
	roomBusy [][]uint16 // [room][day] occupied-period mask
	profBusy map[string][]uint16

	best      []int // best incumbent: placement index per candidate, -1 unplaced
	bestCount int
	current   []int

	deadline time.Time
	timedOut bool
	explored int64
}

// Solve assigns as many courses as possible to rooms and weekly slots.
// The result is deterministic for a given input: courses are branched
// most-constrained-first and placements are tried in room, day, period order.
func Solve(ctx context.Context, courses []timetable.Course, rooms []timetable.Room, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	started := time.Now()

	sortedRooms := make([]timetable.Room, len(rooms))
	copy(sortedRooms, rooms)
	sort.Slice(sortedRooms, func(i, j int) bool {
		return sortedRooms[i].Number < sortedRooms[j].Number
	})

	cands, hopeless := buildCandidates(courses, sortedRooms)
	logger.Debug("solver candidates built",
		slog.Int("courses", len(courses)),
		slog.Int("placeable", len(cands)),
		slog.Int("hopeless", len(hopeless)))

	s := &search{
		cands:    cands,
		rooms:    sortedRooms,
		roomBusy: make([][]uint16, len(sortedRooms)),
		profBusy: make(map[string][]uint16),
		best:     make([]int, len(cands)),
		current:  make([]int, len(cands)),
	}
	for i := range s.roomBusy {
		s.roomBusy[i] = make([]uint16, len(timetable.Days))
	}
	for i := range s.best {
		s.best[i] = -1
		s.current[i] = -1
	}
	if opts.Budget > 0 {
		s.deadline = started.Add(opts.Budget)
	}

	s.branch(ctx, 0, 0)

	sched := &timetable.Schedule{}
	for i, c := range s.cands {
		if pi := s.best[i]; pi >= 0 {
			p := c.placements[pi]
			sched.Assignments = append(sched.Assignments, timetable.Assignment{
				Course: c.course,
				Room:   s.rooms[p.room].Number,
				Day:    timetable.Days[p.day],
				Start:  p.start,
				End:    p.start + c.course.Duration - 1,
			})
		} else {
			sched.Unassigned = append(sched.Unassigned, c.course)
		}
	}
	sched.Unassigned = append(sched.Unassigned, hopeless...)
	sched.Sort()

	status := StatusOptimal
	if s.timedOut || ctx.Err() != nil {
		status = StatusFeasible
	}

	res := &Result{
		Status:   status,
		Schedule: sched,
		Elapsed:  time.Since(started),
		Explored: s.explored,
	}
	logger.Debug("solve finished",
		slog.String("status", string(status)),
		slog.Int("assigned", len(sched.Assignments)),
		slog.Int("unassigned", len(sched.Unassigned)),
		slog.Int64("explored", s.explored),
		slog.Duration("elapsed", res.Elapsed))

	if err := ctx.Err(); err != nil && s.bestCount == 0 {
		return nil, err
	}
	return res, nil
}

// buildCandidates enumerates feasible placements per course and splits off
// courses with none (too long for a day, or no room large enough). Courses
// are ordered fewest-placements-first so the search branches on the most
// constrained course, with the course ID breaking ties.
func buildCandidates(courses []timetable.Course, rooms []timetable.Room) ([]candidate, []timetable.Course) {
	var cands []candidate
	var hopeless []timetable.Course

	for _, c := range courses {
		var ps []placement
		if c.Duration >= 1 && c.Duration <= timetable.MaxPeriod {
			for ri, r := range rooms {
				if c.Enrollment > r.Capacity {
					continue
				}
				for di := range timetable.Days {
					for start := timetable.MinPeriod; start+c.Duration-1 <= timetable.MaxPeriod; start++ {
						ps = append(ps, placement{
							room:  ri,
							day:   di,
							start: start,
							mask:  periodMask(start, c.Duration),
						})
					}
				}
			}
		}
		if len(ps) == 0 {
			hopeless = append(hopeless, c)
			continue
		}
		cands = append(cands, candidate{course: c, placements: ps})
	}

	sort.Slice(cands, func(i, j int) bool {
		if len(cands[i].placements) != len(cands[j].placements) {
			return len(cands[i].placements) < len(cands[j].placements)
		}
		return cands[i].course.ID() < cands[j].course.ID()
	})
	return cands, hopeless
}

// branch explores placements for candidate idx with assigned courses so far.
// The bound is admissible: even if every remaining course were placed, a
// subtree that cannot beat the incumbent is cut.
func (s *search) branch(ctx context.Context, idx, assigned int) {
	s.explored++
	if s.explored%deadlineCheckInterval == 0 {
		if ctx.Err() != nil {
			s.timedOut = true
		}
		if !s.deadline.IsZero() && time.Now().After(s.deadline) {
			s.timedOut = true
		}
	}
	if s.timedOut {
		return
	}

	if assigned > s.bestCount {
		s.bestCount = assigned
		copy(s.best, s.current)
	}
	if idx == len(s.cands) {
		return
	}
	if assigned+(len(s.cands)-idx) <= s.bestCount {
		return // bound: cannot beat incumbent
	}

	c := &s.cands[idx]
	prof := c.course.Professor
	if _, ok := s.profBusy[prof]; !ok {
		s.profBusy[prof] = make([]uint16, len(timetable.Days))
	}

	for pi, p := range c.placements {
		if s.roomBusy[p.room][p.day]&p.mask != 0 {
			continue
		}
		if s.profBusy[prof][p.day]&p.mask != 0 {
			continue
		}

		s.roomBusy[p.room][p.day] |= p.mask
		s.profBusy[prof][p.day] |= p.mask
		s.current[idx] = pi

		s.branch(ctx, idx+1, assigned+1)

		s.current[idx] = -1
		s.roomBusy[p.room][p.day] &^= p.mask
		s.profBusy[prof][p.day] &^= p.mask

		if s.timedOut {
			return
		}
		// Once every course can be placed there is nothing left to improve.
		if s.bestCount == len(s.cands) {
			return
		}
	}

	// Leave the course unassigned.
	s.branch(ctx, idx+1, assigned)
}

// periodMask returns the bitmask covering periods start..start+duration-1.
func periodMask(start, duration int) uint16 {
	return ((1 << duration) - 1) << start
}
