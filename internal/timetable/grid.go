package timetable

import "sort"

// GridCell is one rendered timetable entry. A cell spans Course.Duration
// consecutive period rows; the rows below the starting one are marked
// occupied and render nothing.
type GridCell struct {
	Subject   string
	Section   string
	Professor string
	Room      string
	Start     int
	End       int
	Span      int
}

// GroupGrid is the Mon-Fri x 1-9 weekly grid for one student group.
type GroupGrid struct {
	GroupID  string
	cells    map[Day]map[int]*GridCell
	occupied map[Day]map[int]bool
}

// CellAt returns the cell starting at (day, period), or nil.
func (g *GroupGrid) CellAt(d Day, period int) *GridCell {
	return g.cells[d][period]
}

// Occupied reports whether (day, period) is covered by a cell that started
// on an earlier period. Such slots must be skipped when rendering rows.
func (g *GroupGrid) Occupied(d Day, period int) bool {
	return g.occupied[d][period]
}

// Summary gives the headline counts for a solved schedule.
type Summary struct {
	Assigned   int
	Total      int
	Unassigned int
}

// BuildGrids converts a schedule into per-group weekly grids, ordered by
// group ID. Assignments for a group land in the grid at their day and start
// period; the remaining spanned periods are flagged occupied.
func BuildGrids(s *Schedule) []*GroupGrid {
	byGroup := make(map[string]*GroupGrid)

	for _, a := range s.Assignments {
		gid := a.Course.GroupID()
		grid, ok := byGroup[gid]
		if !ok {
			grid = &GroupGrid{
				GroupID:  gid,
				cells:    make(map[Day]map[int]*GridCell),
				occupied: make(map[Day]map[int]bool),
			}
			for _, d := range Days {
				grid.cells[d] = make(map[int]*GridCell)
				grid.occupied[d] = make(map[int]bool)
			}
			byGroup[gid] = grid
		}

		grid.cells[a.Day][a.Start] = &GridCell{
			Subject:   a.Course.Subject,
			Section:   a.Course.Section,
			Professor: a.Course.Professor,
			Room:      a.Room,
			Start:     a.Start,
			End:       a.End,
			Span:      a.Course.Duration,
		}
		for p := a.Start + 1; p <= a.End; p++ {
			grid.occupied[a.Day][p] = true
		}
	}

	grids := make([]*GroupGrid, 0, len(byGroup))
	for _, g := range byGroup {
		grids = append(grids, g)
	}
	sort.Slice(grids, func(i, j int) bool {
		return grids[i].GroupID < grids[j].GroupID
	})
	return grids
}

// Summarize returns the assigned/total/unassigned counts for a schedule.
func Summarize(s *Schedule) Summary {
	return Summary{
		Assigned:   len(s.Assignments),
		Total:      s.Total(),
		Unassigned: len(s.Unassigned),
	}
}

// PeriodRows returns the period numbers 1..9 in row order, for templates.
func PeriodRows() []int {
	rows := make([]int, 0, MaxPeriod)
	for p := MinPeriod; p <= MaxPeriod; p++ {
		rows = append(rows, p)
	}
	return rows
}
