package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	saturday = "Saturday"
	friday   = "Friday"
)

// FoldSaturday consolidates Saturday work onto Friday. Each occupied Saturday
// session is first merged into a Friday span of the same shape that already
// runs labs, provided no faculty or division overlaps, and otherwise moved
// into a fully free Friday span. Sessions with no Friday home stay where they
// are, and the day itself always remains in the layout. Returns the number of
// sessions moved.
func FoldSaturday(layout Layout, grid Grid, log *zap.Logger) int {
	if log == nil {
		log = zap.NewNop()
	}
	satRow, ok := grid[saturday]
	if !ok {
		return 0
	}
	if _, ok := grid[friday]; !ok {
		return 0
	}

	runs := teachingRuns(layout)
	moved := 0
	seen := make(map[string]bool)
	for _, slot := range layout.TimeSlots {
		cell := satRow[slot.Label()]
		if cell == nil || cell.Kind != CellOccupied {
			continue
		}
		for _, act := range append([]Activity(nil), cell.Activities...) {
			if seen[act.ID] {
				continue
			}
			seen[act.ID] = true
			if foldSession(layout, grid, runs, act) {
				moved++
				log.Debug("moved saturday session to friday",
					zap.String("course", act.CourseName),
					zap.String("division", act.Division))
			}
		}
	}
	if moved > 0 {
		log.Info("consolidated saturday work onto friday", zap.Int("sessions", moved))
	}
	return moved
}

// teachingRuns lists the contiguous stretches of teaching slot labels between
// breaks.
func teachingRuns(layout Layout) [][]string {
	var runs [][]string
	var run []string
	for _, slot := range layout.TimeSlots {
		if slot.IsBreak {
			if len(run) > 0 {
				runs = append(runs, run)
				run = nil
			}
			continue
		}
		run = append(run, slot.Label())
	}
	if len(run) > 0 {
		runs = append(runs, run)
	}
	return runs
}

func foldSession(layout Layout, grid Grid, runs [][]string, act Activity) bool {
	span := sessionSlots(layout, grid, saturday, act.ID)
	if len(span) == 0 {
		return false
	}
	if act.Type == ActivityLab {
		if target := fridayMergeSpan(grid, runs, len(span), act); target != nil {
			moveSession(grid, span, target, act)
			return true
		}
	}
	if target := fridayFreeSpan(grid, runs, len(span)); target != nil {
		moveSession(grid, span, target, act)
		return true
	}
	return false
}

// sessionSlots returns the ordered slot labels a session occupies on one day.
func sessionSlots(layout Layout, grid Grid, day, id string) []string {
	var slots []string
	for _, slot := range layout.TimeSlots {
		cell := grid.CellAt(day, slot.Label())
		if cell == nil || cell.Kind != CellOccupied {
			continue
		}
		for _, act := range cell.Activities {
			if act.ID == id {
				slots = append(slots, slot.Label())
			}
		}
	}
	return slots
}

// fridayMergeSpan finds a Friday window of n teaching slots whose every cell
// already runs labs that share no faculty or division with the arriving lab.
func fridayMergeSpan(grid Grid, runs [][]string, n int, act Activity) []string {
	for _, run := range runs {
		for start := 0; start+n <= len(run); start++ {
			window := run[start : start+n]
			if mergeable(grid, window, act) {
				return window
			}
		}
	}
	return nil
}

func mergeable(grid Grid, window []string, act Activity) bool {
	for _, slot := range window {
		cell := grid.CellAt(friday, slot)
		if cell == nil || cell.Kind != CellOccupied {
			return false
		}
		for _, other := range cell.Activities {
			if other.Type != ActivityLab {
				return false
			}
			if other.FacultyName == act.FacultyName {
				return false
			}
			if other.Division == act.Division ||
				other.Division == allDivisions || act.Division == allDivisions {
				return false
			}
		}
	}
	return true
}

// fridayFreeSpan finds a Friday window of n empty teaching slots.
func fridayFreeSpan(grid Grid, runs [][]string, n int) []string {
	for _, run := range runs {
		for start := 0; start+n <= len(run); start++ {
			window := run[start : start+n]
			free := true
			for _, slot := range window {
				cell := grid.CellAt(friday, slot)
				if cell == nil || cell.Kind != CellEmpty {
					free = false
					break
				}
			}
			if free {
				return window
			}
		}
	}
	return nil
}

// moveSession lifts a session off its Saturday slots and drops it cell by
// cell onto the target Friday window.
func moveSession(grid Grid, from, to []string, act Activity) {
	for _, slot := range from {
		cell := grid.CellAt(saturday, slot)
		kept := cell.Activities[:0]
		for _, a := range cell.Activities {
			if a.ID != act.ID {
				kept = append(kept, a)
			}
		}
		cell.Activities = kept
		if len(kept) == 0 {
			cell.Kind = CellEmpty
			cell.Activities = nil
		}
	}
	for _, slot := range to {
		cell := grid.CellAt(friday, slot)
		cell.Kind = CellOccupied
		cell.Activities = append(cell.Activities, act)
	}
}

// DisplayCell is a rendered compact cell: empty, a single label, or several.
type DisplayCell struct {
	Values []string
}

// MarshalJSON writes null, a bare string, or a string array depending on how
// many labels the cell carries.
func (d DisplayCell) MarshalJSON() ([]byte, error) {
	switch len(d.Values) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(d.Values[0])
	default:
		return json.Marshal(d.Values)
	}
}

// UnmarshalJSON accepts the same three shapes.
func (d *DisplayCell) UnmarshalJSON(data []byte) error {
	d.Values = nil
	if string(data) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		d.Values = []string{single}
		return nil
	}
	return json.Unmarshal(data, &d.Values)
}

// CompactSlot is one column of the presentation grid.
type CompactSlot struct {
	Slot  string      `json:"slot"`
	Value DisplayCell `json:"value"`
}

// CompactGrid maps each day to its ordered compact columns.
type CompactGrid map[string][]CompactSlot

// Simplify renders the working grid into its presentation form: consecutive
// slots held by the same lab session collapse into one span, breaks become
// their name, and empty slots are dropped. The input grid is never modified,
// so calling it repeatedly yields the same result.
func Simplify(layout Layout, grid Grid) CompactGrid {
	out := make(CompactGrid, len(layout.Days))
	for _, day := range layout.Days {
		var cols []CompactSlot
		slots := layout.TimeSlots
		for i := 0; i < len(slots); i++ {
			slot := slots[i]
			cell := grid.CellAt(day, slot.Label())
			switch {
			case cell == nil || cell.Kind == CellEmpty:
				continue
			case cell.Kind == CellBreak:
				cols = append(cols, CompactSlot{
					Slot:  slot.Label(),
					Value: DisplayCell{Values: []string{cell.BreakName}},
				})
			default:
				end := i
				for end+1 < len(slots) && sameSession(cell, grid.CellAt(day, slots[end+1].Label())) {
					end++
				}
				cols = append(cols, CompactSlot{
					Slot:  slot.Start + "-" + slots[end].End,
					Value: DisplayCell{Values: cellEntries(cell.Activities)},
				})
				i = end
			}
		}
		out[day] = cols
	}
	return out
}

// sameSession reports whether two cells hold exactly the same lab sessions.
// Only all-lab cells merge; lectures keep their atomic slot.
func sameSession(a, b *Cell) bool {
	if a == nil || b == nil || a.Kind != CellOccupied || b.Kind != CellOccupied {
		return false
	}
	if len(a.Activities) != len(b.Activities) {
		return false
	}
	ids := func(acts []Activity) []string {
		out := make([]string, 0, len(acts))
		for _, act := range acts {
			if act.Type != ActivityLab {
				return nil
			}
			out = append(out, act.ID)
		}
		sort.Strings(out)
		return out
	}
	ia, ib := ids(a.Activities), ids(b.Activities)
	if ia == nil || ib == nil {
		return false
	}
	for i := range ia {
		if ia[i] != ib[i] {
			return false
		}
	}
	return true
}

// cellEntries renders a cell's activities. Lectures keep their display label;
// co-resident labs collapse into one entry per course and faculty listing the
// divisions they cover.
func cellEntries(acts []Activity) []string {
	type labGroup struct {
		course  string
		faculty string
	}
	var out []string
	groups := make(map[labGroup][]string)
	var order []labGroup
	for _, act := range acts {
		if act.Type != ActivityLab {
			out = append(out, act.Display)
			continue
		}
		key := labGroup{course: act.CourseName, faculty: act.FacultyName}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], act.Division)
	}
	for _, key := range order {
		divisions := groups[key]
		sort.Strings(divisions)
		out = append(out, fmt.Sprintf("%s - %s - %s",
			strings.Join(divisions, ", "), key.course, key.faculty))
	}
	return out
}
