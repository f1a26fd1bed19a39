package engine

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ActivityType discriminates grid activities.
type ActivityType string

const (
	ActivityLecture ActivityType = "lecture"
	ActivityLab     ActivityType = "lab"
	ActivityBreak   ActivityType = "break"
)

// Activity is a single scheduled obligation occupying one or more grid cells.
// A lab activity is recorded in every slot it covers, sharing one ID.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	CourseName  string       `json:"course_name"`
	FacultyName string       `json:"faculty_name"`
	Division    string       `json:"division,omitempty"`
	Credits     int          `json:"credits"`
	Protected   bool         `json:"protected,omitempty"`
	Display     string       `json:"display"`
}

// CellKind tags the state of a grid cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellBreak
	CellOccupied
)

// Cell is a tagged variant: free, reserved for a named break, or holding
// one or more activities. The zero value is an empty cell.
type Cell struct {
	Kind       CellKind
	BreakName  string
	Activities []Activity
}

// breakMarker is the wire shape of a break cell.
type breakMarker struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// MarshalJSON encodes the legacy wire shape: null for empty cells, a break
// marker object for breaks, and an activity array otherwise.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellBreak:
		return json.Marshal(breakMarker{Type: string(ActivityBreak), Name: c.BreakName})
	case CellOccupied:
		return json.Marshal(c.Activities)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, a break marker, a single activity object, or an
// activity array. Stored grids written by older clients used all four shapes.
func (c *Cell) UnmarshalJSON(data []byte) error {
	*c = Cell{}
	trimmed := string(data)
	if trimmed == "null" {
		return nil
	}

	var probe struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Type != "" {
		if ActivityType(probe.Type) == ActivityBreak || probe.Type == "Break" {
			c.Kind = CellBreak
			c.BreakName = probe.Name
			if c.BreakName == "" {
				c.BreakName = "Break"
			}
			return nil
		}
		var act Activity
		if err := json.Unmarshal(data, &act); err != nil {
			return fmt.Errorf("decode activity cell: %w", err)
		}
		c.Kind = CellOccupied
		c.Activities = []Activity{act}
		return nil
	}

	var acts []Activity
	if err := json.Unmarshal(data, &acts); err != nil {
		return fmt.Errorf("decode cell: %w", err)
	}
	if len(acts) == 0 {
		return nil
	}
	if acts[0].Type == ActivityBreak {
		c.Kind = CellBreak
		c.BreakName = acts[0].Display
		if c.BreakName == "" {
			c.BreakName = "Break"
		}
		return nil
	}
	c.Kind = CellOccupied
	c.Activities = acts
	return nil
}

// Grid maps working day -> slot label -> cell.
type Grid map[string]map[string]*Cell

// NewGrid builds an empty grid for the given days and slot sequence, marking
// break slots up front.
func NewGrid(days []string, slots []TimeSlot) Grid {
	grid := make(Grid, len(days))
	for _, day := range days {
		row := make(map[string]*Cell, len(slots))
		for _, slot := range slots {
			if slot.IsBreak {
				row[slot.Label()] = &Cell{Kind: CellBreak, BreakName: slot.BreakName}
			} else {
				row[slot.Label()] = &Cell{}
			}
		}
		grid[day] = row
	}
	return grid
}

// CellAt returns the cell for a day/slot pair, or nil when absent.
func (g Grid) CellAt(day, slot string) *Cell {
	row, ok := g[day]
	if !ok {
		return nil
	}
	return row[slot]
}

// busySet tracks occupied names per day and slot. It is always rebuilt from
// the grid, never carried between allocation passes.
type busySet map[string]map[string]map[string]struct{}

func (b busySet) add(day, slot, name string) {
	if name == "" {
		return
	}
	if b[day] == nil {
		b[day] = make(map[string]map[string]struct{})
	}
	if b[day][slot] == nil {
		b[day][slot] = make(map[string]struct{})
	}
	b[day][slot][name] = struct{}{}
}

func (b busySet) has(day, slot, name string) bool {
	_, ok := b[day][slot][name]
	return ok
}

func (b busySet) any(day, slot string) bool {
	return len(b[day][slot]) > 0
}

func (b busySet) remove(day, slot, name string) {
	if b[day][slot] != nil {
		delete(b[day][slot], name)
	}
}

// occupant returns the division name an activity reserves: labs block their
// own division, lectures block every division.
func occupant(act Activity) string {
	if act.Type == ActivityLab {
		return act.Division
	}
	return allDivisions
}

// rebuildBusy derives the faculty and division busy sets from grid state.
func rebuildBusy(g Grid) (faculty busySet, divisions busySet) {
	faculty = make(busySet)
	divisions = make(busySet)
	for day, row := range g {
		for slot, cell := range row {
			if cell == nil || cell.Kind != CellOccupied {
				continue
			}
			for _, act := range cell.Activities {
				faculty.add(day, slot, act.FacultyName)
				divisions.add(day, slot, occupant(act))
			}
		}
	}
	return faculty, divisions
}

// BusySnapshot is the serializable form of the derived busy maps.
type BusySnapshot map[string]map[string][]string

// Snapshot flattens a busy set for persistence.
func snapshotBusy(b busySet) BusySnapshot {
	out := make(BusySnapshot, len(b))
	for day, slots := range b {
		out[day] = make(map[string][]string, len(slots))
		for slot, names := range slots {
			list := make([]string, 0, len(names))
			for name := range names {
				list = append(list, name)
			}
			sort.Strings(list)
			out[day][slot] = list
		}
	}
	return out
}
