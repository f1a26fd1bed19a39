package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occupy(g Grid, day, slot string, act Activity) {
	cell := g.CellAt(day, slot)
	cell.Kind = CellOccupied
	cell.Activities = append(cell.Activities, act)
}

func TestSimplifyMergesLabSpansAndDropsEmptySlots(t *testing.T) {
	layout := testLayout(t, []string{"Monday"})
	grid := NewGrid(layout.Days, layout.TimeSlots)

	lab := Activity{
		ID: "lab-1", Type: ActivityLab, CourseName: "Physics",
		FacultyName: "Dr. Rao", Division: "A", Display: "A - Physics - Dr. Rao",
	}
	occupy(grid, "Monday", "09:00-10:00", lab)
	occupy(grid, "Monday", "10:00-11:00", lab)
	occupy(grid, "Monday", "11:00-12:00", Activity{
		ID: "lec-1", Type: ActivityLecture, CourseName: "Maths", Display: "Maths - Dr. Sen",
	})

	compact := Simplify(layout, grid)
	cols := compact["Monday"]
	// the trailing empty slot is not rendered at all
	require.Len(t, cols, 2)

	assert.Equal(t, "09:00-11:00", cols[0].Slot)
	assert.Equal(t, []string{"A - Physics - Dr. Rao"}, cols[0].Value.Values)
	assert.Equal(t, "11:00-12:00", cols[1].Slot)
	assert.Equal(t, []string{"Maths - Dr. Sen"}, cols[1].Value.Values)
}

func TestSimplifyGroupsSharedLabDivisions(t *testing.T) {
	layout := testLayout(t, []string{"Monday"})
	grid := NewGrid(layout.Days, layout.TimeSlots)

	labA := Activity{ID: "lab-a", Type: ActivityLab, CourseName: "Physics", FacultyName: "Dr. Rao", Division: "B"}
	labB := Activity{ID: "lab-b", Type: ActivityLab, CourseName: "Physics", FacultyName: "Dr. Rao", Division: "A"}
	for _, slot := range []string{"09:00-10:00", "10:00-11:00"} {
		occupy(grid, "Monday", slot, labA)
		occupy(grid, "Monday", slot, labB)
	}

	compact := Simplify(layout, grid)
	cols := compact["Monday"]
	require.Len(t, cols, 1)
	assert.Equal(t, "09:00-11:00", cols[0].Slot)
	// one entry per course and faculty, divisions sorted
	assert.Equal(t, []string{"A, B - Physics - Dr. Rao"}, cols[0].Value.Values)
}

func TestSimplifyRendersBreaks(t *testing.T) {
	state, err := BuildLayout(LayoutParams{
		StartTime:      "09:00",
		EndTime:        "12:00",
		LectureMinutes: 60,
		LabMinutes:     60,
		Breaks:         []BreakWindow{{Start: "10:00", End: "11:00", Name: "Lunch"}},
		WorkingDays:    []string{"Monday"},
	})
	require.NoError(t, err)

	compact := Simplify(state.Layout, state.Grid)
	cols := compact["Monday"]
	require.Len(t, cols, 1)
	assert.Equal(t, "10:00-11:00", cols[0].Slot)
	assert.Equal(t, []string{"Lunch"}, cols[0].Value.Values)
}

func TestSimplifyIsStable(t *testing.T) {
	layout := testLayout(t, []string{"Monday", "Tuesday"})
	grid := NewGrid(layout.Days, layout.TimeSlots)
	lab := Activity{ID: "lab-1", Type: ActivityLab, CourseName: "Physics", FacultyName: "Dr. Rao", Division: "A"}
	occupy(grid, "Tuesday", "10:00-11:00", lab)
	occupy(grid, "Tuesday", "11:00-12:00", lab)

	first := Simplify(layout, grid)
	second := Simplify(layout, grid)
	assert.Equal(t, first, second)

	// the working grid keeps its atomic slots
	assert.Equal(t, CellOccupied, grid.CellAt("Tuesday", "10:00-11:00").Kind)
	assert.Equal(t, CellOccupied, grid.CellAt("Tuesday", "11:00-12:00").Kind)
}

func TestDisplayCellJSONShapes(t *testing.T) {
	cases := []struct {
		cell DisplayCell
		want string
	}{
		{cell: DisplayCell{}, want: `null`},
		{cell: DisplayCell{Values: []string{"Physics"}}, want: `"Physics"`},
		{cell: DisplayCell{Values: []string{"Physics", "Maths"}}, want: `["Physics","Maths"]`},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.cell)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(raw))

		var back DisplayCell
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, len(tc.cell.Values), len(back.Values))
	}
}

func weekendLayout(t *testing.T) *LayoutState {
	t.Helper()
	state, err := BuildLayout(LayoutParams{
		StartTime:      "09:00",
		EndTime:        "11:00",
		LectureMinutes: 60,
		LabMinutes:     60,
		WorkingDays:    []string{"Friday", "Saturday"},
	})
	require.NoError(t, err)
	return state
}

func TestFoldSaturdayMovesWorkToFreeFridaySlot(t *testing.T) {
	state := weekendLayout(t)
	layout, grid := state.Layout, state.Grid

	occupy(grid, "Saturday", "09:00-10:00", Activity{
		ID: "lec-1", Type: ActivityLecture, CourseName: "Physics",
		FacultyName: "Dr. Rao", Credits: 3, Display: "Physics - Dr. Rao",
	})

	moved := FoldSaturday(layout, grid, nil)
	assert.Equal(t, 1, moved)

	// the session lands in the first free Friday slot; Saturday stays part
	// of the layout
	cell := grid.CellAt("Friday", "09:00-10:00")
	require.NotNil(t, cell)
	require.Equal(t, CellOccupied, cell.Kind)
	assert.Equal(t, "Physics", cell.Activities[0].CourseName)
	assert.Equal(t, CellEmpty, grid.CellAt("Saturday", "09:00-10:00").Kind)
	assert.Contains(t, grid, "Saturday")
	assert.Contains(t, layout.Days, "Saturday")
}

func TestFoldSaturdayMergesDisjointLabs(t *testing.T) {
	state := weekendLayout(t)
	layout, grid := state.Layout, state.Grid

	occupy(grid, "Friday", "09:00-10:00", Activity{
		ID: "f-1", Type: ActivityLab, CourseName: "Chemistry",
		FacultyName: "Dr. Das", Division: "B",
	})
	occupy(grid, "Saturday", "09:00-10:00", Activity{
		ID: "s-1", Type: ActivityLab, CourseName: "Physics",
		FacultyName: "Dr. Rao", Division: "A",
	})

	moved := FoldSaturday(layout, grid, nil)
	assert.Equal(t, 1, moved)

	// disjoint faculty and division labs share the Friday cell
	cell := grid.CellAt("Friday", "09:00-10:00")
	require.Len(t, cell.Activities, 2)
	assert.Equal(t, CellEmpty, grid.CellAt("Saturday", "09:00-10:00").Kind)
}

func TestFoldSaturdayMovesLabSpanIntact(t *testing.T) {
	layout := testLayout(t, []string{"Friday", "Saturday"})
	grid := NewGrid(layout.Days, layout.TimeSlots)

	lab := Activity{
		ID: "lab-1", Type: ActivityLab, CourseName: "Physics",
		FacultyName: "Dr. Rao", Division: "A",
	}
	occupy(grid, "Saturday", "09:00-10:00", lab)
	occupy(grid, "Saturday", "10:00-11:00", lab)

	moved := FoldSaturday(layout, grid, nil)
	assert.Equal(t, 1, moved)

	for _, slot := range []string{"09:00-10:00", "10:00-11:00"} {
		cell := grid.CellAt("Friday", slot)
		require.Equal(t, CellOccupied, cell.Kind, slot)
		assert.Equal(t, "lab-1", cell.Activities[0].ID, slot)
		assert.Equal(t, CellEmpty, grid.CellAt("Saturday", slot).Kind, slot)
	}
}

func TestFoldSaturdayKeepsUnmovableWork(t *testing.T) {
	state := weekendLayout(t)
	layout, grid := state.Layout, state.Grid

	occupy(grid, "Friday", "09:00-10:00", Activity{
		ID: "m1", Type: ActivityLecture, CourseName: "Maths", FacultyName: "Dr. Sen", Credits: 3, Display: "Maths",
	})
	occupy(grid, "Friday", "10:00-11:00", Activity{
		ID: "m2", Type: ActivityLecture, CourseName: "Chemistry", FacultyName: "Dr. Das", Credits: 3, Display: "Chemistry",
	})
	occupy(grid, "Saturday", "09:00-10:00", Activity{
		ID: "s1", Type: ActivityLecture, CourseName: "Physics", FacultyName: "Dr. Rao", Credits: 3, Display: "Physics",
	})

	moved := FoldSaturday(layout, grid, nil)
	assert.Equal(t, 0, moved)
	assert.Contains(t, grid, "Saturday")
	assert.Contains(t, layout.Days, "Saturday")
	assert.Equal(t, 1, countActivities(grid, "Physics", ActivityLecture))
}

func TestCellWireShapes(t *testing.T) {
	breakCell := Cell{Kind: CellBreak, BreakName: "Lunch"}
	raw, err := json.Marshal(breakCell)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"break","name":"Lunch"}`, string(raw))

	var legacy Cell
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Break","name":"Tea"}`), &legacy))
	assert.Equal(t, CellBreak, legacy.Kind)
	assert.Equal(t, "Tea", legacy.BreakName)

	var single Cell
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","type":"lecture","course_name":"Physics","faculty_name":"Dr. Rao","credits":3,"display":"Physics"}`), &single))
	require.Equal(t, CellOccupied, single.Kind)
	require.Len(t, single.Activities, 1)
	assert.Equal(t, "Physics", single.Activities[0].CourseName)

	var empty Cell
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Equal(t, CellEmpty, empty.Kind)
}
