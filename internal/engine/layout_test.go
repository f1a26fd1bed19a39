package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "07:30", want: 450},
		{in: "0730", want: 450},
		{in: "930", want: 570},
		{in: "00:00", want: 0},
		{in: "23:59", want: 1439},
		{in: " 09:15 ", want: 555},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidTime, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "07:30", FormatClock(450))
	assert.Equal(t, "00:05", FormatClock(5))
}

func TestBuildLayoutSimple(t *testing.T) {
	state, err := BuildLayout(LayoutParams{
		StartTime:      "09:00",
		EndTime:        "13:00",
		LectureMinutes: 60,
		LabMinutes:     120,
		WorkingDays:    []string{"Monday", "Tuesday"},
	})
	require.NoError(t, err)

	layout := state.Layout
	assert.Equal(t, 60, layout.SlotDuration)
	assert.Equal(t, 1, layout.LectureSlots)
	assert.Equal(t, 2, layout.LabSlots)
	assert.Equal(t,
		[]string{"09:00-10:00", "10:00-11:00", "11:00-12:00", "12:00-13:00"},
		layout.SlotLabels())

	require.Contains(t, state.Grid, "Monday")
	require.Contains(t, state.Grid, "Tuesday")
	cell := state.Grid.CellAt("Monday", "09:00-10:00")
	require.NotNil(t, cell)
	assert.Equal(t, CellEmpty, cell.Kind)
}

func TestBuildLayoutClipsAtBreakBoundary(t *testing.T) {
	state, err := BuildLayout(LayoutParams{
		StartTime:      "07:30",
		EndTime:        "13:40",
		LectureMinutes: 55,
		LabMinutes:     110,
		Breaks:         []BreakWindow{{Start: "12:45", End: "13:40", Name: "Lunch"}},
	})
	require.NoError(t, err)

	layout := state.Layout
	assert.Equal(t, 55, layout.SlotDuration)

	var teaching, breaks []TimeSlot
	for _, slot := range layout.TimeSlots {
		if slot.IsBreak {
			breaks = append(breaks, slot)
		} else {
			teaching = append(teaching, slot)
		}
	}
	require.Len(t, teaching, 6)
	require.Len(t, breaks, 1)

	// the last teaching window clips at the lunch boundary
	assert.Equal(t, "12:05-12:45", teaching[5].Label())
	assert.Equal(t, "12:45-13:40", breaks[0].Label())
	assert.Equal(t, "Lunch", breaks[0].BreakName)
}

func TestBuildLayoutTilesWithoutGaps(t *testing.T) {
	state, err := BuildLayout(LayoutParams{
		StartTime:      "08:00",
		EndTime:        "16:10",
		LectureMinutes: 50,
		LabMinutes:     100,
		Breaks: []BreakWindow{
			{Start: "10:30", End: "10:45", Name: "Tea"},
			{Start: "13:00", End: "13:45", Name: "Lunch"},
		},
	})
	require.NoError(t, err)

	slots := state.Layout.TimeSlots
	require.NotEmpty(t, slots)
	assert.Equal(t, "08:00", slots[0].Start)
	assert.Equal(t, "16:10", slots[len(slots)-1].End)
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, slots[i-1].End, slots[i].Start, "gap before slot %d", i)
	}
}

func TestBuildLayoutMergesTouchingBreaks(t *testing.T) {
	state, err := BuildLayout(LayoutParams{
		StartTime:      "09:00",
		EndTime:        "11:00",
		LectureMinutes: 60,
		LabMinutes:     60,
		Breaks: []BreakWindow{
			{Start: "10:15", End: "10:30", Name: "Snack"},
			{Start: "10:00", End: "10:15", Name: "Tea"},
		},
	})
	require.NoError(t, err)

	var breaks []TimeSlot
	for _, slot := range state.Layout.TimeSlots {
		if slot.IsBreak {
			breaks = append(breaks, slot)
		}
	}
	require.Len(t, breaks, 1)
	assert.Equal(t, "10:00-10:30", breaks[0].Label())
	assert.Equal(t, "Tea, Snack", breaks[0].BreakName)
}

func TestBuildLayoutRejectsBadInput(t *testing.T) {
	_, err := BuildLayout(LayoutParams{
		StartTime: "13:00", EndTime: "09:00",
		LectureMinutes: 60, LabMinutes: 120,
	})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = BuildLayout(LayoutParams{
		StartTime: "09:00", EndTime: "13:00",
		LectureMinutes: 60, LabMinutes: 120,
		Breaks: []BreakWindow{{Start: "11:00", End: "10:00", Name: "Bad"}},
	})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = BuildLayout(LayoutParams{
		StartTime: "nine", EndTime: "13:00",
		LectureMinutes: 60, LabMinutes: 120,
	})
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = BuildLayout(LayoutParams{
		StartTime: "09:00", EndTime: "13:00",
		LectureMinutes: 0, LabMinutes: 120,
	})
	assert.Error(t, err)
}
