package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultWorkingDays is the Monday-through-Saturday teaching week.
var DefaultWorkingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var (
	// ErrInvalidTime reports an unparsable HH:MM value.
	ErrInvalidTime = errors.New("invalid time value")
	// ErrInvalidInterval reports a bound or break whose start is not before its end.
	ErrInvalidInterval = errors.New("start time must be before end time")
	// ErrIncompleteLayout reports a stored layout without time slots.
	ErrIncompleteLayout = errors.New("layout has no time slots")
)

// TimeSlot is one atomic interval of the teaching day.
type TimeSlot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	IsBreak   bool   `json:"is_break"`
	BreakName string `json:"break_name,omitempty"`
}

// Label renders the slot key used throughout the grid.
func (s TimeSlot) Label() string {
	return s.Start + "-" + s.End
}

// Layout describes the day-independent slot structure for a scope.
type Layout struct {
	Days           []string   `json:"days"`
	TimeSlots      []TimeSlot `json:"time_slots"`
	SlotDuration   int        `json:"slot_duration"`
	LectureSlots   int        `json:"lecture_slots"`
	LabSlots       int        `json:"lab_slots"`
	LectureMinutes int        `json:"lecture_minutes"`
	LabMinutes     int        `json:"lab_minutes"`
}

// SlotLabels returns every slot key in day order, breaks included.
func (l Layout) SlotLabels() []string {
	labels := make([]string, 0, len(l.TimeSlots))
	for _, slot := range l.TimeSlots {
		labels = append(labels, slot.Label())
	}
	return labels
}

// LayoutState is the keyed store record: the layout plus its (possibly
// populated) grid.
type LayoutState struct {
	Layout Layout `json:"layout"`
	Grid   Grid   `json:"grid"`
}

// BreakWindow is a caller-supplied break interval.
type BreakWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Name  string `json:"name"`
}

// LayoutParams are the inputs for building a layout.
type LayoutParams struct {
	StartTime      string
	EndTime        string
	Breaks         []BreakWindow
	LectureMinutes int
	LabMinutes     int
	WorkingDays    []string
}

type mergedBreak struct {
	start int
	end   int
	name  string
}

// BuildLayout turns time parameters into the atomic slot sequence and an
// empty per-day grid. Slot duration is the GCD of the two activity durations
// so that lectures and labs both tile the day evenly.
func BuildLayout(p LayoutParams) (*LayoutState, error) {
	days := p.WorkingDays
	if len(days) == 0 {
		days = DefaultWorkingDays
	}
	if p.LectureMinutes <= 0 || p.LabMinutes <= 0 {
		return nil, fmt.Errorf("lecture and lab durations must be positive")
	}

	start, err := ParseClock(p.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(p.EndTime)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, ErrInvalidInterval
	}

	breaks := make([]mergedBreak, 0, len(p.Breaks))
	for _, br := range p.Breaks {
		bStart, err := ParseClock(br.Start)
		if err != nil {
			return nil, err
		}
		bEnd, err := ParseClock(br.End)
		if err != nil {
			return nil, err
		}
		if bStart >= bEnd {
			return nil, ErrInvalidInterval
		}
		name := br.Name
		if name == "" {
			name = "Break"
		}
		breaks = append(breaks, mergedBreak{start: bStart, end: bEnd, name: name})
	}
	merged := mergeBreaks(breaks)

	slotDuration := gcd(p.LectureMinutes, p.LabMinutes)
	slots := walkSlots(start, end, merged, slotDuration)

	layout := Layout{
		Days:           days,
		TimeSlots:      slots,
		SlotDuration:   slotDuration,
		LectureSlots:   p.LectureMinutes / slotDuration,
		LabSlots:       p.LabMinutes / slotDuration,
		LectureMinutes: p.LectureMinutes,
		LabMinutes:     p.LabMinutes,
	}

	return &LayoutState{Layout: layout, Grid: NewGrid(days, slots)}, nil
}

// mergeBreaks sorts break windows and folds overlapping or touching ones into
// a single window whose names concatenate.
func mergeBreaks(breaks []mergedBreak) []mergedBreak {
	if len(breaks) == 0 {
		return nil
	}
	sorted := make([]mergedBreak, len(breaks))
	copy(sorted, breaks)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].start < sorted[j-1].start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	merged := []mergedBreak{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if next.start <= last.end {
			if next.end > last.end {
				last.end = next.end
			}
			last.name = last.name + ", " + next.name
		} else {
			merged = append(merged, next)
		}
	}
	return merged
}

// walkSlots steps through [start, end) in slotDuration increments, clipping
// each window at the nearest break boundary. Windows inside a break become
// break slots carrying its name, so the emitted sequence tiles the day with
// no gaps; only slots touching a break boundary (or the day end) may be
// shorter than slotDuration.
func walkSlots(start, end int, breaks []mergedBreak, slotDuration int) []TimeSlot {
	var slots []TimeSlot
	cur := start
	for cur < end {
		if br := breakAt(breaks, cur); br != nil {
			slotEnd := min3(cur+slotDuration, br.end, end)
			slots = append(slots, TimeSlot{
				Start:     FormatClock(cur),
				End:       FormatClock(slotEnd),
				IsBreak:   true,
				BreakName: br.name,
			})
			cur = slotEnd
			continue
		}

		slotEnd := cur + slotDuration
		if slotEnd > end {
			slotEnd = end
		}
		if next := nextBreakStart(breaks, cur); next >= 0 && next < slotEnd {
			slotEnd = next
		}
		slots = append(slots, TimeSlot{Start: FormatClock(cur), End: FormatClock(slotEnd)})
		cur = slotEnd
	}
	return slots
}

func breakAt(breaks []mergedBreak, minute int) *mergedBreak {
	for i := range breaks {
		if breaks[i].start <= minute && minute < breaks[i].end {
			return &breaks[i]
		}
	}
	return nil
}

func nextBreakStart(breaks []mergedBreak, minute int) int {
	for i := range breaks {
		if breaks[i].start > minute {
			return breaks[i].start
		}
	}
	return -1
}

// ParseClock converts "HH:MM" (or the compact "HHMM"/"HMM") into minutes
// since midnight.
func ParseClock(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	if !strings.Contains(value, ":") {
		if len(value) == 3 {
			value = "0" + value
		}
		if len(value) == 4 {
			value = value[:2] + ":" + value[2:]
		}
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
