package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Policy carries the tunable allocation knobs.
type Policy struct {
	MaxRetries            int
	EvictionCreditExempt  int
	MaxLabsPerDivisionDay int
	SameDayRepeatPenalty  int
}

// DefaultPolicy returns the stock tuning.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:            10,
		EvictionCreditExempt:  2,
		MaxLabsPerDivisionDay: 2,
		SameDayRepeatPenalty:  10,
	}
}

// Conflict records a task the allocator could not place.
type Conflict struct {
	CourseName  string       `json:"course_name"`
	FacultyName string       `json:"faculty_name"`
	Type        ActivityType `json:"type"`
	Division    string       `json:"division,omitempty"`
	Reason      string       `json:"reason"`
}

// dayScanRank orders days for candidate generation and eviction sweeps.
// Mid-week days come first so demand lands there before the edges.
var dayScanRank = map[string]int{
	"Tuesday":   1,
	"Wednesday": 2,
	"Thursday":  3,
	"Monday":    4,
	"Friday":    5,
	"Saturday":  6,
}

// heavyDayScore rewards mid-week days for courses with three or more credits.
var heavyDayScore = map[string]int{
	"Tuesday":   6,
	"Wednesday": 5,
	"Thursday":  4,
	"Monday":    3,
	"Friday":    2,
	"Saturday":  1,
}

// lightDayScore pushes low-credit courses toward the end of the week.
var lightDayScore = map[string]int{
	"Friday":    6,
	"Saturday":  5,
	"Monday":    4,
	"Thursday":  3,
	"Wednesday": 2,
	"Tuesday":   1,
}

func scanRank(day string) int {
	if r, ok := dayScanRank[day]; ok {
		return r
	}
	return 7
}

func dayScore(day string, credits int) int {
	table := lightDayScore
	if credits >= 3 {
		table = heavyDayScore
	}
	return table[day]
}

// timeRank scores slot position i of n teaching slots. The peak sits a third
// of the way into the day; the score falls off by two per step away from it,
// with the afternoon side lifted by one so later slots beat equally distant
// earlier ones.
func timeRank(i, n int) int {
	peak := n / 3
	d := i - peak
	if d < 0 {
		d = -d
	}
	score := n - 2*d
	if i > peak {
		score++
	}
	if score < 0 {
		score = 0
	}
	return score
}

// slotRun is a contiguous stretch of teaching slots between breaks.
type slotRun struct {
	labels []string
}

type slotPos struct {
	run int
	idx int // position within the run
	ord int // ordinal among all teaching slots of the day
}

// allocator holds the mutable placement state for one pass. Counters and
// busy sets are seeded from the grid, so replaying the full task list after
// an eviction never double-places satisfied demand.
type allocator struct {
	layout Layout
	grid   Grid
	policy Policy
	log    *zap.Logger

	days []string // layout days sorted by scan rank
	runs []slotRun
	pos  map[string]slotPos
	n    int // teaching slots per day

	faculty   busySet
	divisions busySet

	lectureCount map[string]int         // course -> lectures on grid
	courseDay    map[string]map[string]int // course -> day -> placements
	labSeeded    map[string]int         // course|division -> lab sessions on grid
	labSkipped   map[string]int         // sessions skipped this pass as already satisfied
	lecSkipped   map[string]int
	labDivDay    map[string]map[string]map[string]struct{} // day -> division -> lab courses
	lastCourse   map[string]map[string]string              // day -> division -> last course committed
}

func newAllocator(layout Layout, grid Grid, policy Policy, log *zap.Logger) *allocator {
	if log == nil {
		log = zap.NewNop()
	}
	a := &allocator{
		layout: layout,
		grid:   grid,
		policy: policy,
		log:    log,
	}

	a.days = append(a.days, layout.Days...)
	sort.SliceStable(a.days, func(i, j int) bool {
		return scanRank(a.days[i]) < scanRank(a.days[j])
	})

	a.pos = make(map[string]slotPos)
	var run slotRun
	ord := 0
	flush := func() {
		if len(run.labels) > 0 {
			a.runs = append(a.runs, run)
			run = slotRun{}
		}
	}
	for _, slot := range layout.TimeSlots {
		if slot.IsBreak {
			flush()
			continue
		}
		a.pos[slot.Label()] = slotPos{run: len(a.runs), idx: len(run.labels), ord: ord}
		run.labels = append(run.labels, slot.Label())
		ord++
	}
	flush()
	a.n = ord

	a.reseed()
	return a
}

// reseed rebuilds busy sets and counters from the grid. Runs after every
// eviction so the next pass sees only what actually survived.
func (a *allocator) reseed() {
	a.faculty, a.divisions = rebuildBusy(a.grid)
	a.lectureCount = make(map[string]int)
	a.courseDay = make(map[string]map[string]int)
	a.labSeeded = make(map[string]int)
	a.labSkipped = make(map[string]int)
	a.lecSkipped = make(map[string]int)
	a.labDivDay = make(map[string]map[string]map[string]struct{})
	a.lastCourse = make(map[string]map[string]string)

	labIDs := make(map[string]map[string]struct{})
	for day, row := range a.grid {
		for _, cell := range row {
			if cell == nil || cell.Kind != CellOccupied {
				continue
			}
			for _, act := range cell.Activities {
				a.noteCourseDay(act.CourseName, day)
				switch act.Type {
				case ActivityLecture:
					a.lectureCount[act.CourseName]++
				case ActivityLab:
					key := labKey(act.CourseName, act.Division)
					if labIDs[key] == nil {
						labIDs[key] = make(map[string]struct{})
					}
					labIDs[key][act.ID] = struct{}{}
					a.noteLabDay(day, act.Division, act.CourseName)
				}
			}
		}
	}
	for key, ids := range labIDs {
		a.labSeeded[key] = len(ids)
	}
}

func labKey(course, division string) string {
	return course + "|" + division
}

func (a *allocator) noteCourseDay(course, day string) {
	if a.courseDay[course] == nil {
		a.courseDay[course] = make(map[string]int)
	}
	a.courseDay[course][day]++
}

func (a *allocator) noteLast(day, division, course string) {
	if a.lastCourse[day] == nil {
		a.lastCourse[day] = make(map[string]string)
	}
	a.lastCourse[day][division] = course
}

func (a *allocator) lastPlaced(day, division string) string {
	return a.lastCourse[day][division]
}

func (a *allocator) noteLabDay(day, division, course string) {
	if a.labDivDay[day] == nil {
		a.labDivDay[day] = make(map[string]map[string]struct{})
	}
	if a.labDivDay[day][division] == nil {
		a.labDivDay[day][division] = make(map[string]struct{})
	}
	a.labDivDay[day][division][course] = struct{}{}
}

// place runs one allocation pass over the task list. Pinned tasks go first,
// then labs (contiguity makes them the hardest to fit), then lectures.
func (a *allocator) place(tasks []Task) []Conflict {
	ordered := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if len(t.Pins) > 0 {
			ordered = append(ordered, t)
		}
	}
	for _, t := range tasks {
		if len(t.Pins) == 0 && t.Type == ActivityLab {
			ordered = append(ordered, t)
		}
	}
	for _, t := range tasks {
		if len(t.Pins) == 0 && t.Type == ActivityLecture {
			ordered = append(ordered, t)
		}
	}

	var conflicts []Conflict
	for _, task := range ordered {
		if a.satisfied(task) {
			continue
		}
		var ok bool
		if len(task.Pins) > 0 {
			ok = a.placePinned(task)
		} else {
			ok = a.placeTask(task)
		}
		if !ok {
			conflicts = append(conflicts, conflict(task))
		}
	}
	return conflicts
}

// satisfied reports whether the grid already holds this task from an earlier
// pass, consuming one skip credit per replayed task.
func (a *allocator) satisfied(task Task) bool {
	switch task.Type {
	case ActivityLecture:
		course := task.Need.Course.Name
		if a.lecSkipped[course] < a.lectureCount[course] {
			a.lecSkipped[course]++
			return true
		}
	case ActivityLab:
		key := labKey(task.Need.Course.Name, task.Division)
		if a.labSkipped[key] < a.labSeeded[key] {
			a.labSkipped[key]++
			return true
		}
	}
	return false
}

func conflict(task Task) Conflict {
	reason := "no feasible slot after all retries"
	if len(task.Pins) > 0 {
		reason = "no pinned slot usable and no fallback found"
	}
	return Conflict{
		CourseName:  task.Need.Course.Name,
		FacultyName: task.Need.Faculty,
		Type:        task.Type,
		Division:    task.Division,
		Reason:      reason,
	}
}

// placePinned scans the task's pins in order and commits on the first
// feasible one, falling back to heuristic placement when none is usable.
// Typed pins only apply to tasks of that type, and a pin is skipped when its
// course was the last one committed for the task's division that day.
func (a *allocator) placePinned(task Task) bool {
	division := task.Division
	if task.Type == ActivityLecture {
		division = allDivisions
	}
	for _, pin := range task.Pins {
		if pin.Type != "" && ActivityType(pin.Type) != task.Type {
			continue
		}
		if _, ok := a.grid[pin.Day]; !ok {
			continue
		}
		if a.lastPlaced(pin.Day, division) == task.Need.Course.Name {
			continue
		}
		if a.tryPin(task, pin.Day, pin.Slot) {
			return true
		}
	}
	a.log.Warn("no pinned slot usable, falling back to heuristic placement",
		zap.String("course", task.Need.Course.Name),
		zap.String("division", task.Division))
	return a.placeTask(task)
}

func (a *allocator) tryPin(task Task, day, slot string) bool {
	pos, ok := a.pos[slot]
	if !ok {
		return false
	}
	if _, ok := a.grid[day]; !ok {
		return false
	}
	switch task.Type {
	case ActivityLecture:
		if !a.lectureFits(task, day, pos) {
			return false
		}
		a.commitLecture(task, day, slot)
		return true
	case ActivityLab:
		run := a.runs[pos.run]
		if pos.idx+task.BlockLen > len(run.labels) {
			return false
		}
		block := run.labels[pos.idx : pos.idx+task.BlockLen]
		if !a.labFits(task, day, block) {
			return false
		}
		a.commitLab(task, day, block)
		return true
	}
	return false
}

func (a *allocator) placeTask(task Task) bool {
	switch task.Type {
	case ActivityLecture:
		return a.placeLecture(task)
	case ActivityLab:
		return a.placeLab(task)
	}
	return false
}

type candidate struct {
	day   string
	slot  string
	score int
}

// placeLecture scores every feasible cell and takes the best. Candidates are
// generated in scan order so equal scores resolve deterministically.
func (a *allocator) placeLecture(task Task) bool {
	course := task.Need.Course.Name
	if a.lectureCount[course] >= task.Need.Course.TheoryHours {
		return true
	}

	var candidates []candidate
	for _, day := range a.days {
		for _, run := range a.runs {
			for _, slot := range run.labels {
				pos := a.pos[slot]
				if !a.lectureFits(task, day, pos) {
					continue
				}
				score := dayScore(day, task.Need.Course.Credits) + timeRank(pos.ord, a.n)
				if a.courseDay[course][day] > 0 {
					score -= a.policy.SameDayRepeatPenalty
				}
				candidates = append(candidates, candidate{day: day, slot: slot, score: score})
			}
		}
	}
	if len(candidates) == 0 {
		return false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	best := candidates[0]
	a.commitLecture(task, best.day, best.slot)
	return true
}

func (a *allocator) lectureFits(task Task, day string, pos slotPos) bool {
	course := task.Need.Course.Name
	if a.lectureCount[course] >= task.Need.Course.TheoryHours {
		return false
	}
	// one lecture of a course per day at most, unless another course has
	// been committed on that day since
	if a.lastPlaced(day, allDivisions) == course {
		return false
	}
	run := a.runs[pos.run]
	slot := run.labels[pos.idx]

	cell := a.grid.CellAt(day, slot)
	if cell == nil || cell.Kind != CellEmpty {
		return false
	}
	if a.faculty.has(day, slot, task.Need.Faculty) {
		return false
	}
	// a lecture needs the whole class, so any division booking blocks it
	if a.divisions.any(day, slot) {
		return false
	}
	if a.labWindowBlocked(day, pos) {
		return false
	}
	if a.adjacentCourse(day, pos, course) {
		return false
	}
	return true
}

// labWindowBlocked rejects lecture slots inside any lab-length window that
// already holds a lab. Divisions split during those windows, so a whole-class
// lecture next to a running lab would strand half the class.
func (a *allocator) labWindowBlocked(day string, pos slotPos) bool {
	blockLen := a.layout.LabSlots
	if blockLen <= 1 {
		return false
	}
	run := a.runs[pos.run]
	for start := pos.idx - blockLen + 1; start <= pos.idx; start++ {
		if start < 0 || start+blockLen > len(run.labels) {
			continue
		}
		for _, slot := range run.labels[start : start+blockLen] {
			if cell := a.grid.CellAt(day, slot); cell != nil && cell.Kind == CellOccupied {
				for _, act := range cell.Activities {
					if act.Type == ActivityLab {
						return true
					}
				}
			}
		}
	}
	return false
}

// adjacentCourse reports whether a neighboring slot in the same run already
// holds the course, keeping lectures of one course from running back to back.
func (a *allocator) adjacentCourse(day string, pos slotPos, course string) bool {
	run := a.runs[pos.run]
	for _, idx := range []int{pos.idx - 1, pos.idx + 1} {
		if idx < 0 || idx >= len(run.labels) {
			continue
		}
		cell := a.grid.CellAt(day, run.labels[idx])
		if cell == nil || cell.Kind != CellOccupied {
			continue
		}
		for _, act := range cell.Activities {
			if act.CourseName == course {
				return true
			}
		}
	}
	return false
}

// placeLab walks days with the fewest labs already held by the task's
// division first, ties broken by the fixed day rank, and takes the first
// contiguous block of free teaching slots.
func (a *allocator) placeLab(task Task) bool {
	division := task.Division
	course := task.Need.Course.Name

	labCount := make(map[string]int, len(a.days))
	for _, day := range a.days {
		labCount[day] = len(a.labDivDay[day][division])
	}
	days := make([]string, len(a.days))
	copy(days, a.days)
	sort.SliceStable(days, func(i, j int) bool {
		if labCount[days[i]] != labCount[days[j]] {
			return labCount[days[i]] < labCount[days[j]]
		}
		return scanRank(days[i]) < scanRank(days[j])
	})

	blockLen := task.BlockLen
	if blockLen < 1 {
		blockLen = 1
	}
	for _, day := range days {
		if a.lastPlaced(day, division) == course {
			continue
		}
		for _, run := range a.runs {
			for start := 0; start+blockLen <= len(run.labels); start++ {
				block := run.labels[start : start+blockLen]
				if a.labFits(task, day, block) {
					a.commitLab(task, day, block)
					return true
				}
			}
		}
	}
	return false
}

func (a *allocator) labFits(task Task, day string, block []string) bool {
	division := task.Division
	course := task.Need.Course.Name

	if courses := a.labDivDay[day][division]; courses != nil {
		if _, repeat := courses[course]; !repeat && len(courses) >= a.policy.MaxLabsPerDivisionDay {
			return false
		}
	}

	for _, slot := range block {
		cell := a.grid.CellAt(day, slot)
		if cell == nil || cell.Kind != CellEmpty {
			return false
		}
		if a.faculty.has(day, slot, task.Need.Faculty) {
			return false
		}
		if a.divisions.has(day, slot, division) || a.divisions.has(day, slot, allDivisions) {
			return false
		}
		if division == allDivisions && a.divisions.any(day, slot) {
			return false
		}
	}
	return true
}

func (a *allocator) commitLecture(task Task, day, slot string) {
	need := task.Need
	act := Activity{
		ID:          uuid.NewString(),
		Type:        ActivityLecture,
		CourseName:  need.Course.Name,
		FacultyName: need.Faculty,
		Credits:     need.Course.Credits,
		Protected:   need.Protected,
		Display:     fmt.Sprintf("%s - %s", need.Course.Name, need.Faculty),
	}
	cell := a.grid.CellAt(day, slot)
	cell.Kind = CellOccupied
	cell.Activities = append(cell.Activities, act)

	a.faculty.add(day, slot, need.Faculty)
	a.divisions.add(day, slot, allDivisions)
	a.lectureCount[need.Course.Name]++
	a.noteCourseDay(need.Course.Name, day)
	a.noteLast(day, allDivisions, need.Course.Name)
}

func (a *allocator) commitLab(task Task, day string, block []string) {
	need := task.Need
	display := fmt.Sprintf("%s - %s", need.Course.Name, need.Faculty)
	if task.Division != "" && task.Division != allDivisions {
		display = fmt.Sprintf("%s - %s - %s", task.Division, need.Course.Name, need.Faculty)
	}
	act := Activity{
		ID:          uuid.NewString(),
		Type:        ActivityLab,
		CourseName:  need.Course.Name,
		FacultyName: need.Faculty,
		Division:    task.Division,
		Credits:     need.Course.Credits,
		Protected:   need.Protected,
		Display:     display,
	}
	for _, slot := range block {
		cell := a.grid.CellAt(day, slot)
		cell.Kind = CellOccupied
		cell.Activities = append(cell.Activities, act)
		a.faculty.add(day, slot, need.Faculty)
		a.divisions.add(day, slot, occupant(act))
	}
	key := labKey(need.Course.Name, task.Division)
	a.labSeeded[key]++
	a.labSkipped[key]++
	a.noteCourseDay(need.Course.Name, day)
	a.noteLabDay(day, task.Division, need.Course.Name)
	a.noteLast(day, task.Division, need.Course.Name)
}

// freeLowPriority evicts up to limit occupied cells whose every activity is
// unprotected and below the credit exemption, sweeping days in reverse scan
// order so low-value edge days empty first. Returns the number of cells
// actually freed. Callers must reseed afterwards.
func (a *allocator) freeLowPriority(limit int) int {
	days := make([]string, len(a.days))
	copy(days, a.days)
	sort.SliceStable(days, func(i, j int) bool {
		return scanRank(days[i]) > scanRank(days[j])
	})

	freed := 0
	for _, day := range days {
		for _, run := range a.runs {
			for _, slot := range run.labels {
				if freed >= limit {
					return freed
				}
				cell := a.grid.CellAt(day, slot)
				if cell == nil || cell.Kind != CellOccupied {
					continue
				}
				if !evictable(cell.Activities, a.policy.EvictionCreditExempt) {
					continue
				}
				a.log.Debug("evicting cell for retry",
					zap.String("day", day),
					zap.String("slot", slot))
				var labIDs []string
				for _, act := range cell.Activities {
					if act.Type == ActivityLab {
						labIDs = append(labIDs, act.ID)
					}
				}
				cell.Kind = CellEmpty
				cell.Activities = nil
				// labs span several cells; a partially evicted session
				// must release all of them
				for _, id := range labIDs {
					a.removeActivity(id)
				}
				freed++
			}
		}
	}
	return freed
}

// removeActivity strips every occurrence of an activity ID from the grid,
// emptying cells left with nothing.
func (a *allocator) removeActivity(id string) {
	for _, row := range a.grid {
		for _, cell := range row {
			if cell == nil || cell.Kind != CellOccupied {
				continue
			}
			kept := cell.Activities[:0]
			for _, act := range cell.Activities {
				if act.ID != id {
					kept = append(kept, act)
				}
			}
			cell.Activities = kept
			if len(kept) == 0 {
				cell.Kind = CellEmpty
				cell.Activities = nil
			}
		}
	}
}

func evictable(acts []Activity, creditExempt int) bool {
	for _, act := range acts {
		if act.Protected || act.Credits >= creditExempt {
			return false
		}
	}
	return len(acts) > 0
}
