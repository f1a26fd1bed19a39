package engine

import (
	"go.uber.org/zap"
)

// Engine runs the full allocation pipeline: task expansion, placement with
// eviction retries, weekend folding, and presentation rendering.
type Engine struct {
	policy       Policy
	foldSaturday bool
	log          *zap.Logger
}

// New builds an engine. A nil logger disables logging.
func New(policy Policy, foldSaturday bool, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}
	return &Engine{policy: policy, foldSaturday: foldSaturday, log: log}
}

// Result is the outcome of a generation run.
type Result struct {
	Layout         Layout       `json:"layout"`
	Grid           Grid         `json:"grid"`
	Compact        CompactGrid  `json:"compact_grid"`
	Conflicts      []Conflict   `json:"conflicts"`
	Passes         int          `json:"passes"`
	Freed          int          `json:"freed_cells"`
	// SaturdayFolded reports whether any Saturday session moved onto Friday.
	SaturdayFolded bool `json:"saturday_folded"`
	FacultyBusy    BusySnapshot `json:"faculty_busy"`
	DivisionBusy   BusySnapshot `json:"division_busy"`
}

// Run allocates the given demand onto the grid. An existing grid keeps its
// placements; missing demand is filled in around them. Unplaceable tasks
// surface as conflicts, never as an error.
func (e *Engine) Run(layout Layout, grid Grid, needs []CourseNeed) (*Result, error) {
	if len(layout.TimeSlots) == 0 {
		return nil, ErrIncompleteLayout
	}
	if grid == nil {
		grid = NewGrid(layout.Days, layout.TimeSlots)
	}

	tasks := ExpandTasks(needs, layout)
	e.log.Info("starting allocation",
		zap.Int("needs", len(needs)),
		zap.Int("tasks", len(tasks)))

	var (
		conflicts  []Conflict
		passes     int
		totalFreed int
	)
	alloc := newAllocator(layout, grid, e.policy, e.log)
	// the initial pass plus up to MaxRetries eviction retries
	for passes = 1; ; passes++ {
		alloc.reseed()
		conflicts = alloc.place(tasks)
		if len(conflicts) == 0 || passes > e.policy.MaxRetries {
			break
		}
		freed := alloc.freeLowPriority(2 * len(conflicts))
		totalFreed += freed
		e.log.Info("allocation pass left conflicts, evicting and retrying",
			zap.Int("pass", passes),
			zap.Int("conflicts", len(conflicts)),
			zap.Int("freed", freed))
		if freed == 0 {
			// nothing evictable, further passes cannot change the outcome
			break
		}
	}

	folded := false
	if e.foldSaturday {
		folded = FoldSaturday(layout, grid, e.log) > 0
	}

	faculty, divisions := rebuildBusy(grid)
	result := &Result{
		Layout:         layout,
		Grid:           grid,
		Compact:        Simplify(layout, grid),
		Conflicts:      conflicts,
		Passes:         passes,
		Freed:          totalFreed,
		SaturdayFolded: folded,
		FacultyBusy:    snapshotBusy(faculty),
		DivisionBusy:   snapshotBusy(divisions),
	}
	e.log.Info("allocation finished",
		zap.Int("passes", passes),
		zap.Int("conflicts", len(conflicts)),
		zap.Bool("saturday_folded", folded))
	return result, nil
}
