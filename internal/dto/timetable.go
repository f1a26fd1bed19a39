package dto

import (
	"github.com/acadsync/timetable-api/internal/engine"
)

// BreakRequest is one break window in a layout request.
type BreakRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	Name  string `json:"name"`
}

// LayoutRequest carries the inputs for building a slot layout.
type LayoutRequest struct {
	StartTime      string         `json:"start_time" validate:"required"`
	EndTime        string         `json:"end_time" validate:"required"`
	LectureMinutes int            `json:"lecture_minutes" validate:"required,min=1"`
	LabMinutes     int            `json:"lab_minutes" validate:"required,min=1"`
	Breaks         []BreakRequest `json:"breaks" validate:"dive"`
	WorkingDays    []string       `json:"working_days"`
}

// AssignmentsRequest replaces the faculty assignments for a scope.
type AssignmentsRequest struct {
	Assignments []engine.AssignmentRecord `json:"assignments" validate:"required,dive"`
}

// GenerateRequest tunes one generation run.
type GenerateRequest struct {
	Persist bool `json:"persist"`
	Async   bool `json:"async"`
}

// GenerateResponse is the synchronous generation payload.
type GenerateResponse struct {
	Department     string             `json:"department"`
	Semester       int                `json:"semester"`
	Grid           engine.Grid        `json:"grid"`
	CompactGrid    engine.CompactGrid `json:"compact_grid"`
	Conflicts      []engine.Conflict  `json:"conflicts"`
	Passes         int                `json:"passes"`
	SaturdayFolded bool               `json:"saturday_folded"`
	TimetableID    string             `json:"timetable_id,omitempty"`
}

// EnqueuedResponse acknowledges an async generation request.
type EnqueuedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}
