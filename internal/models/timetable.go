package models

import (
	"encoding/json"
	"time"
)

// Timetable is a persisted generation result. Grid and Conflicts hold the
// JSONB documents produced by the engine.
type Timetable struct {
	ID         string          `db:"id" json:"id"`
	Department string          `db:"department" json:"department"`
	Semester   int             `db:"semester" json:"semester"`
	UserID     string          `db:"user_id" json:"user_id"`
	Grid       json.RawMessage `db:"grid" json:"grid"`
	Conflicts  json.RawMessage `db:"conflicts" json:"conflicts,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
