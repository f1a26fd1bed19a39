package models

import "time"

// Course is a catalog row scoped to a department and semester.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Department     string    `db:"department" json:"department"`
	Semester       int       `db:"semester" json:"semester"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	Credits        int       `db:"credits" json:"credits"`
	TheoryHours    int       `db:"theory_hours" json:"theory_hours"`
	TutorialHours  int       `db:"tutorial_hours" json:"tutorial_hours"`
	PracticalHours float64   `db:"practical_hours" json:"practical_hours"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Scope identifies one timetable: a department code plus semester number.
type Scope struct {
	Department string `json:"department" validate:"required"`
	Semester   int    `json:"semester" validate:"required,min=1,max=12"`
}
