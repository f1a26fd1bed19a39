package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadsync/timetable-api/internal/models"
)

// TimetableRepository stores generated timetables as JSONB documents.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new repository instance.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create persists a generation result.
func (r *TimetableRepository) Create(ctx context.Context, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO timetables (id, department, semester, user_id, grid, conflicts, created_at)
		VALUES (:id, :department, :semester, :user_id, :grid, :conflicts, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// ListByScope returns stored timetables for a scope, newest first.
func (r *TimetableRepository) ListByScope(ctx context.Context, department string, semester int) ([]models.Timetable, error) {
	const query = `SELECT id, department, semester, user_id, grid, conflicts, created_at
		FROM timetables WHERE department = $1 AND semester = $2 ORDER BY created_at DESC`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, department, semester); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindByID returns a stored timetable.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, department, semester, user_id, grid, conflicts, created_at FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// Delete removes a stored timetable.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return nil
}
