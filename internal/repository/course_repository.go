package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadsync/timetable-api/internal/models"
)

const courseColumns = "id, department, semester, code, name, credits, theory_hours, tutorial_hours, practical_hours, created_at, updated_at"

// CourseRepository handles persistence for the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByScope returns every catalog row for a department and semester.
func (r *CourseRepository) ListByScope(ctx context.Context, department string, semester int) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE department = $1 AND semester = $2 ORDER BY code", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, department, semester); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode checks uniqueness of a course code within its scope.
func (r *CourseRepository) ExistsByCode(ctx context.Context, department string, semester int, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE department = $1 AND semester = $2 AND LOWER(code) = LOWER($3)"
	args := []interface{}{department, semester, code}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, department, semester, code, name, credits, theory_hours, tutorial_hours, practical_hours, created_at, updated_at)
		VALUES (:id, :department, :semester, :code, :name, :credits, :theory_hours, :tutorial_hours, :practical_hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, credits = :credits, theory_hours = :theory_hours,
		tutorial_hours = :tutorial_hours, practical_hours = :practical_hours, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course record.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// Upsert inserts or replaces a course keyed by its scope and code. Used by
// the CSV import path.
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, department, semester, code, name, credits, theory_hours, tutorial_hours, practical_hours, created_at, updated_at)
		VALUES (:id, :department, :semester, :code, :name, :credits, :theory_hours, :tutorial_hours, :practical_hours, :created_at, :updated_at)
		ON CONFLICT (department, semester, code) DO UPDATE SET
			name = EXCLUDED.name,
			credits = EXCLUDED.credits,
			theory_hours = EXCLUDED.theory_hours,
			tutorial_hours = EXCLUDED.tutorial_hours,
			practical_hours = EXCLUDED.practical_hours,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}
