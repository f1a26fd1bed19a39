package service

import (
	"context"
	"database/sql"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/acadsync/timetable-api/internal/models"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
)

type courseRepository interface {
	ListByScope(ctx context.Context, department string, semester int) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, department string, semester int, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, course *models.Course) error
}

// CreateCourseRequest captures fields for creating a catalog row.
type CreateCourseRequest struct {
	Code           string  `json:"code" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Credits        int     `json:"credits" validate:"required,min=1,max=10"`
	TheoryHours    int     `json:"theory_hours" validate:"min=0"`
	TutorialHours  int     `json:"tutorial_hours" validate:"min=0"`
	PracticalHours float64 `json:"practical_hours" validate:"min=0"`
}

// courseCSVRow is the gocsv row shape for bulk imports.
type courseCSVRow struct {
	Code           string  `csv:"code"`
	Name           string  `csv:"name"`
	Credits        int     `csv:"credits"`
	TheoryHours    int     `csv:"theory_hours"`
	TutorialHours  int     `csv:"tutorial_hours"`
	PracticalHours float64 `csv:"practical_hours"`
}

// CourseService handles course catalog workflows.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns the catalog for a scope.
func (s *CourseService) List(ctx context.Context, scope models.Scope) ([]models.Course, error) {
	courses, err := s.repo.ListByScope(ctx, scope.Department, scope.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns a course by identifier.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a catalog row ensuring code uniqueness within the scope.
func (s *CourseService) Create(ctx context.Context, scope models.Scope, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, scope.Department, scope.Semester, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists in this scope")
	}

	course := &models.Course{
		Department:     scope.Department,
		Semester:       scope.Semester,
		Code:           req.Code,
		Name:           strings.TrimSpace(req.Name),
		Credits:        req.Credits,
		TheoryHours:    req.TheoryHours,
		TutorialHours:  req.TutorialHours,
		PracticalHours: req.PracticalHours,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, course.Department, course.Semester, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists in this scope")
	}

	course.Code = req.Code
	course.Name = strings.TrimSpace(req.Name)
	course.Credits = req.Credits
	course.TheoryHours = req.TheoryHours
	course.TutorialHours = req.TutorialHours
	course.PracticalHours = req.PracticalHours

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a catalog row.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

// ImportCSV bulk-upserts catalog rows from a CSV stream. Rows missing a code
// or name are skipped with a warning; the import continues.
func (s *CourseService) ImportCSV(ctx context.Context, scope models.Scope, reader io.Reader) (int, error) {
	if err := s.validator.Struct(scope); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}

	var rows []courseCSVRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable csv payload")
	}

	imported := 0
	for _, row := range rows {
		code := strings.ToUpper(strings.TrimSpace(row.Code))
		name := strings.TrimSpace(row.Name)
		if code == "" || name == "" {
			s.logger.Warn("skipping csv row with missing code or name",
				zap.String("code", row.Code),
				zap.String("name", row.Name))
			continue
		}
		course := &models.Course{
			Department:     scope.Department,
			Semester:       scope.Semester,
			Code:           code,
			Name:           name,
			Credits:        row.Credits,
			TheoryHours:    row.TheoryHours,
			TutorialHours:  row.TutorialHours,
			PracticalHours: row.PracticalHours,
		}
		if err := s.repo.Upsert(ctx, course); err != nil {
			return imported, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import course "+code)
		}
		imported++
	}

	s.logger.Info("course catalog imported",
		zap.String("department", scope.Department),
		zap.Int("semester", scope.Semester),
		zap.Int("rows", imported))
	return imported, nil
}
