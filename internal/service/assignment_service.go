package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/engine"
	"github.com/acadsync/timetable-api/internal/models"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
)

type assignmentStore interface {
	SaveAssignments(ctx context.Context, department string, semester int, assignments []engine.AssignmentRecord) error
	LoadAssignments(ctx context.Context, department string, semester int) ([]engine.AssignmentRecord, error)
}

// AssignmentService manages faculty assignments and constraint pins per scope.
type AssignmentService struct {
	store     assignmentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService creates an assignment service.
func NewAssignmentService(store assignmentStore, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{store: store, validator: validate, logger: logger}
}

// Save replaces the assignments for a scope after shape validation.
func (s *AssignmentService) Save(ctx context.Context, scope models.Scope, req dto.AssignmentsRequest) error {
	if err := s.validator.Struct(scope); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	for _, record := range req.Assignments {
		if strings.TrimSpace(record.CourseName) == "" || strings.TrimSpace(record.Faculty) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "assignment rows need course_name and faculty_name")
		}
		for _, pin := range record.Pins {
			if strings.TrimSpace(pin.Day) == "" || strings.TrimSpace(pin.Slot) == "" {
				return appErrors.Clone(appErrors.ErrValidation, "constraint pins need day and slot")
			}
			if pin.Type != "" && pin.Type != string(engine.ActivityLecture) && pin.Type != string(engine.ActivityLab) {
				return appErrors.Clone(appErrors.ErrValidation, "constraint pin type must be lecture or lab")
			}
		}
	}

	if err := s.store.SaveAssignments(ctx, scope.Department, scope.Semester, req.Assignments); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save assignments")
	}
	s.logger.Info("assignments saved",
		zap.String("department", scope.Department),
		zap.Int("semester", scope.Semester),
		zap.Int("count", len(req.Assignments)))
	return nil
}

// Get returns the stored assignments for a scope.
func (s *AssignmentService) Get(ctx context.Context, scope models.Scope) ([]engine.AssignmentRecord, error) {
	assignments, err := s.store.LoadAssignments(ctx, scope.Department, scope.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	if assignments == nil {
		assignments = []engine.AssignmentRecord{}
	}
	return assignments, nil
}
