package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/engine"
	"github.com/acadsync/timetable-api/internal/models"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
)

type layoutStore interface {
	SaveState(ctx context.Context, department string, semester int, state *engine.LayoutState) error
	LoadState(ctx context.Context, department string, semester int) (*engine.LayoutState, error)
	Clear(ctx context.Context, department string, semester int) error
}

// LayoutService builds and stores slot layouts per scope.
type LayoutService struct {
	store       layoutStore
	defaultDays []string
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewLayoutService creates a layout service.
func NewLayoutService(store layoutStore, defaultDays []string, validate *validator.Validate, logger *zap.Logger) *LayoutService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(defaultDays) == 0 {
		defaultDays = engine.DefaultWorkingDays
	}
	return &LayoutService{store: store, defaultDays: defaultDays, validator: validate, logger: logger}
}

// Build derives the slot layout from the request and stores it with an empty
// grid, replacing any previous layout for the scope.
func (s *LayoutService) Build(ctx context.Context, scope models.Scope, req dto.LayoutRequest) (*engine.LayoutState, error) {
	if err := s.validator.Struct(scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid layout payload")
	}

	breaks := make([]engine.BreakWindow, 0, len(req.Breaks))
	for _, br := range req.Breaks {
		breaks = append(breaks, engine.BreakWindow{Start: br.Start, End: br.End, Name: br.Name})
	}
	days := req.WorkingDays
	if len(days) == 0 {
		days = s.defaultDays
	}

	state, err := engine.BuildLayout(engine.LayoutParams{
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Breaks:         breaks,
		LectureMinutes: req.LectureMinutes,
		LabMinutes:     req.LabMinutes,
		WorkingDays:    days,
	})
	if err != nil {
		if errors.Is(err, engine.ErrInvalidTime) || errors.Is(err, engine.ErrInvalidInterval) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid layout parameters")
	}

	if err := s.store.SaveState(ctx, scope.Department, scope.Semester, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save layout")
	}

	s.logger.Info("layout built",
		zap.String("department", scope.Department),
		zap.Int("semester", scope.Semester),
		zap.Int("slots", len(state.Layout.TimeSlots)),
		zap.Int("slot_duration", state.Layout.SlotDuration))
	return state, nil
}

// Get returns the stored layout state for a scope.
func (s *LayoutService) Get(ctx context.Context, scope models.Scope) (*engine.LayoutState, error) {
	state, err := s.store.LoadState(ctx, scope.Department, scope.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load layout")
	}
	if state == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no layout defined for this scope")
	}
	return state, nil
}

// Clear removes the stored layout, assignments, and busy maps for a scope.
func (s *LayoutService) Clear(ctx context.Context, scope models.Scope) error {
	if err := s.store.Clear(ctx, scope.Department, scope.Semester); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear scope")
	}
	return nil
}
