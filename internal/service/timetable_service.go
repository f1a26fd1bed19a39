package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/engine"
	"github.com/acadsync/timetable-api/internal/models"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
	"github.com/acadsync/timetable-api/pkg/export"
	"github.com/acadsync/timetable-api/pkg/jobs"
)

type timetableStore interface {
	LoadState(ctx context.Context, department string, semester int) (*engine.LayoutState, error)
	SaveState(ctx context.Context, department string, semester int, state *engine.LayoutState) error
	LoadAssignments(ctx context.Context, department string, semester int) ([]engine.AssignmentRecord, error)
	SaveBusy(ctx context.Context, department string, semester int, faculty, divisions engine.BusySnapshot) error
}

type courseCatalog interface {
	ListByScope(ctx context.Context, department string, semester int) ([]models.Course, error)
}

type timetableRepository interface {
	Create(ctx context.Context, timetable *models.Timetable) error
	ListByScope(ctx context.Context, department string, semester int) ([]models.Timetable, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Delete(ctx context.Context, id string) error
}

type generationMetrics interface {
	ObserveGeneration(passes, conflicts int, duration time.Duration)
}

// TimetableService orchestrates generation runs: it joins stored layout,
// catalog, and assignments, invokes the engine, and writes the results back.
type TimetableService struct {
	store      timetableStore
	catalog    courseCatalog
	timetables timetableRepository
	metrics    generationMetrics
	policy     engine.Policy
	fold       bool
	queue      *jobs.Queue
	validator  *validator.Validate
	logger     *zap.Logger

	locks sync.Map // scope key -> *sync.Mutex
}

// NewTimetableService creates a timetable service.
func NewTimetableService(store timetableStore, catalog courseCatalog, timetables timetableRepository,
	metrics generationMetrics, policy engine.Policy, foldSaturday bool,
	validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		store:      store,
		catalog:    catalog,
		timetables: timetables,
		metrics:    metrics,
		policy:     policy,
		fold:       foldSaturday,
		validator:  validate,
		logger:     logger,
	}
}

// generateJob is the async queue payload.
type generateJob struct {
	Scope  models.Scope
	Req    dto.GenerateRequest
	UserID string
}

// AttachQueue wires the async worker queue. Called once during startup.
func (s *TimetableService) AttachQueue(q *jobs.Queue) {
	s.queue = q
}

// HandleJob processes one queued generation run.
func (s *TimetableService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generateJob)
	if !ok {
		s.logger.Error("dropping job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	payload.Req.Async = false
	_, err := s.Generate(ctx, payload.Scope, payload.Req, payload.UserID)
	if err != nil {
		// scope-busy and precondition failures are not retryable
		if e := appErrors.FromError(err); e.Code == appErrors.ErrScopeBusy.Code || e.Code == appErrors.ErrPreconditionFailed.Code {
			s.logger.Warn("async generation skipped", zap.String("job_id", job.ID), zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

func (s *TimetableService) scopeLock(scope models.Scope) *sync.Mutex {
	key := scope.Department + "|" + strconv.Itoa(scope.Semester)
	actual, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Generate runs the engine for a scope. Concurrent runs for the same scope
// are rejected with a conflict; different scopes run independently.
func (s *TimetableService) Generate(ctx context.Context, scope models.Scope, req dto.GenerateRequest, userID string) (*dto.GenerateResponse, error) {
	if err := s.validator.Struct(scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}

	if req.Async {
		return nil, s.enqueue(scope, req, userID)
	}

	lock := s.scopeLock(scope)
	if !lock.TryLock() {
		return nil, appErrors.Clone(appErrors.ErrScopeBusy, "")
	}
	defer lock.Unlock()

	started := time.Now()

	state, err := s.store.LoadState(ctx, scope.Department, scope.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load layout")
	}
	if state == nil || len(state.Layout.TimeSlots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no layout with time slots defined for this scope")
	}

	courses, err := s.catalog.ListByScope(ctx, scope.Department, scope.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course catalog")
	}

	assignments, err := s.store.LoadAssignments(ctx, scope.Department, scope.Semester)
	if err != nil {
		// corrupt assignment payloads degrade to an empty set
		s.logger.Warn("unreadable assignments for scope, generating without them",
			zap.String("department", scope.Department),
			zap.Int("semester", scope.Semester),
			zap.Error(err))
		assignments = nil
	}

	needs := engine.BuildNeeds(courseRecords(courses), assignments, s.logger)

	eng := engine.New(s.policy, s.fold, s.logger)
	result, err := eng.Run(state.Layout, state.Grid, needs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "layout is unusable for generation")
	}

	state.Layout = result.Layout
	state.Grid = result.Grid
	if err := s.store.SaveState(ctx, scope.Department, scope.Semester, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save generated timetable")
	}
	if err := s.store.SaveBusy(ctx, scope.Department, scope.Semester, result.FacultyBusy, result.DivisionBusy); err != nil {
		s.logger.Warn("failed to save busy maps", zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.ObserveGeneration(result.Passes, len(result.Conflicts), time.Since(started))
	}

	resp := &dto.GenerateResponse{
		Department:     scope.Department,
		Semester:       scope.Semester,
		Grid:           result.Grid,
		CompactGrid:    result.Compact,
		Conflicts:      result.Conflicts,
		Passes:         result.Passes,
		SaturdayFolded: result.SaturdayFolded,
	}

	if req.Persist && s.timetables != nil {
		record, err := s.persist(ctx, scope, userID, result)
		if err != nil {
			return nil, err
		}
		resp.TimetableID = record.ID
	}

	s.logger.Info("timetable generated",
		zap.String("department", scope.Department),
		zap.Int("semester", scope.Semester),
		zap.Int("passes", result.Passes),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Duration("took", time.Since(started)))
	return resp, nil
}

func (s *TimetableService) enqueue(scope models.Scope, req dto.GenerateRequest, userID string) error {
	if s.queue == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "async generation is not enabled")
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "generate",
		Payload: generateJob{Scope: scope, Req: req, UserID: userID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation")
	}
	return nil
}

func (s *TimetableService) persist(ctx context.Context, scope models.Scope, userID string, result *engine.Result) (*models.Timetable, error) {
	rawGrid, err := json.Marshal(result.Compact)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode grid")
	}
	conflicts := result.Conflicts
	if conflicts == nil {
		conflicts = []engine.Conflict{}
	}
	rawConflicts, err := json.Marshal(conflicts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode conflicts")
	}

	record := &models.Timetable{
		Department: scope.Department,
		Semester:   scope.Semester,
		UserID:     userID,
		Grid:       rawGrid,
		Conflicts:  rawConflicts,
	}
	if err := s.timetables.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable")
	}
	return record, nil
}

// List returns persisted timetables for a scope.
func (s *TimetableService) List(ctx context.Context, scope models.Scope) ([]models.Timetable, error) {
	timetables, err := s.timetables.ListByScope(ctx, scope.Department, scope.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return timetables, nil
}

// Get returns one persisted timetable.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return timetable, nil
}

// Delete removes a persisted timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if _, err := s.timetables.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

// ExportSheet renders the current grid of a scope into the tabular form the
// exporters consume.
func (s *TimetableService) ExportSheet(ctx context.Context, scope models.Scope) (export.Sheet, error) {
	state, err := s.store.LoadState(ctx, scope.Department, scope.Semester)
	if err != nil {
		return export.Sheet{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load layout")
	}
	if state == nil || len(state.Layout.TimeSlots) == 0 {
		return export.Sheet{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "no layout with time slots defined for this scope")
	}

	sheet := export.Sheet{
		Days:   state.Layout.Days,
		Slots:  state.Layout.SlotLabels(),
		Cells:  make(map[string]map[string]string, len(state.Layout.Days)),
		Titled: scope.Department + " Semester " + strconv.Itoa(scope.Semester),
	}
	for _, day := range state.Layout.Days {
		row := make(map[string]string, len(state.Layout.TimeSlots))
		for _, slot := range state.Layout.TimeSlots {
			row[slot.Label()] = renderCell(state.Grid.CellAt(day, slot.Label()))
		}
		sheet.Cells[day] = row
	}
	return sheet, nil
}

func renderCell(cell *engine.Cell) string {
	if cell == nil {
		return "-"
	}
	switch cell.Kind {
	case engine.CellBreak:
		return cell.BreakName
	case engine.CellOccupied:
		parts := make([]string, 0, len(cell.Activities))
		for _, act := range cell.Activities {
			parts = append(parts, act.Display)
		}
		return strings.Join(parts, " / ")
	default:
		return "-"
	}
}

func courseRecords(courses []models.Course) []engine.CourseRecord {
	records := make([]engine.CourseRecord, 0, len(courses))
	for _, c := range courses {
		records = append(records, engine.CourseRecord{
			Name:           c.Name,
			Code:           c.Code,
			Credits:        c.Credits,
			TheoryHours:    c.TheoryHours,
			TutorialHours:  c.TutorialHours,
			PracticalHours: c.PracticalHours,
		})
	}
	return records
}
