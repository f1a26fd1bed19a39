package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/engine"
	"github.com/acadsync/timetable-api/internal/models"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
)

type stubLayoutStore struct {
	state          *engine.LayoutState
	assignments    []engine.AssignmentRecord
	assignmentsErr error
	savedState     *engine.LayoutState
	savedBusy      bool
}

func (s *stubLayoutStore) LoadState(ctx context.Context, department string, semester int) (*engine.LayoutState, error) {
	return s.state, nil
}

func (s *stubLayoutStore) SaveState(ctx context.Context, department string, semester int, state *engine.LayoutState) error {
	s.savedState = state
	return nil
}

func (s *stubLayoutStore) LoadAssignments(ctx context.Context, department string, semester int) ([]engine.AssignmentRecord, error) {
	return s.assignments, s.assignmentsErr
}

func (s *stubLayoutStore) SaveBusy(ctx context.Context, department string, semester int, faculty, divisions engine.BusySnapshot) error {
	s.savedBusy = true
	return nil
}

type stubCatalog struct {
	courses []models.Course
}

func (s *stubCatalog) ListByScope(ctx context.Context, department string, semester int) ([]models.Course, error) {
	return s.courses, nil
}

type stubTimetableRepo struct {
	created *models.Timetable
}

func (s *stubTimetableRepo) Create(ctx context.Context, timetable *models.Timetable) error {
	timetable.ID = "t-1"
	s.created = timetable
	return nil
}

func (s *stubTimetableRepo) ListByScope(ctx context.Context, department string, semester int) ([]models.Timetable, error) {
	return nil, nil
}

func (s *stubTimetableRepo) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	return nil, errors.New("not implemented")
}

func (s *stubTimetableRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func generationState(t *testing.T) *engine.LayoutState {
	t.Helper()
	state, err := engine.BuildLayout(engine.LayoutParams{
		StartTime:      "09:00",
		EndTime:        "13:00",
		LectureMinutes: 60,
		LabMinutes:     120,
		WorkingDays:    []string{"Monday", "Tuesday", "Wednesday"},
	})
	require.NoError(t, err)
	return state
}

func testScope() models.Scope {
	return models.Scope{Department: "CSE", Semester: 4}
}

func TestTimetableServiceGenerate(t *testing.T) {
	store := &stubLayoutStore{
		state: generationState(t),
		assignments: []engine.AssignmentRecord{
			{CourseName: "Physics", Faculty: "Dr. Rao", Theory: true},
		},
	}
	catalog := &stubCatalog{courses: []models.Course{
		{Name: "Physics", Code: "PHY101", Credits: 4, TheoryHours: 2},
	}}
	repo := &stubTimetableRepo{}
	svc := NewTimetableService(store, catalog, repo, nil, engine.DefaultPolicy(), false, nil, nil)

	resp, err := svc.Generate(context.Background(), testScope(), dto.GenerateRequest{Persist: true}, "u-1")
	require.NoError(t, err)

	assert.Empty(t, resp.Conflicts)
	assert.Equal(t, "t-1", resp.TimetableID)
	require.NotNil(t, store.savedState)
	assert.True(t, store.savedBusy)
	require.NotNil(t, repo.created)
	assert.Equal(t, "u-1", repo.created.UserID)

	placed := 0
	for _, row := range resp.Grid {
		for _, cell := range row {
			if cell != nil && cell.Kind == engine.CellOccupied {
				placed += len(cell.Activities)
			}
		}
	}
	assert.Equal(t, 2, placed)
}

func TestTimetableServiceGenerateRequiresLayout(t *testing.T) {
	svc := NewTimetableService(&stubLayoutStore{}, &stubCatalog{}, &stubTimetableRepo{}, nil,
		engine.DefaultPolicy(), false, nil, nil)

	_, err := svc.Generate(context.Background(), testScope(), dto.GenerateRequest{}, "u-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateToleratesCorruptAssignments(t *testing.T) {
	store := &stubLayoutStore{
		state:          generationState(t),
		assignmentsErr: errors.New("decode assignments: unexpected end of JSON input"),
	}
	catalog := &stubCatalog{courses: []models.Course{
		{Name: "Physics", Code: "PHY101", Credits: 4, TheoryHours: 2},
	}}
	svc := NewTimetableService(store, catalog, &stubTimetableRepo{}, nil,
		engine.DefaultPolicy(), false, nil, nil)

	resp, err := svc.Generate(context.Background(), testScope(), dto.GenerateRequest{}, "u-1")
	require.NoError(t, err)

	// no assignments means no demand: an empty grid, not a failure
	assert.Empty(t, resp.Conflicts)
	for _, row := range resp.Grid {
		for _, cell := range row {
			if cell != nil {
				assert.NotEqual(t, engine.CellOccupied, cell.Kind)
			}
		}
	}
}

func TestTimetableServiceGenerateValidatesScope(t *testing.T) {
	svc := NewTimetableService(&stubLayoutStore{}, &stubCatalog{}, &stubTimetableRepo{}, nil,
		engine.DefaultPolicy(), false, nil, nil)

	_, err := svc.Generate(context.Background(), models.Scope{}, dto.GenerateRequest{}, "u-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceExportSheet(t *testing.T) {
	store := &stubLayoutStore{state: generationState(t)}
	cell := store.state.Grid.CellAt("Monday", "09:00-10:00")
	cell.Kind = engine.CellOccupied
	cell.Activities = []engine.Activity{{
		ID: "a-1", Type: engine.ActivityLecture, CourseName: "Physics", Display: "Physics - Dr. Rao",
	}}

	svc := NewTimetableService(store, &stubCatalog{}, &stubTimetableRepo{}, nil,
		engine.DefaultPolicy(), false, nil, nil)

	sheet, err := svc.ExportSheet(context.Background(), testScope())
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday"}, sheet.Days)
	assert.Equal(t, "Physics - Dr. Rao", sheet.Cells["Monday"]["09:00-10:00"])
	assert.Equal(t, "-", sheet.Cells["Tuesday"]["09:00-10:00"])
	assert.Equal(t, "CSE Semester 4", sheet.Titled)
}
