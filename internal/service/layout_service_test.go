package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/engine"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
)

type stubScopeStore struct {
	state   *engine.LayoutState
	saved   *engine.LayoutState
	cleared bool
}

func (s *stubScopeStore) SaveState(ctx context.Context, department string, semester int, state *engine.LayoutState) error {
	s.saved = state
	return nil
}

func (s *stubScopeStore) LoadState(ctx context.Context, department string, semester int) (*engine.LayoutState, error) {
	return s.state, nil
}

func (s *stubScopeStore) Clear(ctx context.Context, department string, semester int) error {
	s.cleared = true
	return nil
}

func TestLayoutServiceBuild(t *testing.T) {
	store := &stubScopeStore{}
	svc := NewLayoutService(store, nil, nil, nil)

	state, err := svc.Build(context.Background(), testScope(), dto.LayoutRequest{
		StartTime:      "09:00",
		EndTime:        "13:00",
		LectureMinutes: 60,
		LabMinutes:     120,
		Breaks:         []dto.BreakRequest{{Start: "11:00", End: "12:00", Name: "Lunch"}},
		WorkingDays:    []string{"Monday", "Tuesday"},
	})
	require.NoError(t, err)
	require.NotNil(t, store.saved)
	assert.Equal(t, 60, state.Layout.SlotDuration)

	var breakSlots int
	for _, slot := range state.Layout.TimeSlots {
		if slot.IsBreak {
			breakSlots++
			assert.Equal(t, "Lunch", slot.BreakName)
		}
	}
	assert.Equal(t, 1, breakSlots)
}

func TestLayoutServiceBuildRejectsBadTimes(t *testing.T) {
	svc := NewLayoutService(&stubScopeStore{}, nil, nil, nil)

	_, err := svc.Build(context.Background(), testScope(), dto.LayoutRequest{
		StartTime:      "13:00",
		EndTime:        "09:00",
		LectureMinutes: 60,
		LabMinutes:     120,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLayoutServiceGetMissing(t *testing.T) {
	svc := NewLayoutService(&stubScopeStore{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), testScope())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLayoutServiceClear(t *testing.T) {
	store := &stubScopeStore{}
	svc := NewLayoutService(store, nil, nil, nil)

	require.NoError(t, svc.Clear(context.Background(), testScope()))
	assert.True(t, store.cleared)
}
