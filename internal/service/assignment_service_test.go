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

type stubAssignmentStore struct {
	saved []engine.AssignmentRecord
}

func (s *stubAssignmentStore) SaveAssignments(ctx context.Context, department string, semester int, assignments []engine.AssignmentRecord) error {
	s.saved = assignments
	return nil
}

func (s *stubAssignmentStore) LoadAssignments(ctx context.Context, department string, semester int) ([]engine.AssignmentRecord, error) {
	return s.saved, nil
}

func TestAssignmentServiceSave(t *testing.T) {
	store := &stubAssignmentStore{}
	svc := NewAssignmentService(store, nil, nil)

	err := svc.Save(context.Background(), testScope(), dto.AssignmentsRequest{
		Assignments: []engine.AssignmentRecord{{
			CourseName: "Physics",
			Faculty:    "Dr. Rao",
			Theory:     true,
			Pins:       []engine.ConstraintPin{{Day: "Monday", Slot: "09:00-10:00", Type: "lecture"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.True(t, store.saved[0].Theory)
}

func TestAssignmentServiceSaveRejectsBadRows(t *testing.T) {
	svc := NewAssignmentService(&stubAssignmentStore{}, nil, nil)

	cases := []engine.AssignmentRecord{
		{CourseName: "", Faculty: "Dr. Rao", Theory: true},
		{CourseName: "Physics", Faculty: "Dr. Rao", Theory: true,
			Pins: []engine.ConstraintPin{{Day: "", Slot: "09:00-10:00"}}},
		{CourseName: "Physics", Faculty: "Dr. Rao", Theory: true,
			Pins: []engine.ConstraintPin{{Day: "Monday", Slot: "09:00-10:00", Type: "seminar"}}},
	}
	for _, record := range cases {
		err := svc.Save(context.Background(), testScope(), dto.AssignmentsRequest{
			Assignments: []engine.AssignmentRecord{record},
		})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}
