package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/acadsync/timetable-api/internal/engine"
)

// LayoutStore keeps per-scope layout state, faculty assignments, and derived
// busy maps in Redis. Keys follow tt:{department}:{semester}:{suffix}.
type LayoutStore struct {
	client *redis.Client
}

// NewLayoutStore creates a store backed by the given client.
func NewLayoutStore(client *redis.Client) *LayoutStore {
	return &LayoutStore{client: client}
}

func scopeKey(department string, semester int, suffix string) string {
	return fmt.Sprintf("tt:%s:%d:%s", department, semester, suffix)
}

// SaveState writes the layout record for a scope.
func (s *LayoutStore) SaveState(ctx context.Context, department string, semester int, state *engine.LayoutState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode layout state: %w", err)
	}
	if err := s.client.Set(ctx, scopeKey(department, semester, "layout"), raw, 0).Err(); err != nil {
		return fmt.Errorf("save layout state: %w", err)
	}
	return nil
}

// LoadState reads the layout record for a scope. A missing key yields
// (nil, nil).
func (s *LayoutStore) LoadState(ctx context.Context, department string, semester int) (*engine.LayoutState, error) {
	raw, err := s.client.Get(ctx, scopeKey(department, semester, "layout")).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load layout state: %w", err)
	}
	var state engine.LayoutState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode layout state: %w", err)
	}
	return &state, nil
}

// SaveAssignments replaces the faculty assignments for a scope.
func (s *LayoutStore) SaveAssignments(ctx context.Context, department string, semester int, assignments []engine.AssignmentRecord) error {
	raw, err := json.Marshal(assignments)
	if err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}
	if err := s.client.Set(ctx, scopeKey(department, semester, "faculty"), raw, 0).Err(); err != nil {
		return fmt.Errorf("save assignments: %w", err)
	}
	return nil
}

// LoadAssignments reads the faculty assignments for a scope. A missing key
// yields an empty slice; a corrupt payload yields a decode error for the
// caller to handle.
func (s *LayoutStore) LoadAssignments(ctx context.Context, department string, semester int) ([]engine.AssignmentRecord, error) {
	raw, err := s.client.Get(ctx, scopeKey(department, semester, "faculty")).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	var assignments []engine.AssignmentRecord
	if err := json.Unmarshal(raw, &assignments); err != nil {
		return nil, fmt.Errorf("decode assignments: %w", err)
	}
	return assignments, nil
}

// SaveBusy writes the derived faculty and division busy maps for a scope.
func (s *LayoutStore) SaveBusy(ctx context.Context, department string, semester int, faculty, divisions engine.BusySnapshot) error {
	for suffix, snapshot := range map[string]engine.BusySnapshot{
		"busy_faculty":  faculty,
		"busy_division": divisions,
	} {
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("encode %s: %w", suffix, err)
		}
		if err := s.client.Set(ctx, scopeKey(department, semester, suffix), raw, 0).Err(); err != nil {
			return fmt.Errorf("save %s: %w", suffix, err)
		}
	}
	return nil
}

// Clear drops all stored keys for a scope.
func (s *LayoutStore) Clear(ctx context.Context, department string, semester int) error {
	keys := []string{
		scopeKey(department, semester, "layout"),
		scopeKey(department, semester, "faculty"),
		scopeKey(department, semester, "busy_faculty"),
		scopeKey(department, semester, "busy_division"),
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear scope: %w", err)
	}
	return nil
}
