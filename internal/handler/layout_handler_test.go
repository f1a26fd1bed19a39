package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/acadsync/timetable-api/internal/engine"
	"github.com/acadsync/timetable-api/internal/service"
)

type layoutStoreMock struct {
	states map[string]*engine.LayoutState
}

func newLayoutStoreMock() *layoutStoreMock {
	return &layoutStoreMock{states: map[string]*engine.LayoutState{}}
}

func (m *layoutStoreMock) key(department string, semester int) string {
	return department + "/" + strconv.Itoa(semester)
}

func (m *layoutStoreMock) SaveState(ctx context.Context, department string, semester int, state *engine.LayoutState) error {
	m.states[m.key(department, semester)] = state
	return nil
}

func (m *layoutStoreMock) LoadState(ctx context.Context, department string, semester int) (*engine.LayoutState, error) {
	return m.states[m.key(department, semester)], nil
}

func (m *layoutStoreMock) Clear(ctx context.Context, department string, semester int) error {
	delete(m.states, m.key(department, semester))
	return nil
}

func newLayoutRouter(store *layoutStoreMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewLayoutHandler(service.NewLayoutService(store, nil, nil, nil))
	router := gin.New()
	scoped := router.Group("/departments/:dept/semesters/:sem")
	scoped.PUT("/layout", handler.Build)
	scoped.GET("/layout", handler.Get)
	scoped.DELETE("/layout", handler.Clear)
	return router
}

func TestLayoutHandlerBuild(t *testing.T) {
	store := newLayoutStoreMock()
	router := newLayoutRouter(store)

	payload := []byte(`{"start_time":"09:00","end_time":"13:00","lecture_minutes":60,"lab_minutes":120,"breaks":[{"start":"11:00","end":"11:30","name":"Tea"}]}`)
	req, _ := http.NewRequest(http.MethodPut, "/departments/CSE/semesters/4/layout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	state := store.states["CSE/4"]
	require.NotNil(t, state)
	require.NotEmpty(t, state.Layout.TimeSlots)

	var envelope struct {
		Data struct {
			Layout engine.Layout `json:"layout"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 60, envelope.Data.Layout.SlotDuration)
}

func TestLayoutHandlerBuildRejectsMalformedJSON(t *testing.T) {
	router := newLayoutRouter(newLayoutStoreMock())

	req, _ := http.NewRequest(http.MethodPut, "/departments/CSE/semesters/4/layout", bytes.NewReader([]byte(`{"start_time":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLayoutHandlerBuildRejectsNonNumericSemester(t *testing.T) {
	router := newLayoutRouter(newLayoutStoreMock())

	payload := []byte(`{"start_time":"09:00","end_time":"13:00","lecture_minutes":60,"lab_minutes":120}`)
	req, _ := http.NewRequest(http.MethodPut, "/departments/CSE/semesters/four/layout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLayoutHandlerGetMissing(t *testing.T) {
	router := newLayoutRouter(newLayoutStoreMock())

	req, _ := http.NewRequest(http.MethodGet, "/departments/CSE/semesters/4/layout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLayoutHandlerClear(t *testing.T) {
	store := newLayoutStoreMock()
	store.states["CSE/4"] = &engine.LayoutState{}
	router := newLayoutRouter(store)

	req, _ := http.NewRequest(http.MethodDelete, "/departments/CSE/semesters/4/layout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotContains(t, store.states, "CSE/4")
}
