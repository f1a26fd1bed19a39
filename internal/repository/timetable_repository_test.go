package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsync/timetable-api/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestTimetableRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	mock.ExpectExec("INSERT INTO timetables").
		WillReturnResult(sqlmock.NewResult(1, 1))

	timetable := &models.Timetable{
		Department: "CSE",
		Semester:   4,
		UserID:     "u-1",
		Grid:       json.RawMessage(`{"Monday":{}}`),
		Conflicts:  json.RawMessage(`[]`),
	}
	require.NoError(t, repo.Create(context.Background(), timetable))
	assert.NotEmpty(t, timetable.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByScope(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	rows := sqlmock.NewRows([]string{"id", "department", "semester", "user_id", "grid", "conflicts", "created_at"}).
		AddRow("t-1", "CSE", 4, "u-1", []byte(`{"Monday":{}}`), []byte(`[]`), time.Now())
	mock.ExpectQuery("SELECT id, department, semester").
		WithArgs("CSE", 4).
		WillReturnRows(rows)

	result, err := repo.ListByScope(context.Background(), "CSE", 4)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "t-1", result[0].ID)
	assert.JSONEq(t, `{"Monday":{}}`, string(result[0].Grid))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	mock.ExpectQuery("SELECT id, department, semester").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
