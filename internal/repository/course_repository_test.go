package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsync/timetable-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestCourseRepositoryListByScope(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "department", "semester", "code", "name", "credits",
		"theory_hours", "tutorial_hours", "practical_hours", "created_at", "updated_at",
	}).AddRow("c-1", "CSE", 4, "PHY101", "Physics", 4, 3, 0, 2.0, time.Now(), time.Now())

	mock.ExpectQuery("SELECT id, department, semester").
		WithArgs("CSE", 4).
		WillReturnRows(rows)

	result, err := repo.ListByScope(context.Background(), "CSE", 4)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Physics", result[0].Name)
	assert.Equal(t, 3, result[0].TheoryHours)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec("INSERT INTO courses").
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{
		Department:  "CSE",
		Semester:    4,
		Code:        "PHY101",
		Name:        "Physics",
		Credits:     4,
		TheoryHours: 3,
	}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.False(t, course.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec("INSERT INTO courses").
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Department: "CSE", Semester: 4, Code: "CHM101", Name: "Chemistry", Credits: 3}
	require.NoError(t, repo.Upsert(context.Background(), course))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery("SELECT 1 FROM courses").
		WithArgs("CSE", 4, "PHY101").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "CSE", 4, "PHY101", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM courses").
		WithArgs("CSE", 4, "NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByCode(context.Background(), "CSE", 4, "NOPE", "")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec("DELETE FROM courses").
		WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "c-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
