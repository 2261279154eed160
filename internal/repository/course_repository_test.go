package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studomat-dev/studomat-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "holder", "holder_email", "assistant", "assistant_email",
		"description", "ects", "semester", "year", "capacity", "prerequisite_id", "created_at", "updated_at",
	})
}

func TestCourseRepositoryFindByNameCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now().UTC()
	rows := courseRows().
		AddRow("course-1", "Matematika 1", "prof. Horvat", nil, nil, nil, "", 6, 1, 1, 30, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER($1)")).
		WithArgs("matematika 1").
		WillReturnRows(rows)

	course, err := repo.FindByName(context.Background(), "matematika 1")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, "Matematika 1", course.Name)
}

func TestCourseRepositoryFindByNameMissing(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER($1)")).
		WithArgs("Ne Postoji").
		WillReturnError(sql.ErrNoRows)

	course, err := repo.FindByName(context.Background(), "Ne Postoji")
	require.NoError(t, err)
	assert.Nil(t, course)
}

func TestCourseRepositoryFindByNames(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now().UTC()
	rows := courseRows().
		AddRow("course-1", "Matematika 1", "prof. Horvat", nil, nil, nil, "", 6, 1, 1, 30, nil, now, now).
		AddRow("course-2", "Programiranje 1", "prof. Babić", nil, nil, nil, "", 6, 1, 1, 30, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = ANY($1)")).
		WithArgs(pq.Array([]string{"matematika 1", "programiranje 1"})).
		WillReturnRows(rows)

	courses, err := repo.FindByNames(context.Background(), []string{"Matematika 1", "PROGRAMIRANJE 1"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
}

func TestCourseRepositoryList(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "name", "holder", "holder_email", "assistant", "assistant_email",
		"description", "ects", "semester", "year", "capacity", "prerequisite_id", "created_at", "updated_at",
		"prerequisite_name",
	}).AddRow("course-2", "Programiranje 2", "prof. Babić", nil, nil, nil, "", 6, 2, 1, 30, "course-1", now, now, "Programiranje 1")

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses c LEFT JOIN courses p ON p.id = c.prerequisite_id")).
		WithArgs(1).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Year: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, courses, 1)
	require.NotNil(t, courses[0].PrerequisiteName)
	assert.Equal(t, "Programiranje 1", *courses[0].PrerequisiteName)
}

func TestCourseRepositoryStatusCounts(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("ACTIVE", 12).
		AddRow("PASSED", 40)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WithArgs("course-1").
		WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 12, counts[models.EnrollmentStatusActive])
	assert.Equal(t, 40, counts[models.EnrollmentStatusPassed])
	assert.Equal(t, 0, counts[models.EnrollmentStatusFailed])
}
