package repository

import (
	"context"
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

func newDocumentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
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

func TestDocumentRepositoryLatestByType(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "student_id", "type", "filename", "path", "mime", "size", "accepted", "uploaded_at"}).
		AddRow("doc-1", "stud-1", "upisniObrazac", "obrazac.pdf", "/files/stud-1/obrazac.pdf", "application/pdf", 1024, false, now).
		AddRow("doc-2", "stud-1", "uplatnica", "uplatnica.pdf", "/files/stud-1/uplatnica.pdf", "application/pdf", 2048, false, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (type)")).
		WithArgs("stud-1").
		WillReturnRows(rows)

	latest, err := repo.LatestByType(context.Background(), "stud-1")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "doc-1", latest[models.DocumentEnrollmentForm].ID)
	assert.Equal(t, "doc-2", latest[models.DocumentPaymentSlip].ID)
	_, ok := latest[models.DocumentPaymentConfirmation]
	assert.False(t, ok)
}

func TestDocumentRepositoryMarkAccepted(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	ids := []string{"doc-1", "doc-2", "doc-3"}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_documents SET accepted = true")).
		WithArgs("stud-1", pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET documents_submitted = true")).
		WithArgs("stud-1", models.StepDocumentsSubmitted, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"completed"}).AddRow(true))
	mock.ExpectCommit()

	completed, err := repo.MarkAccepted(context.Background(), "stud-1", ids)
	require.NoError(t, err)
	assert.True(t, completed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMarkAcceptedIncompleteSteps(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_documents SET accepted = true")).
		WithArgs("stud-1", pq.Array([]string{"doc-1"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET documents_submitted = true")).
		WithArgs("stud-1", models.StepDocumentsSubmitted, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"completed"}).AddRow(false))
	mock.ExpectCommit()

	completed, err := repo.MarkAccepted(context.Background(), "stud-1", []string{"doc-1"})
	require.NoError(t, err)
	assert.False(t, completed)
}
