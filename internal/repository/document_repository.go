package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studomat-dev/studomat-api/internal/models"
)

// DocumentRepository manages uploaded enrollment documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create records one uploaded document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.StudentDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_documents (id, student_id, type, filename, path, mime, size, accepted, uploaded_at)
        VALUES (:id, :student_id, :type, :filename, :path, :mime, :size, :accepted, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns one upload, or nil when absent.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.StudentDocument, error) {
	const query = `SELECT id, student_id, type, filename, path, mime, size, accepted, uploaded_at
        FROM student_documents WHERE id = $1`
	var doc models.StudentDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

// ListByStudent returns all uploads of one student, newest first.
func (r *DocumentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	const query = `SELECT id, student_id, type, filename, path, mime, size, accepted, uploaded_at
        FROM student_documents WHERE student_id = $1 ORDER BY uploaded_at DESC`
	var docs []models.StudentDocument
	if err := r.db.SelectContext(ctx, &docs, query, studentID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// LatestByType returns the newest upload per document type for one student.
func (r *DocumentRepository) LatestByType(ctx context.Context, studentID string) (map[models.DocumentType]models.StudentDocument, error) {
	const query = `SELECT DISTINCT ON (type) id, student_id, type, filename, path, mime, size, accepted, uploaded_at
        FROM student_documents WHERE student_id = $1 ORDER BY type, uploaded_at DESC`
	var docs []models.StudentDocument
	if err := r.db.SelectContext(ctx, &docs, query, studentID); err != nil {
		return nil, fmt.Errorf("latest documents: %w", err)
	}
	latest := make(map[models.DocumentType]models.StudentDocument, len(docs))
	for _, doc := range docs {
		latest[doc.Type] = doc
	}
	return latest, nil
}

// MarkAccepted accepts the given uploads and advances the student's
// document-submission step in one transaction. The completed flag is derived
// from the year and course steps already recorded on the student row; the
// resulting value is returned.
func (r *DocumentRepository) MarkAccepted(ctx context.Context, studentID string, documentIDs []string) (completed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin accept transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const acceptQuery = `UPDATE student_documents SET accepted = true WHERE student_id = $1 AND id = ANY($2)`
	if _, err = tx.ExecContext(ctx, acceptQuery, studentID, pq.Array(documentIDs)); err != nil {
		return false, fmt.Errorf("accept documents: %w", err)
	}

	const stepQuery = `UPDATE students SET documents_submitted = true,
        completed = (year_selected AND courses_selected),
        enrollment_step = $2, updated_at = $3
        WHERE id = $1 RETURNING completed`
	if err = tx.GetContext(ctx, &completed, stepQuery, studentID, models.StepDocumentsSubmitted, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("advance document step: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit accept: %w", err)
	}
	return completed, nil
}
