package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studomat-dev/studomat-api/internal/models"
	"github.com/studomat-dev/studomat-api/pkg/config"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/export"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.StudentDocument) error
	FindByID(ctx context.Context, id string) (*models.StudentDocument, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentDocument, error)
	LatestByType(ctx context.Context, studentID string) (map[models.DocumentType]models.StudentDocument, error)
	MarkAccepted(ctx context.Context, studentID string, documentIDs []string) (bool, error)
}

type documentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type documentStorage interface {
	SaveStream(studentID, filename string, r io.Reader) (string, error)
	Open(rel string) (io.ReadCloser, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// UploadDocumentInput describes one incoming document upload.
type UploadDocumentInput struct {
	Type     models.DocumentType
	Filename string
	Mime     string
	Size     int64
	Content  io.Reader
}

// SubmitResult reports the outcome of the document-submission step. Accepted
// documents stick even when completion stays gated on earlier steps.
type SubmitResult struct {
	Accepted  []models.StudentDocument `json:"accepted"`
	Completed bool                     `json:"completed"`
	Message   string                   `json:"message,omitempty"`
}

// DocumentService handles enrollment-document uploads and the
// document-submission step.
type DocumentService struct {
	repo      documentRepository
	students  documentStudentReader
	storage   documentStorage
	pdf       pdfRenderer
	cfg       config.DocumentsConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(repo documentRepository, students documentStudentReader, store documentStorage, pdf pdfRenderer, cfg config.DocumentsConfig, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{repo: repo, students: students, storage: store, pdf: pdf, cfg: cfg, validator: validate, logger: logger}
}

// Upload stores one PDF document for the student. Uploading the same type
// again supersedes the previous file as the acceptance candidate.
func (s *DocumentService) Upload(ctx context.Context, studentID string, input UploadDocumentInput) (*models.StudentDocument, error) {
	if !models.ValidDocumentType(input.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown document type: "+string(input.Type))
	}
	if input.Mime != "application/pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF uploads are allowed")
	}
	if input.Size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	filename := fmt.Sprintf("%s-%d.pdf", input.Type, time.Now().UTC().UnixNano())
	path, err := s.storage.SaveStream(studentID, filename, input.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}

	doc := &models.StudentDocument{
		StudentID: studentID,
		Type:      input.Type,
		Filename:  input.Filename,
		Path:      path,
		Mime:      input.Mime,
		Size:      input.Size,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}
	s.logger.Info("document uploaded",
		zap.String("student_id", studentID),
		zap.String("type", string(input.Type)))
	return doc, nil
}

// List returns every upload of one student, newest first.
func (s *DocumentService) List(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	docs, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Download returns one of the student's stored uploads with its content.
// Documents of other students are reported as not found.
func (s *DocumentService) Download(ctx context.Context, studentID, documentID string) (*models.StudentDocument, []byte, error) {
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc == nil || doc.StudentID != studentID {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}

	file, err := s.storage.Open(doc.Path)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document")
	}
	return doc, data, nil
}

// Submit finishes the document step: every required type must have at least
// one upload, the latest of each is marked accepted, and completion is
// granted only when the year and course steps already hold.
func (s *DocumentService) Submit(ctx context.Context, studentID string) (*SubmitResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	latest, err := s.repo.LatestByType(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load documents")
	}

	var missing []string
	var accepted []models.StudentDocument
	var ids []string
	for _, docType := range models.RequiredDocumentTypes() {
		doc, ok := latest[docType]
		if !ok {
			missing = append(missing, string(docType))
			continue
		}
		doc.Accepted = true
		accepted = append(accepted, doc)
		ids = append(ids, doc.ID)
	}
	if len(missing) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrMissingDocuments, missing)
	}

	completed, err := s.repo.MarkAccepted(ctx, studentID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept documents")
	}

	result := &SubmitResult{Accepted: accepted, Completed: completed}
	if !completed {
		result.Message = "documents accepted, but enrollment is not complete until year and courses are selected"
	}
	s.logger.Info("documents submitted",
		zap.String("student_id", studentID),
		zap.Bool("completed", completed))
	return result, nil
}

// Template renders a placeholder PDF for one required document type.
func (s *DocumentService) Template(ctx context.Context, studentID string, docType models.DocumentType) ([]byte, string, error) {
	if !models.ValidDocumentType(docType) {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unknown document type: "+string(docType))
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	doc := export.Document{
		Title: templateTitle(docType),
		Preamble: []export.Field{
			{Label: "Student", Value: student.FirstName + " " + student.LastName},
			{Label: "JMBAG", Value: student.Jmbag},
			{Label: "Email", Value: student.Email},
			{Label: "Academic year", Value: fmt.Sprintf("%d", student.EnrolledYear)},
		},
	}
	data, err := s.pdf.Render(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	filename := strings.ToLower(string(docType)) + ".pdf"
	return data, filename, nil
}

func templateTitle(docType models.DocumentType) string {
	switch docType {
	case models.DocumentEnrollmentForm:
		return "Enrollment form"
	case models.DocumentPaymentSlip:
		return "Payment slip"
	case models.DocumentPaymentConfirmation:
		return "Payment confirmation"
	}
	return string(docType)
}
