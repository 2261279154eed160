package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studomat-dev/studomat-api/internal/models"
	"github.com/studomat-dev/studomat-api/pkg/config"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/export"
)

type mockDocumentRepo struct {
	created    *models.StudentDocument
	listed     []models.StudentDocument
	latest     map[models.DocumentType]models.StudentDocument
	byID       map[string]*models.StudentDocument
	acceptedID []string
	completed  bool
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.StudentDocument) error {
	doc.ID = "doc-new"
	m.created = doc
	return nil
}

func (m *mockDocumentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	return m.listed, nil
}

func (m *mockDocumentRepo) LatestByType(ctx context.Context, studentID string) (map[models.DocumentType]models.StudentDocument, error) {
	return m.latest, nil
}

func (m *mockDocumentRepo) MarkAccepted(ctx context.Context, studentID string, documentIDs []string) (bool, error) {
	m.acceptedID = documentIDs
	return m.completed, nil
}

func (m *mockDocumentRepo) FindByID(ctx context.Context, id string) (*models.StudentDocument, error) {
	return m.byID[id], nil
}

type mockDocumentStorage struct {
	saved string
	files map[string]string
}

func (m *mockDocumentStorage) SaveStream(studentID, filename string, r io.Reader) (string, error) {
	m.saved = studentID + "/" + filename
	return m.saved, nil
}

func (m *mockDocumentStorage) Open(rel string) (io.ReadCloser, error) {
	content, ok := m.files[rel]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type mockPDFRenderer struct{}

func (mockPDFRenderer) Render(doc export.Document) ([]byte, error) {
	return []byte("%PDF-" + doc.Title), nil
}

func newDocumentFixture(student *models.Student) (*DocumentService, *mockDocumentRepo, *mockDocumentStorage) {
	repo := &mockDocumentRepo{latest: map[models.DocumentType]models.StudentDocument{}}
	store := &mockDocumentStorage{}
	students := &mockEnrollmentStudents{students: map[string]*models.Student{}}
	if student != nil {
		students.students[student.ID] = student
	}
	cfg := config.DocumentsConfig{StorageDir: "./uploads", MaxFileSizeBytes: 1024}
	svc := NewDocumentService(repo, students, store, mockPDFRenderer{}, cfg, nil, nil)
	return svc, repo, store
}

func TestDocumentUploadStoresPDF(t *testing.T) {
	student := &models.Student{ID: "stud-1"}
	svc, repo, store := newDocumentFixture(student)

	doc, err := svc.Upload(context.Background(), "stud-1", UploadDocumentInput{
		Type:     models.DocumentPaymentSlip,
		Filename: "uplatnica.pdf",
		Mime:     "application/pdf",
		Size:     512,
		Content:  strings.NewReader("%PDF-1.4"),
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-new", doc.ID)
	assert.Equal(t, models.DocumentPaymentSlip, repo.created.Type)
	assert.NotEmpty(t, store.saved)
	assert.False(t, doc.Accepted)
}

func TestDocumentUploadRejectsNonPDF(t *testing.T) {
	svc, _, _ := newDocumentFixture(&models.Student{ID: "stud-1"})

	_, err := svc.Upload(context.Background(), "stud-1", UploadDocumentInput{
		Type:    models.DocumentPaymentSlip,
		Mime:    "image/png",
		Size:    100,
		Content: strings.NewReader("png"),
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentUploadRejectsOversize(t *testing.T) {
	svc, _, _ := newDocumentFixture(&models.Student{ID: "stud-1"})

	_, err := svc.Upload(context.Background(), "stud-1", UploadDocumentInput{
		Type:    models.DocumentPaymentSlip,
		Mime:    "application/pdf",
		Size:    4096,
		Content: strings.NewReader("%PDF"),
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentSubmitListsMissingTypes(t *testing.T) {
	svc, repo, _ := newDocumentFixture(&models.Student{ID: "stud-1"})
	repo.latest = map[models.DocumentType]models.StudentDocument{
		models.DocumentEnrollmentForm: {ID: "doc-1", Type: models.DocumentEnrollmentForm},
		models.DocumentPaymentSlip:    {ID: "doc-2", Type: models.DocumentPaymentSlip},
	}

	_, err := svc.Submit(context.Background(), "stud-1")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrMissingDocuments.Code, appErr.Code)
	assert.Equal(t, []string{"potvrdaUplatnice"}, appErr.Details)
	assert.Nil(t, repo.acceptedID)
}

func TestDocumentSubmitAcceptsLatestOfEachType(t *testing.T) {
	svc, repo, _ := newDocumentFixture(&models.Student{ID: "stud-1"})
	repo.latest = map[models.DocumentType]models.StudentDocument{
		models.DocumentEnrollmentForm:      {ID: "doc-1", Type: models.DocumentEnrollmentForm},
		models.DocumentPaymentSlip:         {ID: "doc-2", Type: models.DocumentPaymentSlip},
		models.DocumentPaymentConfirmation: {ID: "doc-3", Type: models.DocumentPaymentConfirmation},
	}
	repo.completed = true

	result, err := svc.Submit(context.Background(), "stud-1")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc-1", "doc-2", "doc-3"}, repo.acceptedID)
	assert.True(t, result.Completed)
	assert.Empty(t, result.Message)
}

func TestDocumentSubmitAcceptsWithoutCompleting(t *testing.T) {
	svc, repo, _ := newDocumentFixture(&models.Student{ID: "stud-1"})
	repo.latest = map[models.DocumentType]models.StudentDocument{
		models.DocumentEnrollmentForm:      {ID: "doc-1", Type: models.DocumentEnrollmentForm},
		models.DocumentPaymentSlip:         {ID: "doc-2", Type: models.DocumentPaymentSlip},
		models.DocumentPaymentConfirmation: {ID: "doc-3", Type: models.DocumentPaymentConfirmation},
	}
	repo.completed = false

	result, err := svc.Submit(context.Background(), "stud-1")

	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.NotEmpty(t, result.Message)
	assert.Len(t, result.Accepted, 3)
}

func TestDocumentTemplateRendersPerType(t *testing.T) {
	svc, _, _ := newDocumentFixture(&models.Student{ID: "stud-1", FirstName: "Iva", LastName: "Kovač", Jmbag: "0036512345"})

	data, filename, err := svc.Template(context.Background(), "stud-1", models.DocumentPaymentSlip)

	require.NoError(t, err)
	assert.Equal(t, "uplatnica.pdf", filename)
	assert.Contains(t, string(data), "Payment slip")
}

func TestDocumentDownloadReturnsStoredFile(t *testing.T) {
	svc, repo, store := newDocumentFixture(&models.Student{ID: "stud-1"})
	repo.byID = map[string]*models.StudentDocument{
		"doc-1": {ID: "doc-1", StudentID: "stud-1", Filename: "uplatnica.pdf", Path: "stud-1/uplatnica.pdf", Mime: "application/pdf"},
	}
	store.files = map[string]string{"stud-1/uplatnica.pdf": "%PDF-stored"}

	doc, data, err := svc.Download(context.Background(), "stud-1", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "uplatnica.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.Mime)
	assert.Equal(t, "%PDF-stored", string(data))
}

func TestDocumentDownloadHidesForeignDocuments(t *testing.T) {
	svc, repo, _ := newDocumentFixture(&models.Student{ID: "stud-1"})
	repo.byID = map[string]*models.StudentDocument{
		"doc-9": {ID: "doc-9", StudentID: "stud-2", Path: "stud-2/uplatnica.pdf"},
	}

	_, _, err := svc.Download(context.Background(), "stud-1", "doc-9")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
