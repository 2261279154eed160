package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studomat-dev/studomat-api/internal/models"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/export"
)

type mockLoadProvider struct {
	load *models.ActiveLoad
}

func (m *mockLoadProvider) ActiveLoad(ctx context.Context, studentID string) (*models.ActiveLoad, error) {
	return m.load, nil
}

type recordingRenderer struct {
	doc      export.Document
	rendered []byte
}

func (r *recordingRenderer) Render(doc export.Document) ([]byte, error) {
	r.doc = doc
	return r.rendered, nil
}

func newExportFixture(student *models.Student, load *models.ActiveLoad) (*ExportService, *recordingRenderer, *recordingRenderer) {
	students := &mockEnrollmentStudents{students: map[string]*models.Student{}}
	if student != nil {
		students.students[student.ID] = student
	}
	pdf := &recordingRenderer{rendered: []byte("%PDF")}
	csv := &recordingRenderer{rendered: []byte("Course,ECTS")}
	svc := NewExportService(&mockLoadProvider{load: load}, students, pdf, csv, nil)
	return svc, pdf, csv
}

func exportTestLoad() *models.ActiveLoad {
	return &models.ActiveLoad{
		StudentID:    "stud-1",
		EnrolledYear: 2,
		Winter: models.SlotLoad{Semester: 3, Count: 1, ECTS: 6, Courses: []models.EnrollmentDetail{
			{Enrollment: models.Enrollment{CourseID: "c1", AssignedSemester: 3}, CourseName: "Baze Podataka", CourseECTS: 6},
		}},
		Summer: models.SlotLoad{Semester: 4},
	}
}

func TestExportActiveLoadPDF(t *testing.T) {
	student := &models.Student{ID: "stud-1", FirstName: "Iva", LastName: "Kovač", Jmbag: "0036512345"}
	svc, pdf, _ := newExportFixture(student, exportTestLoad())

	result, err := svc.ActiveLoad(context.Background(), "stud-1", ExportPDF)

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "active-load-0036512345.pdf", result.Filename)
	require.Len(t, pdf.doc.Sections, 2)
	assert.Contains(t, pdf.doc.Sections[0].Heading, "1 courses, 6 ECTS")
	require.Len(t, pdf.doc.Sections[0].Rows, 1)
	assert.Equal(t, "Baze Podataka", pdf.doc.Sections[0].Rows[0][0])
}

func TestExportActiveLoadCSV(t *testing.T) {
	student := &models.Student{ID: "stud-1", Jmbag: "0036512345"}
	svc, _, csv := newExportFixture(student, exportTestLoad())

	result, err := svc.ActiveLoad(context.Background(), "stud-1", ExportCSV)

	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "active-load-0036512345.csv", result.Filename)
	assert.NotEmpty(t, csv.doc.Preamble)
}

func TestExportUnsupportedFormat(t *testing.T) {
	student := &models.Student{ID: "stud-1"}
	svc, _, _ := newExportFixture(student, exportTestLoad())

	_, err := svc.ActiveLoad(context.Background(), "stud-1", ExportFormat("xlsx"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
