package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studomat-dev/studomat-api/internal/models"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/export"
)

type activeLoadProvider interface {
	ActiveLoad(ctx context.Context, studentID string) (*models.ActiveLoad, error)
}

type exportStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type loadRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportFormat selects the rendering of a download.
type ExportFormat string

// Supported export formats.
const (
	ExportPDF ExportFormat = "pdf"
	ExportCSV ExportFormat = "csv"
)

// ExportResult is a rendered download.
type ExportResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportService renders a student's active load as a downloadable document.
type ExportService struct {
	loads    activeLoadProvider
	students exportStudentReader
	pdf      loadRenderer
	csv      loadRenderer
	logger   *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(loads activeLoadProvider, students exportStudentReader, pdf, csv loadRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{loads: loads, students: students, pdf: pdf, csv: csv, logger: logger}
}

// ActiveLoad renders the per-slot active load of one student.
func (s *ExportService) ActiveLoad(ctx context.Context, studentID string, format ExportFormat) (*ExportResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	load, err := s.loads.ActiveLoad(ctx, studentID)
	if err != nil {
		return nil, err
	}

	doc := buildActiveLoadDocument(student, load)
	switch format {
	case ExportPDF:
		data, err := s.pdf.Render(doc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Data: data, Filename: exportFilename(student, "pdf"), ContentType: "application/pdf"}, nil
	case ExportCSV:
		data, err := s.csv.Render(doc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Data: data, Filename: exportFilename(student, "csv"), ContentType: "text/csv"}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+string(format))
}

func buildActiveLoadDocument(student *models.Student, load *models.ActiveLoad) export.Document {
	doc := export.Document{
		Title: "Active course load",
		Preamble: []export.Field{
			{Label: "Student", Value: student.FirstName + " " + student.LastName},
			{Label: "JMBAG", Value: student.Jmbag},
			{Label: "Academic year", Value: fmt.Sprintf("%d", load.EnrolledYear)},
			{Label: "Generated", Value: time.Now().UTC().Format("2006-01-02")},
		},
	}
	for _, slot := range []struct {
		heading string
		load    models.SlotLoad
	}{
		{"Winter semester", load.Winter},
		{"Summer semester", load.Summer},
	} {
		section := export.Section{
			Heading: fmt.Sprintf("%s (%d): %d courses, %d ECTS", slot.heading, slot.load.Semester, slot.load.Count, slot.load.ECTS),
			Headers: []string{"Course", "ECTS", "Semester"},
		}
		for _, row := range slot.load.Courses {
			section.Rows = append(section.Rows, []string{
				row.CourseName,
				fmt.Sprintf("%d", row.CourseECTS),
				fmt.Sprintf("%d", row.AssignedSemester),
			})
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}

func exportFilename(student *models.Student, ext string) string {
	return fmt.Sprintf("active-load-%s.%s", student.Jmbag, ext)
}
