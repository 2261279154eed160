package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studomat-dev/studomat-api/internal/models"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type studentLedgerReader interface {
	ListForStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// GroupedEnrollments buckets a student's ledger rows by status.
type GroupedEnrollments struct {
	Active []models.EnrollmentDetail `json:"active"`
	Passed []models.EnrollmentDetail `json:"passed"`
	Failed []models.EnrollmentDetail `json:"failed"`
}

// StudentProfile is the full student read: the record plus the grouped
// ledger and the per-slot active load of the enrolled year.
type StudentProfile struct {
	Student     *models.Student    `json:"student"`
	Enrollments GroupedEnrollments `json:"enrollments"`
	ActiveLoad  models.ActiveLoad  `json:"active_load"`
}

// StudentService serves student reads.
type StudentService struct {
	repo      studentRepository
	ledger    studentLedgerReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, ledger studentLedgerReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, ledger: ledger, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns the full profile of one student.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentProfile, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	rows, err := s.ledger.ListForStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	odd, even := models.SemestersForYear(student.EnrolledYear)
	profile := &StudentProfile{
		Student: student,
		Enrollments: GroupedEnrollments{
			Active: []models.EnrollmentDetail{},
			Passed: []models.EnrollmentDetail{},
			Failed: []models.EnrollmentDetail{},
		},
		ActiveLoad: models.ActiveLoad{
			StudentID:    id,
			EnrolledYear: student.EnrolledYear,
			Winter:       models.SlotLoad{Semester: odd, Courses: []models.EnrollmentDetail{}},
			Summer:       models.SlotLoad{Semester: even, Courses: []models.EnrollmentDetail{}},
		},
	}

	for _, row := range rows {
		switch row.Status {
		case models.EnrollmentStatusActive:
			profile.Enrollments.Active = append(profile.Enrollments.Active, row)
			if models.WinterSemester(row.AssignedSemester) {
				profile.ActiveLoad.Winter.Courses = append(profile.ActiveLoad.Winter.Courses, row)
				profile.ActiveLoad.Winter.Count++
				profile.ActiveLoad.Winter.ECTS += row.CourseECTS
			} else {
				profile.ActiveLoad.Summer.Courses = append(profile.ActiveLoad.Summer.Courses, row)
				profile.ActiveLoad.Summer.Count++
				profile.ActiveLoad.Summer.ECTS += row.CourseECTS
			}
		case models.EnrollmentStatusPassed:
			profile.Enrollments.Passed = append(profile.Enrollments.Passed, row)
		case models.EnrollmentStatusFailed:
			profile.Enrollments.Failed = append(profile.Enrollments.Failed, row)
		}
	}
	return profile, nil
}

// Summary returns only the student record with its cached counters.
func (s *StudentService) Summary(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}
