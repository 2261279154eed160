package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studomat-dev/studomat-api/internal/models"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
)

type enrollmentLedger interface {
	HistoryFor(ctx context.Context, studentID string) (models.StudentHistory, error)
	ListActiveForSemesters(ctx context.Context, studentID string, semesters []int) ([]models.EnrollmentDetail, error)
	ReplaceActiveForSemesters(ctx context.Context, studentID string, semesters []int, rows []models.Enrollment, markSelected bool) error
	SetYear(ctx context.Context, studentID string, year int, repeating bool, module *string) error
}

type catalogReader interface {
	ListBySemester(ctx context.Context, semester int) ([]models.Course, error)
	FindByNames(ctx context.Context, names []string) ([]models.Course, error)
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// SelectYearRequest is the year-selection payload.
type SelectYearRequest struct {
	Year          int     `json:"year" validate:"required,min=1,max=3"`
	RepeatingYear *bool   `json:"repeating_year,omitempty"`
	Module        *string `json:"module,omitempty"`
}

// SelectCoursesRequest carries explicit course-name picks per semester slot.
type SelectCoursesRequest struct {
	Winter []string `json:"winter"`
	Summer []string `json:"summer"`
}

// CandidateCourse is one selectable course for the picker UI, flagged with
// why it may be unavailable.
type CandidateCourse struct {
	models.Course
	Retake              bool `json:"retake"`
	PrerequisiteBlocked bool `json:"prerequisite_blocked"`
}

// Candidates lists the selectable courses for both slots of a target year.
type Candidates struct {
	Year   int               `json:"year"`
	Winter []CandidateCourse `json:"winter"`
	Summer []CandidateCourse `json:"summer"`
}

// EnrollmentService drives the enrollment workflow: year selection, explicit
// course selection, planner auto-fill and the active-load projection.
type EnrollmentService struct {
	ledger    enrollmentLedger
	catalog   catalogReader
	students  enrollmentStudentReader
	planner   *LoadPlanner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(ledger enrollmentLedger, catalog catalogReader, students enrollmentStudentReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		ledger:    ledger,
		catalog:   catalog,
		students:  students,
		planner:   NewLoadPlanner(),
		validator: validate,
		logger:    logger,
	}
}

// SelectYear records the student's target year, wiping any previous ACTIVE
// rows for the new target semesters and resetting the downstream steps.
func (s *EnrollmentService) SelectYear(ctx context.Context, studentID string, req SelectYearRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year selection")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	// Omitted fields keep their current values. Modules only exist in year 3.
	repeating := student.RepeatingYear
	if req.RepeatingYear != nil {
		repeating = *req.RepeatingYear
	}
	module := req.Module
	if module == nil {
		module = student.Module
	}
	if req.Year != 3 {
		module = nil
	}

	if err := s.ledger.SetYear(ctx, studentID, req.Year, repeating, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select year")
	}
	s.logger.Info("year selected",
		zap.String("student_id", studentID),
		zap.Int("year", req.Year),
		zap.Bool("repeating", repeating))

	updated, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}
	return updated, nil
}

// SelectCourses validates an explicit per-slot course-name selection and, if
// every name passes, atomically replaces the student's active load. All
// offending items are collected before rejecting; nothing is persisted on
// failure.
func (s *EnrollmentService) SelectCourses(ctx context.Context, studentID string, req SelectCoursesRequest) (*models.ActiveLoad, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if !student.YearSelected {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "year must be selected before choosing courses")
	}

	var details []string
	if len(req.Winter) > MaxCoursesPerSemester {
		details = append(details, fmt.Sprintf("winter slot has %d courses, maximum is %d", len(req.Winter), MaxCoursesPerSemester))
	}
	if len(req.Summer) > MaxCoursesPerSemester {
		details = append(details, fmt.Sprintf("summer slot has %d courses, maximum is %d", len(req.Summer), MaxCoursesPerSemester))
	}

	all := make([]string, 0, len(req.Winter)+len(req.Summer))
	all = append(all, req.Winter...)
	all = append(all, req.Summer...)

	seen := make(map[string]struct{}, len(all))
	for _, name := range all {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := seen[key]; dup {
			details = append(details, fmt.Sprintf("duplicate course: %s", name))
			continue
		}
		seen[key] = struct{}{}
	}

	resolved, err := s.catalog.FindByNames(ctx, all)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve courses")
	}
	byName := make(map[string]models.Course, len(resolved))
	for _, course := range resolved {
		byName[strings.ToLower(course.Name)] = course
	}

	var unknown []string
	for _, name := range all {
		if _, ok := byName[strings.ToLower(strings.TrimSpace(name))]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrUnknownCourses, unknown)
	}

	history, err := s.ledger.HistoryFor(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	odd, even := models.SemestersForYear(student.EnrolledYear)
	slots := []struct {
		semester int
		label    string
		names    []string
	}{
		{odd, "winter", req.Winter},
		{even, "summer", req.Summer},
	}

	var rows []models.Enrollment
	processed := make(map[string]struct{}, len(all))
	for _, slot := range slots {
		ects := 0
		for _, name := range slot.names {
			key := strings.ToLower(strings.TrimSpace(name))
			if _, done := processed[key]; done {
				continue
			}
			processed[key] = struct{}{}
			course, ok := byName[key]
			if !ok {
				continue
			}
			if history.Passed(course.ID) {
				details = append(details, fmt.Sprintf("already passed: %s", course.Name))
				continue
			}
			if course.PrerequisiteID != nil && !history.Passed(*course.PrerequisiteID) {
				details = append(details, fmt.Sprintf("prerequisite not passed for: %s", course.Name))
				continue
			}
			ects += course.ECTS
			rows = append(rows, models.Enrollment{
				StudentID:        studentID,
				CourseID:         course.ID,
				Status:           models.EnrollmentStatusActive,
				AssignedYear:     student.EnrolledYear,
				AssignedSemester: slot.semester,
			})
		}
		if ects > MaxECTSPerSemester {
			details = append(details, fmt.Sprintf("%s slot has %d ECTS, maximum is %d", slot.label, ects, MaxECTSPerSemester))
		}
	}

	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidSelection, details)
	}

	if err := s.ledger.ReplaceActiveForSemesters(ctx, studentID, []int{odd, even}, rows, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")
	}
	s.logger.Info("courses selected",
		zap.String("student_id", studentID),
		zap.Int("count", len(rows)))

	return s.ActiveLoad(ctx, studentID)
}

// AutoFill plans and persists the active load for the student's enrolled year
// using the load planner, silently skipping candidates that do not fit.
func (s *EnrollmentService) AutoFill(ctx context.Context, studentID string) (*models.ActiveLoad, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if !student.YearSelected {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "year must be selected before choosing courses")
	}

	history, err := s.ledger.HistoryFor(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	odd, even := models.SemestersForYear(student.EnrolledYear)
	winterCourses, err := s.catalog.ListBySemester(ctx, odd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	summerCourses, err := s.catalog.ListBySemester(ctx, even)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	plan := s.planner.BuildPlan(student.EnrolledYear, winterCourses, summerCourses, history, student.RepeatingYear)
	if err := s.ledger.ReplaceActiveForSemesters(ctx, studentID, []int{odd, even}, plan.Rows(studentID), true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save plan")
	}
	s.logger.Info("auto-filled active load",
		zap.String("student_id", studentID),
		zap.Int("winter_courses", len(plan.Winter.Courses)),
		zap.Int("summer_courses", len(plan.Summer.Courses)))

	return s.ActiveLoad(ctx, studentID)
}

// ActiveLoad projects the student's current ACTIVE rows into the two slots of
// their enrolled year with per-slot counts and ECTS sums.
func (s *EnrollmentService) ActiveLoad(ctx context.Context, studentID string) (*models.ActiveLoad, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	odd, even := models.SemestersForYear(student.EnrolledYear)
	active, err := s.ledger.ListActiveForSemesters(ctx, studentID, []int{odd, even})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active courses")
	}

	load := &models.ActiveLoad{
		StudentID:    studentID,
		EnrolledYear: student.EnrolledYear,
		Winter:       models.SlotLoad{Semester: odd, Courses: []models.EnrollmentDetail{}},
		Summer:       models.SlotLoad{Semester: even, Courses: []models.EnrollmentDetail{}},
	}
	for _, row := range active {
		if models.WinterSemester(row.AssignedSemester) {
			load.Winter.Courses = append(load.Winter.Courses, row)
			load.Winter.Count++
			load.Winter.ECTS += row.CourseECTS
		} else {
			load.Summer.Courses = append(load.Summer.Courses, row)
			load.Summer.Count++
			load.Summer.ECTS += row.CourseECTS
		}
	}
	return load, nil
}

// Candidates lists what the student could pick for their enrolled year:
// outstanding retakes by parity plus the catalog of the target semesters,
// each flagged when a missing prerequisite blocks it.
func (s *EnrollmentService) Candidates(ctx context.Context, studentID string) (*Candidates, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	history, err := s.ledger.HistoryFor(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	odd, even := models.SemestersForYear(student.EnrolledYear)
	result := &Candidates{Year: student.EnrolledYear}

	for _, slot := range []struct {
		semester int
		out      *[]CandidateCourse
	}{
		{odd, &result.Winter},
		{even, &result.Summer},
	} {
		seen := make(map[string]struct{})
		for _, course := range retakeCandidates(slot.semester, history, student.RepeatingYear) {
			if _, ok := seen[course.ID]; ok {
				continue
			}
			if history.Passed(course.ID) {
				continue
			}
			seen[course.ID] = struct{}{}
			*slot.out = append(*slot.out, CandidateCourse{
				Course:              course,
				Retake:              true,
				PrerequisiteBlocked: course.PrerequisiteID != nil && !history.Passed(*course.PrerequisiteID),
			})
		}

		catalog, err := s.catalog.ListBySemester(ctx, slot.semester)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
		}
		for _, course := range catalog {
			if _, ok := seen[course.ID]; ok {
				continue
			}
			if history.Passed(course.ID) {
				continue
			}
			seen[course.ID] = struct{}{}
			*slot.out = append(*slot.out, CandidateCourse{
				Course:              course,
				PrerequisiteBlocked: course.PrerequisiteID != nil && !history.Passed(*course.PrerequisiteID),
			})
		}
	}
	return result, nil
}

// FailedByParity groups the student's outstanding failed courses by slot
// parity, earliest assigned semester first.
func (s *EnrollmentService) FailedByParity(ctx context.Context, studentID string) (winter, summer []models.EnrollmentDetail, err error) {
	history, err := s.ledger.HistoryFor(ctx, studentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	semesters := make([]int, 0, len(history.FailedBySemester))
	for sem := range history.FailedBySemester {
		semesters = append(semesters, sem)
	}
	sort.Ints(semesters)

	for _, sem := range semesters {
		for _, row := range history.FailedBySemester[sem] {
			if history.Passed(row.CourseID) {
				continue
			}
			if models.WinterSemester(sem) {
				winter = append(winter, row)
			} else {
				summer = append(summer, row)
			}
		}
	}
	return winter, summer, nil
}
