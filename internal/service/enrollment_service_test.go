package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studomat-dev/studomat-api/internal/models"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
)

type mockLedger struct {
	history           models.StudentHistory
	active            []models.EnrollmentDetail
	replaced          []models.Enrollment
	replacedSemesters []int
	replaceCalls      int
	markSelected      bool
	yearSet           *struct {
		year      int
		repeating bool
		module    *string
	}
}

func (m *mockLedger) HistoryFor(ctx context.Context, studentID string) (models.StudentHistory, error) {
	if m.history.PassedCourseIDs == nil {
		m.history.PassedCourseIDs = make(map[string]struct{})
	}
	if m.history.FailedBySemester == nil {
		m.history.FailedBySemester = make(map[int][]models.EnrollmentDetail)
	}
	return m.history, nil
}

func (m *mockLedger) ListActiveForSemesters(ctx context.Context, studentID string, semesters []int) ([]models.EnrollmentDetail, error) {
	return m.active, nil
}

func (m *mockLedger) ReplaceActiveForSemesters(ctx context.Context, studentID string, semesters []int, rows []models.Enrollment, markSelected bool) error {
	m.replaceCalls++
	m.replaced = rows
	m.replacedSemesters = semesters
	m.markSelected = markSelected
	return nil
}

func (m *mockLedger) SetYear(ctx context.Context, studentID string, year int, repeating bool, module *string) error {
	m.yearSet = &struct {
		year      int
		repeating bool
		module    *string
	}{year, repeating, module}
	return nil
}

type mockCatalog struct {
	bySemester map[int][]models.Course
}

func (m *mockCatalog) ListBySemester(ctx context.Context, semester int) ([]models.Course, error) {
	return m.bySemester[semester], nil
}

func (m *mockCatalog) FindByNames(ctx context.Context, names []string) ([]models.Course, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	var found []models.Course
	for _, courses := range m.bySemester {
		for _, c := range courses {
			if _, ok := wanted[strings.ToLower(c.Name)]; ok {
				found = append(found, c)
			}
		}
	}
	return found, nil
}

type mockEnrollmentStudents struct {
	students map[string]*models.Student
}

func (m *mockEnrollmentStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return m.students[id], nil
}

func catalogCourse(id, name string, ects, semester int, prerequisiteID *string) models.Course {
	return models.Course{
		ID:             id,
		Name:           name,
		ECTS:           ects,
		Semester:       semester,
		Year:           (semester + 1) / 2,
		PrerequisiteID: prerequisiteID,
	}
}

func newEnrollmentFixture(student *models.Student) (*EnrollmentService, *mockLedger, *mockCatalog) {
	ledger := &mockLedger{}
	catalog := &mockCatalog{bySemester: make(map[int][]models.Course)}
	students := &mockEnrollmentStudents{students: map[string]*models.Student{}}
	if student != nil {
		students.students[student.ID] = student
	}
	svc := NewEnrollmentService(ledger, catalog, students, nil, nil)
	return svc, ledger, catalog
}

func TestSelectYearClearsModuleOutsideYearThree(t *testing.T) {
	module := "RI"
	student := &models.Student{ID: "stud-1", EnrolledYear: 3, Module: &module}
	svc, ledger, _ := newEnrollmentFixture(student)

	_, err := svc.SelectYear(context.Background(), "stud-1", SelectYearRequest{Year: 2, Module: &module})

	require.NoError(t, err)
	require.NotNil(t, ledger.yearSet)
	assert.Equal(t, 2, ledger.yearSet.year)
	assert.Nil(t, ledger.yearSet.module)
}

func TestSelectYearUpdatesStudent(t *testing.T) {
	student := &models.Student{ID: "stud-1"}
	svc, ledger, _ := newEnrollmentFixture(student)

	module := "RI"
	repeating := true
	_, err := svc.SelectYear(context.Background(), "stud-1", SelectYearRequest{Year: 3, RepeatingYear: &repeating, Module: &module})

	require.NoError(t, err)
	require.NotNil(t, ledger.yearSet)
	assert.Equal(t, 3, ledger.yearSet.year)
	assert.True(t, ledger.yearSet.repeating)
	require.NotNil(t, ledger.yearSet.module)
	assert.Equal(t, "RI", *ledger.yearSet.module)
}

func TestSelectYearKeepsOmittedFields(t *testing.T) {
	module := "PI"
	student := &models.Student{ID: "stud-1", EnrolledYear: 3, RepeatingYear: true, Module: &module}
	svc, ledger, _ := newEnrollmentFixture(student)

	_, err := svc.SelectYear(context.Background(), "stud-1", SelectYearRequest{Year: 3})

	require.NoError(t, err)
	require.NotNil(t, ledger.yearSet)
	assert.True(t, ledger.yearSet.repeating)
	require.NotNil(t, ledger.yearSet.module)
	assert.Equal(t, "PI", *ledger.yearSet.module)
}

func TestSelectYearUnknownStudent(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(nil)

	_, err := svc.SelectYear(context.Background(), "missing", SelectYearRequest{Year: 1})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSelectCoursesRequiresYearSelected(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 1}
	svc, ledger, _ := newEnrollmentFixture(student)

	_, err := svc.SelectCourses(context.Background(), "stud-1", SelectCoursesRequest{Winter: []string{"Matematika 1"}})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Zero(t, ledger.replaceCalls)
}

func TestSelectCoursesUnknownNamesListedNoWrite(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 1, YearSelected: true}
	svc, ledger, catalog := newEnrollmentFixture(student)
	catalog.bySemester[1] = []models.Course{catalogCourse("c1", "Matematika 1", 6, 1, nil)}

	_, err := svc.SelectCourses(context.Background(), "stud-1", SelectCoursesRequest{
		Winter: []string{"Matematika 1", "Ne Postoji"},
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnknownCourses.Code, appErr.Code)
	assert.Equal(t, []string{"Ne Postoji"}, appErr.Details)
	assert.Zero(t, ledger.replaceCalls)
}

func TestSelectCoursesCollectsAllViolations(t *testing.T) {
	prereq := "c-base"
	student := &models.Student{ID: "stud-1", EnrolledYear: 2, YearSelected: true}
	svc, ledger, catalog := newEnrollmentFixture(student)
	catalog.bySemester[3] = []models.Course{
		catalogCourse("c-passed", "Matematika 1", 6, 3, nil),
		catalogCourse("c-blocked", "Matematika 3", 6, 3, &prereq),
	}
	ledger.history = models.StudentHistory{
		PassedCourseIDs:  map[string]struct{}{"c-passed": {}},
		FailedBySemester: map[int][]models.EnrollmentDetail{},
	}

	_, err := svc.SelectCourses(context.Background(), "stud-1", SelectCoursesRequest{
		Winter: []string{"Matematika 1", "Matematika 3", "matematika 3"},
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidSelection.Code, appErr.Code)
	require.Len(t, appErr.Details, 3)
	assert.Contains(t, appErr.Details[0], "duplicate course")
	assert.Contains(t, appErr.Details[1], "already passed")
	assert.Contains(t, appErr.Details[2], "prerequisite not passed")
	assert.Zero(t, ledger.replaceCalls)
}

func TestSelectCoursesECTSOverCapRejected(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 1, YearSelected: true}
	svc, ledger, catalog := newEnrollmentFixture(student)
	catalog.bySemester[1] = []models.Course{
		catalogCourse("c1", "Kurs A", 12, 1, nil),
		catalogCourse("c2", "Kurs B", 12, 1, nil),
		catalogCourse("c3", "Kurs C", 12, 1, nil),
	}

	_, err := svc.SelectCourses(context.Background(), "stud-1", SelectCoursesRequest{
		Winter: []string{"Kurs A", "Kurs B", "Kurs C"},
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidSelection.Code, appErr.Code)
	require.Len(t, appErr.Details, 1)
	assert.Contains(t, appErr.Details[0], "36 ECTS")
	assert.Zero(t, ledger.replaceCalls)
}

func TestSelectCoursesPersistsValidSelection(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 2, YearSelected: true}
	svc, ledger, catalog := newEnrollmentFixture(student)
	catalog.bySemester[3] = []models.Course{catalogCourse("c3", "Baze Podataka", 6, 3, nil)}
	catalog.bySemester[4] = []models.Course{catalogCourse("c4", "Web Programiranje", 6, 4, nil)}

	_, err := svc.SelectCourses(context.Background(), "stud-1", SelectCoursesRequest{
		Winter: []string{"Baze Podataka"},
		Summer: []string{"Web Programiranje"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, ledger.replaceCalls)
	assert.True(t, ledger.markSelected)
	assert.Equal(t, []int{3, 4}, ledger.replacedSemesters)
	require.Len(t, ledger.replaced, 2)
	assert.Equal(t, 3, ledger.replaced[0].AssignedSemester)
	assert.Equal(t, 2, ledger.replaced[0].AssignedYear)
	assert.Equal(t, 4, ledger.replaced[1].AssignedSemester)
}

func TestAutoFillSkipsSilentlyAndPersists(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 1, YearSelected: true}
	svc, ledger, catalog := newEnrollmentFixture(student)
	catalog.bySemester[1] = []models.Course{
		catalogCourse("c-passed", "Matematika 1", 6, 1, nil),
		catalogCourse("c-new", "Programiranje 1", 6, 1, nil),
	}
	ledger.history = models.StudentHistory{
		PassedCourseIDs:  map[string]struct{}{"c-passed": {}},
		FailedBySemester: map[int][]models.EnrollmentDetail{},
	}

	_, err := svc.AutoFill(context.Background(), "stud-1")

	require.NoError(t, err)
	assert.Equal(t, 1, ledger.replaceCalls)
	assert.True(t, ledger.markSelected)
	require.Len(t, ledger.replaced, 1)
	assert.Equal(t, "c-new", ledger.replaced[0].CourseID)
}

func TestAutoFillPrefersRetakes(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 2, YearSelected: true}
	svc, ledger, catalog := newEnrollmentFixture(student)
	catalog.bySemester[3] = []models.Course{
		catalogCourse("n1", "Kurs A", 6, 3, nil),
		catalogCourse("n2", "Kurs B", 6, 3, nil),
	}
	ledger.history = models.StudentHistory{
		PassedCourseIDs: map[string]struct{}{},
		FailedBySemester: map[int][]models.EnrollmentDetail{
			1: {failedDetail("f1", 4, 1, 1, nil)},
		},
	}

	_, err := svc.AutoFill(context.Background(), "stud-1")

	require.NoError(t, err)
	require.Len(t, ledger.replaced, 3)
	assert.Equal(t, "f1", ledger.replaced[0].CourseID)
	assert.Equal(t, 3, ledger.replaced[0].AssignedSemester)
}

func TestActiveLoadSplitsSlots(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 1}
	svc, ledger, _ := newEnrollmentFixture(student)
	ledger.active = []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{CourseID: "a", AssignedSemester: 1}, CourseECTS: 6},
		{Enrollment: models.Enrollment{CourseID: "b", AssignedSemester: 1}, CourseECTS: 5},
		{Enrollment: models.Enrollment{CourseID: "c", AssignedSemester: 2}, CourseECTS: 4},
	}

	load, err := svc.ActiveLoad(context.Background(), "stud-1")

	require.NoError(t, err)
	assert.Equal(t, 1, load.Winter.Semester)
	assert.Equal(t, 2, load.Winter.Count)
	assert.Equal(t, 11, load.Winter.ECTS)
	assert.Equal(t, 2, load.Summer.Semester)
	assert.Equal(t, 1, load.Summer.Count)
	assert.Equal(t, 4, load.Summer.ECTS)
}

func TestCandidatesFlagsRetakesAndBlocked(t *testing.T) {
	prereq := "missing"
	student := &models.Student{ID: "stud-1", EnrolledYear: 2}
	svc, ledger, catalog := newEnrollmentFixture(student)
	catalog.bySemester[3] = []models.Course{
		catalogCourse("n1", "Kurs A", 6, 3, nil),
		catalogCourse("n2", "Kurs B", 6, 3, &prereq),
	}
	ledger.history = models.StudentHistory{
		PassedCourseIDs: map[string]struct{}{},
		FailedBySemester: map[int][]models.EnrollmentDetail{
			1: {failedDetail("f1", 4, 1, 1, nil)},
		},
	}

	candidates, err := svc.Candidates(context.Background(), "stud-1")

	require.NoError(t, err)
	require.Len(t, candidates.Winter, 3)
	assert.Equal(t, "f1", candidates.Winter[0].ID)
	assert.True(t, candidates.Winter[0].Retake)
	assert.False(t, candidates.Winter[1].PrerequisiteBlocked)
	assert.True(t, candidates.Winter[2].PrerequisiteBlocked)
}

func TestFailedByParityExcludesLaterPasses(t *testing.T) {
	student := &models.Student{ID: "stud-1", EnrolledYear: 2}
	svc, ledger, _ := newEnrollmentFixture(student)
	ledger.history = models.StudentHistory{
		PassedCourseIDs: map[string]struct{}{"recovered": {}},
		FailedBySemester: map[int][]models.EnrollmentDetail{
			1: {failedDetail("recovered", 4, 1, 1, nil), failedDetail("still-failed", 4, 1, 1, nil)},
			2: {failedDetail("even-failed", 4, 2, 2, nil)},
		},
	}

	winter, summer, err := svc.FailedByParity(context.Background(), "stud-1")

	require.NoError(t, err)
	require.Len(t, winter, 1)
	assert.Equal(t, "still-failed", winter[0].CourseID)
	require.Len(t, summer, 1)
	assert.Equal(t, "even-failed", summer[0].CourseID)
}
