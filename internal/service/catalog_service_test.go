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

type mockCourseRepo struct {
	byID     map[string]*models.CourseDetail
	byName   map[string]*models.Course
	counts   map[models.EnrollmentStatus]int
	created  *models.Course
	updated  *models.Course
	listRows []models.CourseDetail
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	return m.listRows, len(m.listRows), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	return m.byID[id], nil
}

func (m *mockCourseRepo) FindByName(ctx context.Context, name string) (*models.Course, error) {
	return m.byName[strings.ToLower(name)], nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = "course-new"
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.updated = course
	return nil
}

func (m *mockCourseRepo) StatusCounts(ctx context.Context, courseID string) (map[models.EnrollmentStatus]int, error) {
	return m.counts, nil
}

func newCatalogFixture() (*CatalogService, *mockCourseRepo) {
	repo := &mockCourseRepo{
		byID:   map[string]*models.CourseDetail{},
		byName: map[string]*models.Course{},
	}
	return NewCatalogService(repo, nil, nil), repo
}

func TestCatalogCreateDerivesYearAndDefaults(t *testing.T) {
	svc, repo := newCatalogFixture()

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:     "Baze Podataka",
		Holder:   "prof. Novak",
		ECTS:     6,
		Semester: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, course.Year)
	assert.Equal(t, 30, course.Capacity)
	assert.NotNil(t, repo.created)
}

func TestCatalogCreateDuplicateNameRejected(t *testing.T) {
	svc, repo := newCatalogFixture()
	repo.byName["baze podataka"] = &models.Course{ID: "course-1", Name: "Baze Podataka"}

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:     "baze podataka",
		Holder:   "prof. Novak",
		ECTS:     6,
		Semester: 3,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCatalogCreateResolvesPrerequisiteByName(t *testing.T) {
	svc, repo := newCatalogFixture()
	repo.byName["programiranje 1"] = &models.Course{ID: "course-1", Name: "Programiranje 1", Semester: 1}

	prereq := "Programiranje 1"
	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:             "Programiranje 2",
		Holder:           "prof. Novak",
		ECTS:             6,
		Semester:         2,
		PrerequisiteName: &prereq,
	})

	require.NoError(t, err)
	require.NotNil(t, course.PrerequisiteID)
	assert.Equal(t, "course-1", *course.PrerequisiteID)
}

func TestCatalogCreateRejectsLaterSemesterPrerequisite(t *testing.T) {
	svc, repo := newCatalogFixture()
	repo.byName["napredni kurs"] = &models.Course{ID: "course-9", Name: "Napredni Kurs", Semester: 5}

	prereq := "Napredni Kurs"
	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:             "Uvodni Kurs",
		Holder:           "prof. Novak",
		ECTS:             6,
		Semester:         1,
		PrerequisiteName: &prereq,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogCreateUnknownPrerequisite(t *testing.T) {
	svc, _ := newCatalogFixture()

	prereq := "Ne Postoji"
	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:             "Kurs",
		Holder:           "prof. Novak",
		ECTS:             6,
		Semester:         2,
		PrerequisiteName: &prereq,
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Ne Postoji")
}

func TestCatalogGetWithStats(t *testing.T) {
	svc, repo := newCatalogFixture()
	repo.byID["course-1"] = &models.CourseDetail{Course: models.Course{ID: "course-1", Name: "Baze Podataka"}}
	repo.counts = map[models.EnrollmentStatus]int{
		models.EnrollmentStatusActive: 10,
		models.EnrollmentStatusPassed: 25,
	}

	course, err := svc.Get(context.Background(), "course-1")

	require.NoError(t, err)
	assert.Equal(t, 35, course.Stats.TotalEnrollments)
	assert.Equal(t, 10, course.Stats.StatusCounts[models.EnrollmentStatusActive])
}

func TestCatalogUpdateAppliesPatch(t *testing.T) {
	svc, repo := newCatalogFixture()
	repo.byID["course-1"] = &models.CourseDetail{Course: models.Course{ID: "course-1", Name: "Baze Podataka", Holder: "prof. Stari", Capacity: 30}}

	capacity := 45
	_, err := svc.Update(context.Background(), "course-1", UpdateCourseRequest{Capacity: &capacity})

	require.NoError(t, err)
	require.NotNil(t, repo.updated)
	assert.Equal(t, 45, repo.updated.Capacity)
	assert.Equal(t, "prof. Stari", repo.updated.Holder)
}
