package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studomat-dev/studomat-api/internal/models"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
	FindByName(ctx context.Context, name string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	StatusCounts(ctx context.Context, courseID string) (map[models.EnrollmentStatus]int, error)
}

// CreateCourseRequest is the course creation payload. The prerequisite is
// referenced by name so the catalog can be built in two passes.
type CreateCourseRequest struct {
	Name             string  `json:"name" validate:"required"`
	Holder           string  `json:"holder" validate:"required"`
	HolderEmail      *string `json:"holder_email,omitempty" validate:"omitempty,email"`
	Assistant        *string `json:"assistant,omitempty"`
	AssistantEmail   *string `json:"assistant_email,omitempty" validate:"omitempty,email"`
	Description      string  `json:"description"`
	ECTS             int     `json:"ects" validate:"required,min=1"`
	Semester         int     `json:"semester" validate:"required,min=1,max=6"`
	Capacity         int     `json:"capacity" validate:"omitempty,min=1"`
	PrerequisiteName *string `json:"prerequisite_name,omitempty"`
}

// UpdateCourseRequest carries the mutable course attributes.
type UpdateCourseRequest struct {
	Holder         *string `json:"holder,omitempty"`
	HolderEmail    *string `json:"holder_email,omitempty" validate:"omitempty,email"`
	Assistant      *string `json:"assistant,omitempty"`
	AssistantEmail *string `json:"assistant_email,omitempty" validate:"omitempty,email"`
	Description    *string `json:"description,omitempty"`
	Capacity       *int    `json:"capacity,omitempty" validate:"omitempty,min=1"`
}

// CourseWithStats is the single-course read with enrollment tallies.
type CourseWithStats struct {
	models.CourseDetail
	Stats models.CourseStats `json:"stats"`
}

// CatalogService manages the course catalog.
type CatalogService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, validator: validate, logger: logger}
}

// List returns courses with pagination metadata.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one course with its enrollment tallies.
func (s *CatalogService) Get(ctx context.Context, id string) (*CourseWithStats, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	counts, err := s.repo.StatusCounts(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course stats")
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &CourseWithStats{
		CourseDetail: *course,
		Stats:        models.CourseStats{TotalEnrollments: total, StatusCounts: counts},
	}, nil
}

// Create adds a course to the catalog. The name must be unique and the
// prerequisite, when named, must already exist in an earlier semester.
func (s *CatalogService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	existing, err := s.repo.FindByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course name")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this name already exists")
	}

	course := &models.Course{
		Name:           strings.TrimSpace(req.Name),
		Holder:         req.Holder,
		HolderEmail:    req.HolderEmail,
		Assistant:      req.Assistant,
		AssistantEmail: req.AssistantEmail,
		Description:    req.Description,
		ECTS:           req.ECTS,
		Semester:       req.Semester,
		Year:           (req.Semester + 1) / 2,
		Capacity:       req.Capacity,
	}
	if course.Capacity == 0 {
		course.Capacity = 30
	}

	if req.PrerequisiteName != nil && *req.PrerequisiteName != "" {
		prereq, err := s.repo.FindByName(ctx, *req.PrerequisiteName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve prerequisite")
		}
		if prereq == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "prerequisite course not found: "+*req.PrerequisiteName)
		}
		if prereq.Semester >= course.Semester {
			return nil, appErrors.Clone(appErrors.ErrValidation, "prerequisite must come from an earlier semester")
		}
		course.PrerequisiteID = &prereq.ID
	}

	if err := s.repo.Create(ctx, course); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("name", course.Name),
		zap.Int("semester", course.Semester))
	return course, nil
}

// Update edits the mutable attributes of one course.
func (s *CatalogService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if existing == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	course := existing.Course
	if req.Holder != nil {
		course.Holder = *req.Holder
	}
	if req.HolderEmail != nil {
		course.HolderEmail = req.HolderEmail
	}
	if req.Assistant != nil {
		course.Assistant = req.Assistant
	}
	if req.AssistantEmail != nil {
		course.AssistantEmail = req.AssistantEmail
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Capacity != nil {
		course.Capacity = *req.Capacity
	}

	if err := s.repo.Update(ctx, &course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload course")
	}
	return updated, nil
}
