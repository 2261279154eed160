package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studomat-dev/studomat-api/internal/models"
)

// CourseRepository manages persistence for catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseDetailColumns = `c.id, c.name, c.holder, c.holder_email, c.assistant, c.assistant_email,
        c.description, c.ects, c.semester, c.year, c.capacity, c.prerequisite_id, c.created_at, c.updated_at,
        p.name AS prerequisite_name`

// List returns courses matching the provided filters.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := "FROM courses c LEFT JOIN courses p ON p.id = c.prerequisite_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("c.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Semester != 0 {
		conditions = append(conditions, fmt.Sprintf("c.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.name) LIKE $%d OR LOWER(c.holder) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":     "c.name",
		"ects":     "c.ects",
		"semester": "c.semester",
		"capacity": "c.capacity",
	}
	if sortBy == "" {
		sortBy = "semester"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "c.semester"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, c.name ASC LIMIT %d OFFSET %d",
		courseDetailColumns, base, column, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches one course with its resolved prerequisite name.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c LEFT JOIN courses p ON p.id = c.prerequisite_id WHERE c.id = $1`, courseDetailColumns)
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &detail, nil
}

// FindByName fetches one course by case-insensitive name match.
func (r *CourseRepository) FindByName(ctx context.Context, name string) (*models.Course, error) {
	const query = `SELECT id, name, holder, holder_email, assistant, assistant_email, description, ects, semester, year, capacity, prerequisite_id, created_at, updated_at
        FROM courses WHERE LOWER(name) = LOWER($1)`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get course by name: %w", err)
	}
	return &course, nil
}

// FindByNames resolves a batch of case-insensitive course names. Names with
// no match are simply absent from the result.
func (r *CourseRepository) FindByNames(ctx context.Context, names []string) ([]models.Course, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	const query = `SELECT id, name, holder, holder_email, assistant, assistant_email, description, ects, semester, year, capacity, prerequisite_id, created_at, updated_at
        FROM courses WHERE LOWER(name) = ANY($1)`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("get courses by names: %w", err)
	}
	return courses, nil
}

// ListBySemester returns the catalog courses of one semester in catalog order.
func (r *CourseRepository) ListBySemester(ctx context.Context, semester int) ([]models.Course, error) {
	const query = `SELECT id, name, holder, holder_email, assistant, assistant_email, description, ects, semester, year, capacity, prerequisite_id, created_at, updated_at
        FROM courses WHERE semester = $1 ORDER BY created_at ASC, name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, semester); err != nil {
		return nil, fmt.Errorf("list courses by semester: %w", err)
	}
	return courses, nil
}

// ListByYear returns both semesters of one academic year in catalog order.
func (r *CourseRepository) ListByYear(ctx context.Context, year int) ([]models.Course, error) {
	const query = `SELECT id, name, holder, holder_email, assistant, assistant_email, description, ects, semester, year, capacity, prerequisite_id, created_at, updated_at
        FROM courses WHERE year = $1 ORDER BY semester ASC, created_at ASC, name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, year); err != nil {
		return nil, fmt.Errorf("list courses by year: %w", err)
	}
	return courses, nil
}

// ListAll returns the full catalog in curriculum order.
func (r *CourseRepository) ListAll(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, holder, holder_email, assistant, assistant_email, description, ects, semester, year, capacity, prerequisite_id, created_at, updated_at
        FROM courses ORDER BY semester ASC, created_at ASC, name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, holder, holder_email, assistant, assistant_email, description, ects, semester, year, capacity, prerequisite_id, created_at, updated_at)
        VALUES (:id, :name, :holder, :holder_email, :assistant, :assistant_email, :description, :ects, :semester, :year, :capacity, :prerequisite_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies the mutable attributes of an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET holder = :holder, holder_email = :holder_email, assistant = :assistant, assistant_email = :assistant_email,
        description = :description, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// SetPrerequisite backfills the prerequisite link after both courses exist.
func (r *CourseRepository) SetPrerequisite(ctx context.Context, courseID, prerequisiteID string) error {
	const query = `UPDATE courses SET prerequisite_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, courseID, prerequisiteID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set prerequisite: %w", err)
	}
	return nil
}

// StatusCounts tallies the ledger rows referencing one course by status.
func (r *CourseRepository) StatusCounts(ctx context.Context, courseID string) (map[models.EnrollmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM student_courses WHERE course_id = $1 GROUP BY status`
	rows := []struct {
		Status models.EnrollmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("course status counts: %w", err)
	}
	counts := make(map[models.EnrollmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
