package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studomat-dev/studomat-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, jmbag, first_name, last_name, email, password_hash, enrolled_year, repeating_year, module,
        enrollment_step, year_selected, courses_selected, documents_submitted, completed,
        total_ects, passed_count, failed_count, active_count, created_at, updated_at`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.EnrolledYear != 0 {
		conditions = append(conditions, fmt.Sprintf("enrolled_year = $%d", len(args)+1))
		args = append(args, filter.EnrolledYear)
	}
	if filter.Completed != nil {
		conditions = append(conditions, fmt.Sprintf("completed = $%d", len(args)+1))
		args = append(args, *filter.Completed)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(email) LIKE $%d OR jmbag LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":  "last_name",
		"jmbag":      "jmbag",
		"total_ects": "total_ects",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// FindByEmail fetches a student by exact email.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE email = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by email: %w", err)
	}
	return &student, nil
}

// EmailExists checks whether the email is already taken.
func (r *StudentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE email = $1 LIMIT 1", email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// JmbagExists checks whether the enrollment number is already taken.
func (r *StudentRepository) JmbagExists(ctx context.Context, jmbag string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE jmbag = $1 LIMIT 1", jmbag); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check jmbag: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, jmbag, first_name, last_name, email, password_hash, enrolled_year, repeating_year, module,
        enrollment_step, year_selected, courses_selected, documents_submitted, completed,
        total_ects, passed_count, failed_count, active_count, created_at, updated_at)
        VALUES (:id, :jmbag, :first_name, :last_name, :email, :password_hash, :enrolled_year, :repeating_year, :module,
        :enrollment_step, :year_selected, :courses_selected, :documents_submitted, :completed,
        :total_ects, :passed_count, :failed_count, :active_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// CreateWithActiveCourses inserts the student together with their initial
// ACTIVE ledger rows and the refreshed counters, all in one transaction.
// Used at registration, where a new student is enrolled into the whole
// first-year catalog at once.
func (r *StudentRepository) CreateWithActiveCourses(ctx context.Context, student *models.Student, rows []models.Enrollment) (err error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const studentQuery = `INSERT INTO students (id, jmbag, first_name, last_name, email, password_hash, enrolled_year, repeating_year, module,
        enrollment_step, year_selected, courses_selected, documents_submitted, completed,
        total_ects, passed_count, failed_count, active_count, created_at, updated_at)
        VALUES (:id, :jmbag, :first_name, :last_name, :email, :password_hash, :enrolled_year, :repeating_year, :module,
        :enrollment_step, :year_selected, :courses_selected, :documents_submitted, :completed,
        :total_ects, :passed_count, :failed_count, :active_count, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, studentQuery, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	const rowQuery = `INSERT INTO student_courses (id, student_id, course_id, status, assigned_year, assigned_semester, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		if _, err = tx.ExecContext(ctx, rowQuery, rows[i].ID, student.ID, rows[i].CourseID, rows[i].Status, rows[i].AssignedYear, rows[i].AssignedSemester, rows[i].CreatedAt); err != nil {
			return fmt.Errorf("insert initial enrollment: %w", err)
		}
	}

	if err = refreshStudentStats(ctx, tx, student.ID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}
	return nil
}

// Update modifies an existing student's profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, password_hash = :password_hash, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}
