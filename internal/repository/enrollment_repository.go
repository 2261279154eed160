package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studomat-dev/studomat-api/internal/models"
)

// EnrollmentRepository manages the per-student ledger of course attempts.
// Multi-row mutations that also touch the cached student counters run inside
// a single transaction so readers never observe a half-applied replan.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `sc.id, sc.student_id, sc.course_id, sc.status, sc.assigned_year, sc.assigned_semester, sc.created_at,
        c.name AS course_name, c.ects AS course_ects, c.semester AS course_semester, c.year AS course_year, c.prerequisite_id AS course_prerequisite_id`

// ListForStudent returns every ledger row of one student joined with its
// course, oldest first.
func (r *EnrollmentRepository) ListForStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_courses sc JOIN courses c ON c.id = sc.course_id
        WHERE sc.student_id = $1 ORDER BY sc.created_at ASC, c.name ASC`, enrollmentDetailColumns)
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return rows, nil
}

// HistoryFor builds the planner's view of a student's past outcomes: passed
// course ids as a set, failed attempts bucketed by the semester the failure
// was assigned to, earliest semester first within each bucket.
func (r *EnrollmentRepository) HistoryFor(ctx context.Context, studentID string) (models.StudentHistory, error) {
	history := models.StudentHistory{
		PassedCourseIDs:  make(map[string]struct{}),
		FailedBySemester: make(map[int][]models.EnrollmentDetail),
	}
	query := fmt.Sprintf(`SELECT %s FROM student_courses sc JOIN courses c ON c.id = sc.course_id
        WHERE sc.student_id = $1 AND sc.status IN ($2, $3)
        ORDER BY sc.assigned_semester ASC, sc.created_at ASC`, enrollmentDetailColumns)
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.EnrollmentStatusPassed, models.EnrollmentStatusFailed); err != nil {
		return history, fmt.Errorf("load history: %w", err)
	}
	for _, row := range rows {
		switch row.Status {
		case models.EnrollmentStatusPassed:
			history.PassedCourseIDs[row.CourseID] = struct{}{}
		case models.EnrollmentStatusFailed:
			history.FailedBySemester[row.AssignedSemester] = append(history.FailedBySemester[row.AssignedSemester], row)
		}
	}
	return history, nil
}

// ListActiveForSemesters returns the ACTIVE rows assigned to the given
// semesters, ordered by semester then insertion.
func (r *EnrollmentRepository) ListActiveForSemesters(ctx context.Context, studentID string, semesters []int) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_courses sc JOIN courses c ON c.id = sc.course_id
        WHERE sc.student_id = $1 AND sc.status = $2 AND sc.assigned_semester = ANY($3)
        ORDER BY sc.assigned_semester ASC, sc.created_at ASC, c.name ASC`, enrollmentDetailColumns)
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.EnrollmentStatusActive, pq.Array(semesters)); err != nil {
		return nil, fmt.Errorf("list active load: %w", err)
	}
	return rows, nil
}

// ReplaceActiveForSemesters atomically deletes the student's ACTIVE rows for
// the given semesters, inserts the new batch, refreshes the cached counters
// and, when markSelected is set, advances the course-selection step while
// resetting the downstream document/completed flags.
func (r *EnrollmentRepository) ReplaceActiveForSemesters(ctx context.Context, studentID string, semesters []int, rows []models.Enrollment, markSelected bool) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deleteQuery = `DELETE FROM student_courses WHERE student_id = $1 AND status = $2 AND assigned_semester = ANY($3)`
	if _, err = tx.ExecContext(ctx, deleteQuery, studentID, models.EnrollmentStatusActive, pq.Array(semesters)); err != nil {
		return fmt.Errorf("delete active rows: %w", err)
	}

	now := time.Now().UTC()
	const insertQuery = `INSERT INTO student_courses (id, student_id, course_id, status, assigned_year, assigned_semester, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		if _, err = tx.ExecContext(ctx, insertQuery, rows[i].ID, rows[i].StudentID, rows[i].CourseID, rows[i].Status, rows[i].AssignedYear, rows[i].AssignedSemester, rows[i].CreatedAt); err != nil {
			return fmt.Errorf("insert active row: %w", err)
		}
	}

	if err = refreshStudentStats(ctx, tx, studentID); err != nil {
		return err
	}

	if markSelected {
		const stepQuery = `UPDATE students SET courses_selected = true, documents_submitted = false, completed = false,
            enrollment_step = $2, updated_at = $3 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, stepQuery, studentID, models.StepCoursesSelected, now); err != nil {
			return fmt.Errorf("advance selection step: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// SetYear updates the student's year of record and, in the same transaction,
// wipes the ACTIVE rows for the new target semesters and resets every step
// downstream of year selection.
func (r *EnrollmentRepository) SetYear(ctx context.Context, studentID string, year int, repeating bool, module *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin year transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const studentQuery = `UPDATE students SET enrolled_year = $2, repeating_year = $3, module = $4,
        year_selected = true, courses_selected = false, documents_submitted = false, completed = false,
        enrollment_step = $5, updated_at = $6 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, studentQuery, studentID, year, repeating, module, models.StepYearSelected, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student year: %w", err)
	}

	odd, even := models.SemestersForYear(year)
	const deleteQuery = `DELETE FROM student_courses WHERE student_id = $1 AND status = $2 AND assigned_semester = ANY($3)`
	if _, err = tx.ExecContext(ctx, deleteQuery, studentID, models.EnrollmentStatusActive, pq.Array([]int{odd, even})); err != nil {
		return fmt.Errorf("wipe active rows: %w", err)
	}

	if err = refreshStudentStats(ctx, tx, studentID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit year change: %w", err)
	}
	return nil
}

// InsertHistory bulk-inserts historical PASSED/FAILED rows and refreshes the
// cached counters, all within one transaction. Used by seeding.
func (r *EnrollmentRepository) InsertHistory(ctx context.Context, studentID string, rows []models.Enrollment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const insertQuery = `INSERT INTO student_courses (id, student_id, course_id, status, assigned_year, assigned_semester, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		if _, err = tx.ExecContext(ctx, insertQuery, rows[i].ID, studentID, rows[i].CourseID, rows[i].Status, rows[i].AssignedYear, rows[i].AssignedSemester, rows[i].CreatedAt); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}

	if err = refreshStudentStats(ctx, tx, studentID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// Leaderboard returns flat (course, student) rows for the completed students
// of one enrolled year, ordered by course then total ECTS descending with
// last name as the tiebreak.
func (r *EnrollmentRepository) Leaderboard(ctx context.Context, year int) ([]models.LeaderboardRow, error) {
	const query = `SELECT c.id AS course_id, c.name AS course_name, c.semester AS course_semester, c.capacity AS course_capacity,
        s.id AS student_id, s.first_name, s.last_name, s.email, s.module, s.total_ects
        FROM student_courses sc
        JOIN courses c ON c.id = sc.course_id
        JOIN students s ON s.id = sc.student_id
        WHERE sc.status = $1 AND s.completed = true AND s.enrolled_year = $2
        ORDER BY c.semester ASC, c.name ASC, s.total_ects DESC, s.last_name ASC`
	var rows []models.LeaderboardRow
	if err := r.db.SelectContext(ctx, &rows, query, models.EnrollmentStatusActive, year); err != nil {
		return nil, fmt.Errorf("leaderboard rows: %w", err)
	}
	return rows, nil
}

// refreshStudentStats recomputes the cached counters from the full ledger
// inside the caller's transaction. Full recompute, never incremental.
func refreshStudentStats(ctx context.Context, tx *sqlx.Tx, studentID string) error {
	const query = `UPDATE students SET
        total_ects = agg.total_ects,
        passed_count = agg.passed_count,
        failed_count = agg.failed_count,
        active_count = agg.active_count,
        updated_at = $2
        FROM (
            SELECT
                COALESCE(SUM(c.ects) FILTER (WHERE sc.status = 'PASSED'), 0) AS total_ects,
                COUNT(*) FILTER (WHERE sc.status = 'PASSED') AS passed_count,
                COUNT(*) FILTER (WHERE sc.status = 'FAILED') AS failed_count,
                COUNT(*) FILTER (WHERE sc.status = 'ACTIVE') AS active_count
            FROM student_courses sc
            JOIN courses c ON c.id = sc.course_id
            WHERE sc.student_id = $1
        ) agg
        WHERE students.id = $1`
	if _, err := tx.ExecContext(ctx, query, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh student stats: %w", err)
	}
	return nil
}
