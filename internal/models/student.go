package models

import "time"

// Enrollment step ordinals tracked on the student row.
const (
	StepNotStarted         = 0
	StepYearSelected       = 1
	StepCoursesSelected    = 2
	StepDocumentsSubmitted = 3
)

// Student represents a registered student together with the enrollment step
// flags and the cached counters derived from the ledger.
type Student struct {
	ID            string  `db:"id" json:"id"`
	Jmbag         string  `db:"jmbag" json:"jmbag"`
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	Email         string  `db:"email" json:"email"`
	PasswordHash  string  `db:"password_hash" json:"-"`
	EnrolledYear  int     `db:"enrolled_year" json:"enrolled_year"`
	RepeatingYear bool    `db:"repeating_year" json:"repeating_year"`
	Module        *string `db:"module" json:"module,omitempty"`

	EnrollmentStep     int  `db:"enrollment_step" json:"enrollment_step"`
	YearSelected       bool `db:"year_selected" json:"year_selected"`
	CoursesSelected    bool `db:"courses_selected" json:"courses_selected"`
	DocumentsSubmitted bool `db:"documents_submitted" json:"documents_submitted"`
	Completed          bool `db:"completed" json:"completed"`

	TotalECTS   int `db:"total_ects" json:"total_ects"`
	PassedCount int `db:"passed_count" json:"passed_count"`
	FailedCount int `db:"failed_count" json:"failed_count"`
	ActiveCount int `db:"active_count" json:"active_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentStats bundles the counters derived from the enrollment ledger.
type StudentStats struct {
	TotalECTS   int `json:"total_ects"`
	PassedCount int `json:"passed_count"`
	FailedCount int `json:"failed_count"`
	ActiveCount int `json:"active_count"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	EnrolledYear int
	Completed    *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
