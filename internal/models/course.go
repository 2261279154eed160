package models

import "time"

// Course is one curriculum course. The prerequisite link is a nullable
// self-reference; the catalog forms a DAG by construction because a
// prerequisite always sits in an earlier semester.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Holder         string    `db:"holder" json:"holder"`
	HolderEmail    *string   `db:"holder_email" json:"holder_email,omitempty"`
	Assistant      *string   `db:"assistant" json:"assistant,omitempty"`
	AssistantEmail *string   `db:"assistant_email" json:"assistant_email,omitempty"`
	Description    string    `db:"description" json:"description"`
	ECTS           int       `db:"ects" json:"ects"`
	Semester       int       `db:"semester" json:"semester"`
	Year           int       `db:"year" json:"year"`
	Capacity       int       `db:"capacity" json:"capacity"`
	PrerequisiteID *string   `db:"prerequisite_id" json:"prerequisite_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with the resolved prerequisite name.
type CourseDetail struct {
	Course
	PrerequisiteName *string `db:"prerequisite_name" json:"prerequisite_name,omitempty"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Year      int
	Semester  int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseStats summarises enrollment outcomes for one course.
type CourseStats struct {
	TotalEnrollments int                      `json:"total_enrollments"`
	StatusCounts     map[EnrollmentStatus]int `json:"status_counts"`
}

// WinterSemester reports whether a semester belongs to the winter (odd) slot.
func WinterSemester(semester int) bool {
	return semester%2 == 1
}

// SemestersForYear returns the odd (winter) and even (summer) semester of an
// academic year: 1 -> (1,2), 2 -> (3,4), 3 -> (5,6).
func SemestersForYear(year int) (odd, even int) {
	return year*2 - 1, year * 2
}

// ValidEnrolledYear reports whether year is within the 3-year curriculum.
func ValidEnrolledYear(year int) bool {
	return year >= 1 && year <= 3
}
