package models

import "time"

// EnrollmentStatus is the outcome of one (student, course) attempt.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive EnrollmentStatus = "ACTIVE"
	EnrollmentStatusPassed EnrollmentStatus = "PASSED"
	EnrollmentStatusFailed EnrollmentStatus = "FAILED"
)

// Enrollment is one ledger row. AssignedYear is the student's year of record
// when the row was created; AssignedSemester is the semester the attempt was
// placed in, which for a retake differs from the course's nominal semester.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	CourseID         string           `db:"course_id" json:"course_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	AssignedYear     int              `db:"assigned_year" json:"assigned_year"`
	AssignedSemester int              `db:"assigned_semester" json:"assigned_semester"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// EnrollmentDetail joins a ledger row with the course it refers to.
type EnrollmentDetail struct {
	Enrollment
	CourseName           string  `db:"course_name" json:"course_name"`
	CourseECTS           int     `db:"course_ects" json:"course_ects"`
	CourseSemester       int     `db:"course_semester" json:"course_semester"`
	CourseYear           int     `db:"course_year" json:"course_year"`
	CoursePrerequisiteID *string `db:"course_prerequisite_id" json:"course_prerequisite_id,omitempty"`
}

// StudentHistory is the planner's view of a student's past outcomes: the set
// of passed course ids and the failed courses keyed by the semester the
// failure was assigned to, preserving earliest-first order per semester.
type StudentHistory struct {
	PassedCourseIDs  map[string]struct{}
	FailedBySemester map[int][]EnrollmentDetail
}

// Passed reports whether the course id is in the passed set.
func (h StudentHistory) Passed(courseID string) bool {
	_, ok := h.PassedCourseIDs[courseID]
	return ok
}

// SlotLoad is the active load of one semester slot.
type SlotLoad struct {
	Semester int                `json:"semester"`
	Count    int                `json:"count"`
	ECTS     int                `json:"ects"`
	Courses  []EnrollmentDetail `json:"courses"`
}

// ActiveLoad is the stable projection of a student's current active courses
// split into the two semester slots of the enrolled year.
type ActiveLoad struct {
	StudentID    string   `json:"student_id"`
	EnrolledYear int      `json:"enrolled_year"`
	Winter       SlotLoad `json:"winter"`
	Summer       SlotLoad `json:"summer"`
}
