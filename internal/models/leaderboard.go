package models

// LeaderboardRow is one flat (course, student) pairing read from storage.
// Rows arrive ordered by course and then by total ECTS descending, last name
// ascending; the service groups them into LeaderboardCourse entries.
type LeaderboardRow struct {
	CourseID       string  `db:"course_id"`
	CourseName     string  `db:"course_name"`
	CourseSemester int     `db:"course_semester"`
	CourseCapacity int     `db:"course_capacity"`
	StudentID      string  `db:"student_id"`
	FirstName      string  `db:"first_name"`
	LastName       string  `db:"last_name"`
	Email          string  `db:"email"`
	Module         *string `db:"module"`
	TotalECTS      int     `db:"total_ects"`
}

// CourseCapacity reports seat usage for one course.
type CourseCapacity struct {
	Max     int `json:"max"`
	Current int `json:"current"`
}

// LeaderboardStudent is one ranked student within a course group.
type LeaderboardStudent struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Module    *string `json:"module,omitempty"`
	TotalECTS int     `json:"total_ects"`
}

// LeaderboardCourse groups the completed students active in one course.
type LeaderboardCourse struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Semester int                  `json:"semester"`
	Capacity CourseCapacity       `json:"capacity"`
	Students []LeaderboardStudent `json:"students"`
}
