package service

import (
	"github.com/studomat-dev/studomat-api/internal/models"
)

// Per-semester load caps. A slot holding exactly six courses or exactly 30
// ECTS is still valid; both boundaries are inclusive.
const (
	MaxCoursesPerSemester = 6
	MaxECTSPerSemester    = 30
)

// SlotPlan is the accepted course set for one semester slot.
type SlotPlan struct {
	Semester int
	Courses  []models.Course
	ECTS     int
}

// Plan is the planner's output for one academic year: a winter (odd) and a
// summer (even) slot.
type Plan struct {
	Year   int
	Winter SlotPlan
	Summer SlotPlan
}

// Rows converts the plan into ACTIVE ledger rows for the given student.
func (p Plan) Rows(studentID string) []models.Enrollment {
	rows := make([]models.Enrollment, 0, len(p.Winter.Courses)+len(p.Summer.Courses))
	for _, slot := range []SlotPlan{p.Winter, p.Summer} {
		for _, course := range slot.Courses {
			rows = append(rows, models.Enrollment{
				StudentID:        studentID,
				CourseID:         course.ID,
				Status:           models.EnrollmentStatusActive,
				AssignedYear:     p.Year,
				AssignedSemester: slot.Semester,
			})
		}
	}
	return rows
}

// LoadPlanner fills the two semester slots of a target year with retakes and
// new courses, greedily and without backtracking. Retake candidates come
// first, ordered by the semester the failure was assigned to; the new courses
// of the target semester follow in catalog order. The walk continues past a
// rejected candidate, so a later smaller course may still fit the remaining
// budget, but an accepted course is never evicted to make room.
type LoadPlanner struct{}

// NewLoadPlanner constructs a LoadPlanner.
func NewLoadPlanner() *LoadPlanner {
	return &LoadPlanner{}
}

// BuildPlan computes the ACTIVE load for one target year. winterCourses and
// summerCourses are the catalog courses nominally scheduled in the target
// odd and even semesters, in catalog order. When repeatingYear is set,
// failures assigned to the target semesters themselves are eligible retakes.
func (p *LoadPlanner) BuildPlan(year int, winterCourses, summerCourses []models.Course, history models.StudentHistory, repeatingYear bool) Plan {
	odd, even := models.SemestersForYear(year)
	accepted := make(map[string]struct{})
	return Plan{
		Year:   year,
		Winter: p.fillSlot(odd, winterCourses, history, repeatingYear, accepted),
		Summer: p.fillSlot(even, summerCourses, history, repeatingYear, accepted),
	}
}

// fillSlot walks the ordered candidate list for one semester slot and accepts
// first-fit. The accepted set is shared across both slots so a course never
// lands in the plan twice.
func (p *LoadPlanner) fillSlot(target int, newCourses []models.Course, history models.StudentHistory, repeatingYear bool, accepted map[string]struct{}) SlotPlan {
	slot := SlotPlan{Semester: target}

	candidates := retakeCandidates(target, history, repeatingYear)
	candidates = append(candidates, newCourses...)

	for _, course := range candidates {
		if _, ok := accepted[course.ID]; ok {
			continue
		}
		if history.Passed(course.ID) {
			continue
		}
		if course.PrerequisiteID != nil && !history.Passed(*course.PrerequisiteID) {
			continue
		}
		if len(slot.Courses) >= MaxCoursesPerSemester {
			continue
		}
		if slot.ECTS+course.ECTS > MaxECTSPerSemester {
			continue
		}
		slot.Courses = append(slot.Courses, course)
		slot.ECTS += course.ECTS
		accepted[course.ID] = struct{}{}
	}
	return slot
}

// retakeCandidates collects the failed courses eligible for the target slot:
// every failure assigned to an earlier semester of matching parity, earliest
// semester first, plus failures from the target semester itself when the
// student is repeating the year.
func retakeCandidates(target int, history models.StudentHistory, repeatingYear bool) []models.Course {
	first := 1
	if !models.WinterSemester(target) {
		first = 2
	}
	last := target - 2
	if repeatingYear {
		last = target
	}

	var courses []models.Course
	for sem := first; sem <= last; sem += 2 {
		for _, failed := range history.FailedBySemester[sem] {
			courses = append(courses, courseFromDetail(failed))
		}
	}
	return courses
}

func courseFromDetail(d models.EnrollmentDetail) models.Course {
	return models.Course{
		ID:             d.CourseID,
		Name:           d.CourseName,
		ECTS:           d.CourseECTS,
		Semester:       d.CourseSemester,
		Year:           d.CourseYear,
		PrerequisiteID: d.CoursePrerequisiteID,
	}
}
