package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/studomat-dev/studomat-api/internal/models"
	"github.com/studomat-dev/studomat-api/internal/repository"
	"github.com/studomat-dev/studomat-api/internal/service"
	"github.com/studomat-dev/studomat-api/pkg/config"
	"github.com/studomat-dev/studomat-api/pkg/database"
	"github.com/studomat-dev/studomat-api/pkg/identity"
)

const (
	studentCount  = 100
	plainPassword = "Lozinka123!"
)

type seedCourse struct {
	Name             string
	Holder           string
	Description      string
	ECTS             int
	Semester         int
	Year             int
	PrerequisiteName string
}

var courseData = []seedCourse{
	// Semester 1
	{Name: "Uvod u programiranje", Holder: "dr.sc. Marko Markić", Description: "Osnove programiranja i algoritamskog razmišljanja.", ECTS: 6, Semester: 1, Year: 1},
	{Name: "Matematika 1", Holder: "dr.sc. Ana Anić", Description: "Temelji matematičke analize.", ECTS: 6, Semester: 1, Year: 1},
	{Name: "Osnove računarstva", Holder: "dr.sc. Luka Lukić", Description: "Uvod u računalne sustave i arhitekturu.", ECTS: 5, Semester: 1, Year: 1},
	{Name: "Engleski jezik 1", Holder: "lekt. Petra Petrić", Description: "Akademski engleski za IT.", ECTS: 4, Semester: 1, Year: 1},
	{Name: "Diskretna matematika", Holder: "dr.sc. Ivan Ivić", Description: "Skupovi, relacije, grafovi.", ECTS: 5, Semester: 1, Year: 1},
	{Name: "Vještine učenja i istraživanja", Holder: "doc.dr.sc. Ema Emić", Description: "Učenje, istraživanje i pisanje.", ECTS: 4, Semester: 1, Year: 1},
	// Semester 2
	{Name: "Operacijski sustavi", Holder: "dr.sc. Luka Lukić", Description: "Koncepti OS-a i implementacije.", ECTS: 6, Semester: 2, Year: 1},
	{Name: "Upravljanje bazama podataka", Holder: "dr.sc. Petra Petrić", Description: "Modeliranje, normalizacija, administracija.", ECTS: 5, Semester: 2, Year: 1},
	{Name: "Algoritmi i strukture podataka", Holder: "doc.dr.sc. Filip Filić", Description: "Analiza i dizajn algoritama.", ECTS: 6, Semester: 2, Year: 1},
	{Name: "Računalne arhitekture", Holder: "dr.sc. Luka Lukić", Description: "Napredne arhitekture i performanse.", ECTS: 5, Semester: 2, Year: 1},
	{Name: "Softversko inženjerstvo", Holder: "dr.sc. Marko Markić", Description: "Procesi razvoja i kvaliteta softvera.", ECTS: 6, Semester: 2, Year: 1},
	{Name: "Sustavi i mreže", Holder: "dr.sc. Sara Sarić", Description: "Operativni sustavi i mrežni koncepti.", ECTS: 5, Semester: 2, Year: 1},
	// Semester 3
	{Name: "Programiranje 2", Holder: "dr.sc. Marko Markić", Description: "Strukture podataka, OOP osnove.", ECTS: 6, Semester: 3, Year: 2, PrerequisiteName: "Uvod u programiranje"},
	{Name: "Matematika 2", Holder: "dr.sc. Ana Anić", Description: "Nastavak matematičke analize.", ECTS: 6, Semester: 3, Year: 2, PrerequisiteName: "Matematika 1"},
	{Name: "Objektno orijentirano programiranje", Holder: "dr.sc. Iva Ivić", Description: "Napredni OOP obrasci i praksa.", ECTS: 6, Semester: 3, Year: 2, PrerequisiteName: "Programiranje 2"},
	{Name: "Vjerojatnost i statistika", Holder: "dr.sc. Ivan Ivić", Description: "Temelji statistike za računarstvo.", ECTS: 6, Semester: 3, Year: 2},
	{Name: "Web tehnologije", Holder: "doc.dr.sc. Filip Filić", Description: "Frontend i backend osnove.", ECTS: 5, Semester: 3, Year: 2},
	{Name: "Tehnike komunikacije", Holder: "mr.sc. Ema Emić", Description: "Prezentacijske i timske vještine.", ECTS: 4, Semester: 3, Year: 2},
	// Semester 4
	{Name: "Engleski jezik 2", Holder: "lekt. Petra Petrić", Description: "Napredni akademski engleski za IT.", ECTS: 4, Semester: 4, Year: 2, PrerequisiteName: "Engleski jezik 1"},
	{Name: "Osnove baza podataka", Holder: "dr.sc. Mia Mijić", Description: "Relacijske baze, SQL osnove.", ECTS: 5, Semester: 4, Year: 2, PrerequisiteName: "Osnove računarstva"},
	{Name: "Računalne mreže", Holder: "dr.sc. Sara Sarić", Description: "Protokoli, sigurnost i administracija.", ECTS: 6, Semester: 4, Year: 2},
	{Name: "Napredne baze podataka", Holder: "dr.sc. Mia Mijić", Description: "Optimizacija, NoSQL, distribuirane baze.", ECTS: 5, Semester: 4, Year: 2},
	{Name: "Strojno učenje", Holder: "dr.sc. Iva Ivić", Description: "Temelji ML-a i primjene.", ECTS: 6, Semester: 4, Year: 2},
	{Name: "Praktični projekt 1", Holder: "doc.dr.sc. Filip Filić", Description: "Timski projekt s mentorstvom.", ECTS: 5, Semester: 4, Year: 2},
	// Semester 5
	{Name: "Distribuirani sustavi", Holder: "dr.sc. Sara Sarić", Description: "Skalabilnost, konzistencija, komunikacija.", ECTS: 6, Semester: 5, Year: 3},
	{Name: "Sigurnost informacijskih sustava", Holder: "dr.sc. Luka Lukić", Description: "Kriptografija, sigurnosne politike.", ECTS: 6, Semester: 5, Year: 3},
	{Name: "Analiza podataka", Holder: "dr.sc. Iva Ivić", Description: "Statistička analiza i vizualizacija.", ECTS: 6, Semester: 5, Year: 3},
	{Name: "Mobilne aplikacije", Holder: "dr.sc. Marko Markić", Description: "Android/iOS razvoj i UX.", ECTS: 6, Semester: 5, Year: 3},
	{Name: "Cloud računarstvo", Holder: "dr.sc. Mia Mijić", Description: "IaaS, PaaS, DevOps alati.", ECTS: 5, Semester: 5, Year: 3},
	{Name: "Poduzetništvo i inovacije", Holder: "mr.sc. Ema Emić", Description: "Osnove poduzetništva u IT-u.", ECTS: 4, Semester: 5, Year: 3},
	// Semester 6
	{Name: "Napredne web aplikacije", Holder: "doc.dr.sc. Filip Filić", Description: "SPA, SSR i performanse.", ECTS: 6, Semester: 6, Year: 3},
	{Name: "Big Data tehnologije", Holder: "dr.sc. Sara Sarić", Description: "Hadoop ekosustav, stream obrada.", ECTS: 6, Semester: 6, Year: 3},
	{Name: "Poslovna inteligencija", Holder: "dr.sc. Mia Mijić", Description: "DWH, ETL, BI alati.", ECTS: 6, Semester: 6, Year: 3},
	{Name: "DevOps i CI/CD", Holder: "dr.sc. Luka Lukić", Description: "CI/CD prakse i alati.", ECTS: 6, Semester: 6, Year: 3},
	{Name: "Diplomski seminar", Holder: "dr.sc. Ivan Ivić", Description: "Priprema diplomskog rada.", ECTS: 4, Semester: 6, Year: 3},
	{Name: "Praktični projekt 2", Holder: "dr.sc. Marko Markić", Description: "Završni timski projekt.", ECTS: 6, Semester: 6, Year: 3},
}

var assistants = []string{
	"asst. Ivana Horvat", "asst. Tomislav Kovač", "asst. Marija Novak",
	"asst. Petra Jurić", "asst. Dario Marin", "asst. Lea Grgić",
	"asst. Luka Pavić", "asst. Nina Babić", "asst. Karlo Klarić",
	"asst. Dora Perić",
}

var firstNames = []string{
	"Ana", "Marko", "Iva", "Luka", "Petra", "Ivan", "Mia", "Filip", "Ema", "Sara",
	"Josip", "Karlo", "Nina", "Dora", "Laura", "Tin", "Lea", "Vito", "Matea", "Paula",
}

var lastNames = []string{
	"Anić", "Markić", "Ivić", "Lukić", "Petrić", "Mijić", "Filić", "Emić", "Sarić",
	"Pavić", "Babić", "Perić", "Kovač", "Horvat", "Novak", "Klarić", "Grgić", "Marin", "Jurić",
}

var studyModules = []string{"MMS", "RPP", "BIZ"}

// forcePass keeps the prerequisite chains intact in generated histories.
var forcePass = map[string]bool{
	"Programiranje 2":      true,
	"Matematika 2":         true,
	"Engleski jezik 2":     true,
	"Osnove baza podataka": true,
}

var likelyFailBySemester = map[int]map[string]bool{
	1: {"Diskretna matematika": true},
	2: {"Algoritmi i strukture podataka": true, "Sustavi i mreže": true},
	3: {"Operacijski sustavi": true},
	4: {"Računalne mreže": true},
	5: {"Cloud računarstvo": true},
	6: {"Big Data tehnologije": true},
}

// capacityForCourse derives a stable per-course capacity in the 25..40 range.
func capacityForCourse(name string) int {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return 25 + sum%16
}

// staffEmail turns "dr.sc. Marko Markić" into "marko.markic@uni.hr".
func staffEmail(fullName string) string {
	cleaned := fullName
	for _, title := range []string{"doc.dr.sc.", "dr.sc.", "mr.sc.", "lekt.", "doc.", "prof.", "ing.", "asst."} {
		cleaned = strings.ReplaceAll(cleaned, title, "")
	}
	parts := strings.Fields(cleaned)
	ascii := make([]string, 0, len(parts))
	for _, p := range parts {
		if folded := identity.FoldLetters(p); folded != "" {
			ascii = append(ascii, folded)
		}
	}
	if len(ascii) == 0 {
		return "staff@uni.hr"
	}
	if len(ascii) == 1 {
		return ascii[0] + "@uni.hr"
	}
	return ascii[0] + "." + ascii[len(ascii)-1] + "@uni.hr"
}

func shouldPassInHistory(name string, semester int) bool {
	if forcePass[name] {
		return true
	}
	return !likelyFailBySemester[semester][name]
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	if err := wipe(ctx, db); err != nil {
		log.Fatalf("failed to wipe tables: %v", err)
	}

	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	courses, err := seedCourses(ctx, courseRepo)
	if err != nil {
		log.Fatalf("failed to seed courses: %v", err)
	}
	log.Printf("seeded %d courses", len(courses))

	if err := seedStudents(ctx, db, studentRepo, enrollmentRepo, courses, rng); err != nil {
		log.Fatalf("failed to seed students: %v", err)
	}
	log.Printf("seeded %d students (90 completed, 5 at step 2, 4 at step 1, 1 at step 0)", studentCount)
}

func wipe(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx,
		`TRUNCATE student_documents, student_courses, students, courses CASCADE`)
	return err
}

func seedCourses(ctx context.Context, repo *repository.CourseRepository) ([]models.Course, error) {
	courses := make([]models.Course, 0, len(courseData))
	byName := make(map[string]*models.Course, len(courseData))

	for i, c := range courseData {
		assistant := assistants[i%len(assistants)]
		holderEmail := staffEmail(c.Holder)
		assistantEmail := staffEmail(assistant)
		course := models.Course{
			Name:           c.Name,
			Holder:         c.Holder,
			HolderEmail:    &holderEmail,
			Assistant:      &assistant,
			AssistantEmail: &assistantEmail,
			Description:    c.Description,
			ECTS:           c.ECTS,
			Semester:       c.Semester,
			Year:           c.Year,
			Capacity:       capacityForCourse(c.Name),
		}
		if err := repo.Create(ctx, &course); err != nil {
			return nil, fmt.Errorf("create course %q: %w", c.Name, err)
		}
		courses = append(courses, course)
		byName[course.Name] = &courses[len(courses)-1]
	}

	// Prerequisites resolve in a second pass so ordering never matters.
	for _, c := range courseData {
		if c.PrerequisiteName == "" {
			continue
		}
		prereq, ok := byName[c.PrerequisiteName]
		if !ok {
			return nil, fmt.Errorf("prerequisite %q for %q not found", c.PrerequisiteName, c.Name)
		}
		if err := repo.SetPrerequisite(ctx, byName[c.Name].ID, prereq.ID); err != nil {
			return nil, fmt.Errorf("set prerequisite for %q: %w", c.Name, err)
		}
		byName[c.Name].PrerequisiteID = &prereq.ID
	}

	return courses, nil
}

func seedStudents(
	ctx context.Context,
	db *sqlx.DB,
	students *repository.StudentRepository,
	enrollments *repository.EnrollmentRepository,
	courses []models.Course,
	rng *rand.Rand,
) error {
	bySemester := make(map[int][]models.Course)
	for _, c := range courses {
		bySemester[c.Semester] = append(bySemester[c.Semester], c)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	usedJmbags := make(map[string]bool, studentCount)
	created := make([]*models.Student, 0, studentCount)

	for i := 0; i < studentCount; i++ {
		firstName := firstNames[i%len(firstNames)]
		lastName := lastNames[(i*3)%len(lastNames)]
		enrolledYear := 1 + i%3
		repeating := rng.Float64() < 0.2

		var module *string
		if enrolledYear == 3 {
			m := studyModules[i%len(studyModules)]
			module = &m
		}

		jmbag := identity.RandomJmbag()
		for usedJmbags[jmbag] {
			jmbag = identity.RandomJmbag()
		}
		usedJmbags[jmbag] = true

		student := models.Student{
			Jmbag:         jmbag,
			FirstName:     firstName,
			LastName:      lastName,
			Email:         identity.StudentEmail(identity.EmailLocalPart(firstName, lastName), i+1),
			PasswordHash:  string(hash),
			EnrolledYear:  enrolledYear,
			RepeatingYear: repeating,
			Module:        module,
		}
		if err := students.Create(ctx, &student); err != nil {
			return fmt.Errorf("create student %s: %w", student.Email, err)
		}
		created = append(created, &student)
	}

	// Step distribution: 90 completed, 5 at step 2, 4 at step 1, 1 at step 0.
	order := rng.Perm(studentCount)
	stepFor := make(map[string]int, studentCount)
	completed := make(map[string]bool, studentCount)
	for pos, idx := range order {
		id := created[idx].ID
		switch {
		case pos < 90:
			stepFor[id] = models.StepDocumentsSubmitted
			completed[id] = true
		case pos < 95:
			stepFor[id] = models.StepCoursesSelected
		case pos < 99:
			stepFor[id] = models.StepYearSelected
		default:
			stepFor[id] = models.StepNotStarted
		}
	}

	planner := service.NewLoadPlanner()

	for _, student := range created {
		history := models.StudentHistory{
			PassedCourseIDs:  make(map[string]struct{}),
			FailedBySemester: make(map[int][]models.EnrollmentDetail),
		}
		var historyRows []models.Enrollment

		historyYears := student.EnrolledYear - 1
		for y := 1; y <= historyYears; y++ {
			collectYearHistory(student, y, bySemester, &history, &historyRows)
		}
		if student.RepeatingYear {
			collectYearHistory(student, student.EnrolledYear, bySemester, &history, &historyRows)
		}

		if len(historyRows) > 0 {
			if err := enrollments.InsertHistory(ctx, student.ID, historyRows); err != nil {
				return fmt.Errorf("insert history for %s: %w", student.Email, err)
			}
		}

		step := stepFor[student.ID]
		if step >= models.StepCoursesSelected {
			odd, even := models.SemestersForYear(student.EnrolledYear)
			plan := planner.BuildPlan(student.EnrolledYear, bySemester[odd], bySemester[even], history, student.RepeatingYear)
			rows := plan.Rows(student.ID)
			if err := enrollments.ReplaceActiveForSemesters(ctx, student.ID, []int{odd, even}, rows, false); err != nil {
				return fmt.Errorf("insert active load for %s: %w", student.Email, err)
			}
		}

		if err := applyStep(ctx, db, student.ID, step, completed[student.ID]); err != nil {
			return fmt.Errorf("apply step for %s: %w", student.Email, err)
		}
	}

	return nil
}

func collectYearHistory(
	student *models.Student,
	year int,
	bySemester map[int][]models.Course,
	history *models.StudentHistory,
	rows *[]models.Enrollment,
) {
	odd, even := models.SemestersForYear(year)
	for _, semester := range []int{odd, even} {
		for _, course := range bySemester[semester] {
			status := models.EnrollmentStatusPassed
			if !shouldPassInHistory(course.Name, semester) {
				status = models.EnrollmentStatusFailed
			}
			*rows = append(*rows, models.Enrollment{
				StudentID:        student.ID,
				CourseID:         course.ID,
				Status:           status,
				AssignedYear:     year,
				AssignedSemester: semester,
			})
			if status == models.EnrollmentStatusPassed {
				history.PassedCourseIDs[course.ID] = struct{}{}
				continue
			}
			history.FailedBySemester[semester] = append(history.FailedBySemester[semester], models.EnrollmentDetail{
				Enrollment: models.Enrollment{
					StudentID:        student.ID,
					CourseID:         course.ID,
					Status:           models.EnrollmentStatusFailed,
					AssignedYear:     year,
					AssignedSemester: semester,
				},
				CourseName:           course.Name,
				CourseECTS:           course.ECTS,
				CourseSemester:       course.Semester,
				CourseYear:           course.Year,
				CoursePrerequisiteID: course.PrerequisiteID,
			})
		}
	}
}

func applyStep(ctx context.Context, db *sqlx.DB, studentID string, step int, completed bool) error {
	_, err := db.ExecContext(ctx, `
		UPDATE students
		SET enrollment_step = $2,
		    year_selected = $3,
		    courses_selected = $4,
		    documents_submitted = $5,
		    completed = $6,
		    updated_at = NOW()
		WHERE id = $1`,
		studentID,
		step,
		step >= models.StepYearSelected,
		step >= models.StepCoursesSelected,
		step >= models.StepDocumentsSubmitted,
		completed,
	)
	return err
}
