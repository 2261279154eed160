package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/studomat-dev/studomat-api/internal/models"
	"github.com/studomat-dev/studomat-api/pkg/config"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/identity"
)

const uniqueViolation = "23505"

// Attempts for the generate-check-retry loops. The storage uniqueness
// constraint remains the final arbiter under concurrent registration.
const maxGenerateAttempts = 50

type authStudentRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	JmbagExists(ctx context.Context, jmbag string) (bool, error)
	CreateWithActiveCourses(ctx context.Context, student *models.Student, rows []models.Enrollment) error
}

type authCatalogReader interface {
	ListByYear(ctx context.Context, year int) ([]models.Course, error)
}

// AuthService handles registration, login and token validation.
type AuthService struct {
	students  authStudentRepository
	catalog   authCatalogReader
	jwtCfg    config.JWTConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(students authStudentRepository, catalog authCatalogReader, jwtCfg config.JWTConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{students: students, catalog: catalog, jwtCfg: jwtCfg, validator: validate, logger: logger}
}

// Register creates a first-year student. The institutional email and the
// jmbag are generated server-side with a generate-check-retry loop; the new
// student starts with the full first-year catalog active and every
// enrollment step already completed.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	email, err := s.generateEmail(ctx, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	jmbag, err := s.generateJmbag(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		Jmbag:              jmbag,
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Email:              email,
		PasswordHash:       string(hash),
		EnrolledYear:       1,
		EnrollmentStep:     models.StepDocumentsSubmitted,
		YearSelected:       true,
		CoursesSelected:    true,
		DocumentsSubmitted: true,
		Completed:          true,
	}

	firstYear, err := s.catalog.ListByYear(ctx, 1)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	rows := make([]models.Enrollment, 0, len(firstYear))
	for _, course := range firstYear {
		rows = append(rows, models.Enrollment{
			CourseID:         course.ID,
			Status:           models.EnrollmentStatusActive,
			AssignedYear:     1,
			AssignedSemester: course.Semester,
		})
	}

	if err := s.students.CreateWithActiveCourses(ctx, student, rows); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or jmbag already taken")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("email", student.Email))

	return s.issueToken(student)
}

// Login authenticates a student by institutional email and password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !identity.IsStudentEmail(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email must be in the @"+identity.StudentEmailDomain+" domain")
	}

	student, err := s.students.FindByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueToken(student)
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.ErrUnauthorized
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) issueToken(student *models.Student) (*models.AuthResponse, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		StudentID: student.ID,
		Email:     student.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   student.ID,
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.Expiration)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return &models.AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.jwtCfg.Expiration.Seconds()),
		IssuedAt:  now,
		Student:   student,
	}, nil
}

func (s *AuthService) generateEmail(ctx context.Context, firstName, lastName string) (string, error) {
	localPart := identity.EmailLocalPart(firstName, lastName)
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		email := identity.StudentEmail(localPart, attempt)
		taken, err := s.students.EmailExists(ctx, email)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
		if !taken {
			return email, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not generate a unique email")
}

func (s *AuthService) generateJmbag(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		jmbag := identity.RandomJmbag()
		taken, err := s.students.JmbagExists(ctx, jmbag)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check jmbag")
		}
		if !taken {
			return jmbag, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not generate a unique jmbag")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
