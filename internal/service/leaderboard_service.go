package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studomat-dev/studomat-api/internal/models"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
)

const leaderboardKeyPrefix = "leaderboard:year:"

type leaderboardReader interface {
	Leaderboard(ctx context.Context, year int) ([]models.LeaderboardRow, error)
}

type leaderboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// LeaderboardService groups completed students by the courses they are
// active in, ranked by total ECTS. Results are cached per year with a TTL;
// any replan invalidates all cached years.
type LeaderboardService struct {
	ledger  leaderboardReader
	cache   leaderboardCache
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLeaderboardService constructs LeaderboardService. A nil cache disables
// caching entirely; metrics may be nil.
func NewLeaderboardService(ledger leaderboardReader, cache leaderboardCache, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{ledger: ledger, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// ForYear returns the per-course leaderboard of one enrolled year.
func (s *LeaderboardService) ForYear(ctx context.Context, year int) ([]models.LeaderboardCourse, error) {
	if !models.ValidEnrolledYear(year) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be 1, 2 or 3")
	}

	key := fmt.Sprintf("%s%d", leaderboardKeyPrefix, year)
	if s.cache != nil {
		var cached []models.LeaderboardCourse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	rows, err := s.ledger.Leaderboard(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}

	courses := groupLeaderboard(rows)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, courses, s.ttl); err != nil {
			s.logger.Warn("failed to cache leaderboard", zap.Int("year", year), zap.Error(err))
		}
	}
	return courses, nil
}

// Invalidate drops every cached leaderboard year.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, leaderboardKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate leaderboard cache", zap.Error(err))
	}
}

// groupLeaderboard folds the flat ordered rows into per-course groups,
// preserving the ranking order within each course.
func groupLeaderboard(rows []models.LeaderboardRow) []models.LeaderboardCourse {
	courses := []models.LeaderboardCourse{}
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.CourseID]
		if !ok {
			courses = append(courses, models.LeaderboardCourse{
				ID:       row.CourseID,
				Name:     row.CourseName,
				Semester: row.CourseSemester,
				Capacity: models.CourseCapacity{Max: row.CourseCapacity},
			})
			i = len(courses) - 1
			index[row.CourseID] = i
		}
		courses[i].Students = append(courses[i].Students, models.LeaderboardStudent{
			ID:        row.StudentID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Email:     row.Email,
			Module:    row.Module,
			TotalECTS: row.TotalECTS,
		})
		courses[i].Capacity.Current = len(courses[i].Students)
	}
	return courses
}
