package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/studomat-dev/studomat-api/internal/models"
	"github.com/studomat-dev/studomat-api/internal/service"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
)

type fakeLeaderboardReader struct {
	rows []models.LeaderboardRow
	err  error
}

func (f *fakeLeaderboardReader) Leaderboard(context.Context, int) ([]models.LeaderboardRow, error) {
	return f.rows, f.err
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) error { return appErrors.ErrCacheMiss }
func (noopCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (noopCache) DeleteByPattern(context.Context, string) error { return nil }

func newLeaderboardHandlerTest(rows []models.LeaderboardRow) *LeaderboardHandler {
	svc := service.NewLeaderboardService(&fakeLeaderboardReader{rows: rows}, noopCache{}, time.Minute, nil, nil)
	return NewLeaderboardHandler(svc)
}

func TestLeaderboardHandlerRejectsBadYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newLeaderboardHandlerTest(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/leaderboard/two", nil)
	c.Params = gin.Params{{Key: "year", Value: "two"}}

	handler.ForYear(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardHandlerGroupsRows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newLeaderboardHandlerTest([]models.LeaderboardRow{
		{CourseID: "c1", CourseName: "Algebra", CourseSemester: 1, CourseCapacity: 30, StudentID: "s1", FirstName: "Iva", LastName: "Kovac", TotalECTS: 24},
		{CourseID: "c1", CourseName: "Algebra", CourseSemester: 1, CourseCapacity: 30, StudentID: "s2", FirstName: "Marko", LastName: "Novak", TotalECTS: 18},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/leaderboard/1", nil)
	c.Params = gin.Params{{Key: "year", Value: "1"}}

	handler.ForYear(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.LeaderboardCourse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if assert.Len(t, envelope.Data, 1) {
		assert.Equal(t, "Algebra", envelope.Data[0].Name)
		assert.Len(t, envelope.Data[0].Students, 2)
		assert.Equal(t, 2, envelope.Data[0].Capacity.Current)
	}
}
