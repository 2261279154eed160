package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/studomat-dev/studomat-api/internal/middleware"
	"github.com/studomat-dev/studomat-api/internal/models"
)

func TestEnrollmentHandlerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/enrollment/active", nil)

	handler.ActiveLoad(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentHandlerRejectsMalformedYearPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollment/year", strings.NewReader("{"))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextStudentKey, &models.JWTClaims{StudentID: "s1"})

	handler.SelectYear(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimsFromContextIgnoresWrongType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextStudentKey, "not-claims")

	assert.Nil(t, claimsFromContext(c))
}
