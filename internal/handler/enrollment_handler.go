package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studomat-dev/studomat-api/internal/service"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/response"
)

// EnrollmentHandler exposes the enrollment workflow endpoints. Every route
// acts on the authenticated student from the JWT claims.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	exports     *service.ExportService
	metrics     *service.MetricsService
	leaderboard *service.LeaderboardService
}

// NewEnrollmentHandler constructs EnrollmentHandler. Metrics and leaderboard
// are optional.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, exports *service.ExportService, metrics *service.MetricsService, leaderboard *service.LeaderboardService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, exports: exports, metrics: metrics, leaderboard: leaderboard}
}

func (h *EnrollmentHandler) invalidateLeaderboard(c *gin.Context) {
	if h.leaderboard != nil {
		h.leaderboard.Invalidate(c.Request.Context())
	}
}

// SelectYear godoc
// @Summary Select the enrollment year
// @Description Record the target year and reset downstream enrollment steps
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.SelectYearRequest true "Year payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollment/year [post]
func (h *EnrollmentHandler) SelectYear(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SelectYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.enrollments.SelectYear(c.Request.Context(), claims.StudentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateLeaderboard(c)
	response.JSON(c, http.StatusOK, student, nil)
}

// SelectCourses godoc
// @Summary Select courses by name
// @Description Validate the explicit picks for both semester slots and replace the active load
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.SelectCoursesRequest true "Course picks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollment/courses [post]
func (h *EnrollmentHandler) SelectCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SelectCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	load, err := h.enrollments.SelectCourses(c.Request.Context(), claims.StudentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateLeaderboard(c)
	response.JSON(c, http.StatusOK, load, nil)
}

// AutoFill godoc
// @Summary Auto-fill the active load
// @Description Build a plan for the selected year, retakes before new courses
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment/auto-fill [post]
func (h *EnrollmentHandler) AutoFill(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	load, err := h.enrollments.AutoFill(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPlanBuilt()
	h.invalidateLeaderboard(c)
	response.JSON(c, http.StatusOK, load, nil)
}

// ActiveLoad godoc
// @Summary Get the current active load
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment/active [get]
func (h *EnrollmentHandler) ActiveLoad(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	load, err := h.enrollments.ActiveLoad(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, load, nil)
}

// Candidates godoc
// @Summary List selectable courses for the chosen year
// @Description Courses per slot flagged with retake and prerequisite state
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment/candidates [get]
func (h *EnrollmentHandler) Candidates(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	candidates, err := h.enrollments.Candidates(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// FailedCourses godoc
// @Summary List failed courses split by semester parity
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment/failed [get]
func (h *EnrollmentHandler) FailedCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	winter, summer, err := h.enrollments.FailedByParity(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"winter": winter, "summer": summer}, nil)
}

// Export godoc
// @Summary Download the active load as PDF or CSV
// @Tags Enrollment
// @Produce application/pdf
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Router /enrollment/active/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportPDF)))
	result, err := h.exports.ActiveLoad(c.Request.Context(), claims.StudentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.ContentType, result.Filename, result.Data)
}
