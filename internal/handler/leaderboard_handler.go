package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studomat-dev/studomat-api/internal/service"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/response"
)

// LeaderboardHandler exposes the per-year course leaderboard.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardHandler constructs LeaderboardHandler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// ForYear godoc
// @Summary Course leaderboard for one curriculum year
// @Description Courses with enrolled students ranked by earned ECTS
// @Tags Leaderboard
// @Produce json
// @Param year path int true "Curriculum year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/{year} [get]
func (h *LeaderboardHandler) ForYear(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	courses, err := h.leaderboard.ForYear(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
