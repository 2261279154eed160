package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studomat-dev/studomat-api/internal/models"
	"github.com/studomat-dev/studomat-api/internal/service"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service     *service.AuthService
	metrics     *service.MetricsService
	leaderboard *service.LeaderboardService
}

// NewAuthHandler creates a new handler. Metrics and leaderboard are optional.
func NewAuthHandler(svc *service.AuthService, metrics *service.MetricsService, leaderboard *service.LeaderboardService) *AuthHandler {
	return &AuthHandler{service: svc, metrics: metrics, leaderboard: leaderboard}
}

// Register godoc
// @Summary Register a new student
// @Description Create a student account with a generated email and jmbag
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordRegistration()
	if h.leaderboard != nil {
		h.leaderboard.Invalidate(c.Request.Context())
	}

	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate student
// @Description Authenticate a student by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
