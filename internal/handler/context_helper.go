package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/studomat-dev/studomat-api/internal/middleware"
	"github.com/studomat-dev/studomat-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextStudentKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
