package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusclub/gear-rental-api/internal/middleware"
	"github.com/campusclub/gear-rental-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func profileFromContext(c *gin.Context) *models.User {
	user, ok := middleware.CurrentProfile(c)
	if !ok {
		return nil
	}
	return user
}
