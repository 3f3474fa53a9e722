package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/service"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
	"github.com/campusclub/gear-rental-api/pkg/response"
)

// ContextProfileKey is the gin context key storing the loaded user profile.
const ContextProfileKey = "currentProfile"

// ApprovalGuard loads the caller's profile and blocks unapproved accounts.
// Runs after JWT; the profile is fetched fresh so revoked approvals take
// effect immediately rather than at token expiry.
func ApprovalGuard(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		user, err := users.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			c.Abort()
			return
		}
		if !user.IsApproved {
			response.Error(c, appErrors.ErrUnapproved)
			c.Abort()
			return
		}

		c.Set(ContextProfileKey, user)
		c.Next()
	}
}

// CurrentProfile returns the loaded profile set by ApprovalGuard.
func CurrentProfile(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextProfileKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// CurrentClaims returns the JWT claims set by the JWT middleware.
func CurrentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
