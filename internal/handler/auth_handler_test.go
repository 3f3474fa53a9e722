package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusclub/gear-rental-api/internal/middleware"
	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/service"
)

type fakeUserRepo struct {
	user *models.User
	err  error
}

func (f *fakeUserRepo) FindByID(context.Context, string) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeUserRepo) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (f *fakeUserRepo) SetApproval(context.Context, string, bool, *models.AuditLog) error {
	return nil
}

func (f *fakeUserRepo) CountPendingApproval(context.Context) (int, error) {
	return 0, nil
}

func TestAuthHandlerMeReturnsStoredProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &fakeUserRepo{user: &models.User{
		ID:         "user-1",
		Email:      "ben@club.dev",
		Name:       "Ben",
		Role:       models.RoleAdmin,
		IsApproved: true,
	}}
	handler := NewAuthHandler(nil, service.NewUserService(repo, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Email: "ben@club.dev", Role: models.RoleAdmin})

	handler.Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"is_approved":true`)
	require.Contains(t, rec.Body.String(), `"id":"user-1"`)
}

func TestAuthHandlerMeWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewAuthHandler(nil, service.NewUserService(&fakeUserRepo{}, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	handler.Me(c)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
