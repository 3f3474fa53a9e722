package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type mockUserRepo struct {
	user          *models.User
	users         []models.User
	pendingCount  int
	approvalAudit *models.AuditLog
	approvalSet   *bool
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return m.users, len(m.users), nil
}

func (m *mockUserRepo) SetApproval(ctx context.Context, id string, approved bool, audit *models.AuditLog) error {
	m.approvalSet = &approved
	m.approvalAudit = audit
	return nil
}

func (m *mockUserRepo) CountPendingApproval(ctx context.Context) (int, error) {
	return m.pendingCount, nil
}

func TestUserServiceApprove(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u2", Name: "Pending", Email: "p@club.test", IsApproved: false}}
	svc := NewUserService(repo, zap.NewNop())

	user, err := svc.SetApproval(context.Background(), "adm-1", "u2", true)
	require.NoError(t, err)
	assert.True(t, user.IsApproved)
	require.NotNil(t, repo.approvalAudit)
	assert.Equal(t, models.AuditActionUserApproved, repo.approvalAudit.Action)
	assert.Equal(t, "adm-1", repo.approvalAudit.ActorID)
}

func TestUserServiceRejectRecordsAudit(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u2", Name: "Pending", IsApproved: true}}
	svc := NewUserService(repo, zap.NewNop())

	user, err := svc.SetApproval(context.Background(), "adm-1", "u2", false)
	require.NoError(t, err)
	assert.False(t, user.IsApproved)
	assert.Equal(t, models.AuditActionUserRejected, repo.approvalAudit.Action)
}

func TestUserServiceApproveAlreadyApproved(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u2", IsApproved: true}}
	svc := NewUserService(repo, zap.NewNop())

	_, err := svc.SetApproval(context.Background(), "adm-1", "u2", true)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserServiceGetNotFound(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
