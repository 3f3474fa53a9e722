package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	SetApproval(ctx context.Context, id string, approved bool, audit *models.AuditLog) error
	CountPendingApproval(ctx context.Context) (int, error)
}

// UserService manages member directory and approval workflows.
type UserService struct {
	repo   userRepository
	logger *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger}
}

// List returns users matching the filter along with pagination info.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user, nil
}

// SetApproval approves or rejects a pending account. The change and its audit
// entry are committed atomically.
func (s *UserService) SetApproval(ctx context.Context, actorID, userID string, approved bool) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsApproved == approved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account approval already in requested state")
	}

	action := models.AuditActionUserApproved
	verb := "Approved"
	if !approved {
		action = models.AuditActionUserRejected
		verb = "Rejected"
	}
	audit := &models.AuditLog{
		ActorID:  actorID,
		Action:   action,
		TargetID: &user.ID,
		Details:  fmt.Sprintf("%s account for %s (%s)", verb, user.Name, user.Email),
	}
	if err := s.repo.SetApproval(ctx, userID, approved, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval")
	}

	user.IsApproved = approved
	s.logger.Info("user approval changed",
		zap.String("user_id", userID),
		zap.Bool("approved", approved),
		zap.String("actor_id", actorID))
	return user, nil
}

// CountPendingApproval returns the number of accounts awaiting review.
func (s *UserService) CountPendingApproval(ctx context.Context) (int, error) {
	count, err := s.repo.CountPendingApproval(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending accounts")
	}
	return count, nil
}
