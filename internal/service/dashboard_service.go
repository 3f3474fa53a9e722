package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type dashboardEquipmentCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardRentalCounter interface {
	CountOpen(ctx context.Context) (int, error)
	CountOverdue(ctx context.Context, now time.Time) (int, error)
}

type dashboardRequestCounter interface {
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
}

type dashboardUserCounter interface {
	CountApprovedByRole(ctx context.Context, role models.UserRole) (int, error)
	CountPendingApproval(ctx context.Context) (int, error)
}

const dashboardStatsCacheKey = "dash:stats"

// DashboardService composes headline counts for the club dashboard.
type DashboardService struct {
	equipment dashboardEquipmentCounter
	rentals   dashboardRentalCounter
	requests  dashboardRequestCounter
	users     dashboardUserCounter
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cacheTTL  time.Duration
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(equipment dashboardEquipmentCounter, rentals dashboardRentalCounter, requests dashboardRequestCounter, users dashboardUserCounter, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		equipment: equipment,
		rentals:   rentals,
		requests:  requests,
		users:     users,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
		cacheTTL:  cacheTTL,
	}
}

// Stats returns the dashboard summary and indicates cache utilisation. The
// overdue count is derived from due dates at call time, so cached values may
// lag by at most the cache TTL.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	if s.cache != nil {
		var cached models.DashboardStats
		hit, err := s.cache.Get(ctx, dashboardStatsCacheKey, &cached)
		if err != nil {
			return nil, false, err
		}
		if hit {
			return &cached, true, nil
		}
	}

	stats, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardStatsCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
		}
	}
	return stats, false, nil
}

// Invalidate drops the cached dashboard payload after a state change.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardStatsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now().UTC()

	totalEquipment, err := s.equipment.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count equipment")
	}
	activeRentals, err := s.rentals.CountOpen(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active rentals")
	}
	overdue, err := s.rentals.CountOverdue(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count overdue rentals")
	}
	pendingRequests, err := s.requests.CountByStatus(ctx, models.RequestStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	totalStudents, err := s.users.CountApprovedByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	pendingUsers, err := s.users.CountPendingApproval(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending accounts")
	}

	return &models.DashboardStats{
		TotalEquipment:  totalEquipment,
		ActiveRentals:   activeRentals,
		PendingRequests: pendingRequests,
		OverdueRentals:  overdue,
		TotalStudents:   totalStudents,
		PendingUsers:    pendingUsers,
	}, nil
}
