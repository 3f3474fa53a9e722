package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type auditRepository interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogDetail, error)
}

// AuditService exposes read access to the append-only audit log. Entries are
// written transactionally by the repositories; this service never writes.
type AuditService struct {
	repo         auditRepository
	logger       *zap.Logger
	defaultLimit int
	maxLimit     int
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(repo auditRepository, logger *zap.Logger, defaultLimit, maxLimit int) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &AuditService{repo: repo, logger: logger, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// History returns recent audit entries, newest first.
func (s *AuditService) History(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogDetail, error) {
	filter.Limit = s.clampLimit(filter.Limit)
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit history")
	}
	return entries, nil
}

// MyHistory returns recent audit entries created by a single actor.
func (s *AuditService) MyHistory(ctx context.Context, actorID string, limit int) ([]models.AuditLogDetail, error) {
	return s.History(ctx, models.AuditFilter{ActorID: actorID, Limit: limit})
}

func (s *AuditService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
