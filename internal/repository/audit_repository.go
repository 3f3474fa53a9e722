package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusclub/gear-rental-api/internal/models"
)

// AuditRepository handles the append-only audit trail. There are no update or
// delete operations.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository instantiates an audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertAuditQuery = `INSERT INTO audit_logs (id, actor_id, action, target_id, details, metadata, created_at) VALUES (:id, :actor_id, :action, :target_id, :details, :metadata, :created_at)`

// Insert appends an audit entry outside any surrounding transaction.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	return insertAudit(ctx, r.db, entry)
}

// insertAudit appends an entry using the provided execution handle, so that
// workflow transactions can include their audit write atomically.
func insertAudit(ctx context.Context, ext sqlx.ExtContext, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, ext, insertAuditQuery, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns audit entries filtered by action and/or actor, newest first,
// bounded by the filter limit.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogDetail, error) {
	base := `SELECT a.id, a.actor_id, a.action, a.target_id, a.details, a.metadata, a.created_at, u.name AS actor_name
FROM audit_logs a
JOIN users u ON u.id = a.actor_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("a.action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.ActorID != "" {
		conditions = append(conditions, fmt.Sprintf("a.actor_id = $%d", len(args)+1))
		args = append(args, filter.ActorID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("%s ORDER BY a.created_at DESC LIMIT %d", base, limit)

	var entries []models.AuditLogDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
