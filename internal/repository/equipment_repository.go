package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusclub/gear-rental-api/internal/models"
)

const equipmentColumns = "id, name, category, description, total_quantity, available_quantity, is_active, created_at, updated_at"

// EquipmentRepository handles persistence for the inventory ledger.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository instantiates an equipment repository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// List returns equipment matching the provided filters.
func (r *EquipmentRepository) List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	base := "FROM equipment WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "category": true, "available_quantity": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", equipmentColumns, base, sortBy, order, size, offset)

	var items []models.Equipment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}

	return items, total, nil
}

// ListAll returns every equipment record matching the filter without
// pagination. Used by exports, which must cover the whole catalog.
func (r *EquipmentRepository) ListAll(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, error) {
	base := "FROM equipment WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC", equipmentColumns, base)

	var items []models.Equipment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list all equipment: %w", err)
	}
	return items, nil
}

// Categories returns the distinct sorted categories of active equipment.
func (r *EquipmentRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.SelectContext(ctx, &categories, `SELECT DISTINCT category FROM equipment WHERE is_active = TRUE ORDER BY category`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID loads an equipment record by identifier.
func (r *EquipmentRepository) FindByID(ctx context.Context, id string) (*models.Equipment, error) {
	query := fmt.Sprintf("SELECT %s FROM equipment WHERE id = $1", equipmentColumns)
	var item models.Equipment
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new equipment record and its audit entry atomically.
func (r *EquipmentRepository) Create(ctx context.Context, item *models.Equipment, audit *models.AuditLog) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create equipment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO equipment (id, name, category, description, total_quantity, available_quantity, is_active, created_at, updated_at)
VALUES (:id, :name, :category, :description, :total_quantity, :available_quantity, :is_active, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, query, item); err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}

	if err = insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create equipment tx: %w", err)
	}
	return nil
}

// EquipmentUpdate carries the mutable equipment fields. Nil means unchanged;
// the total-quantity delta is mirrored onto available_quantity.
type EquipmentUpdate struct {
	Name          *string
	Category      *string
	Description   *string
	TotalQuantity *int
	IsActive      *bool
}

// Update applies a partial update. A total-quantity change adjusts
// available_quantity by the same delta inside the transaction; when the delta
// would drive available below zero the whole update fails with
// ErrInvalidAdjustment.
func (r *EquipmentRepository) Update(ctx context.Context, id string, upd EquipmentUpdate, audit *models.AuditLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update equipment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	if upd.TotalQuantity != nil {
		// The conditional guard serializes against concurrent reservations on
		// the same row.
		var res sql.Result
		res, err = tx.ExecContext(ctx, `UPDATE equipment
SET total_quantity = $2,
    available_quantity = available_quantity + ($2 - total_quantity),
    updated_at = $3
WHERE id = $1 AND available_quantity + ($2 - total_quantity) >= 0`, id, *upd.TotalQuantity, now)
		if err != nil {
			return fmt.Errorf("adjust total quantity: %w", err)
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("adjust total quantity result: %w", err)
		}
		if n == 0 {
			err = ErrInvalidAdjustment
			return err
		}
	}

	sets := []string{"updated_at = $2"}
	args := []interface{}{id, now}
	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		appendSet("name", *upd.Name)
	}
	if upd.Category != nil {
		appendSet("category", *upd.Category)
	}
	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.IsActive != nil {
		appendSet("is_active", *upd.IsActive)
	}

	if len(sets) > 1 {
		query := fmt.Sprintf("UPDATE equipment SET %s WHERE id = $1", strings.Join(sets, ", "))
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update equipment: %w", err)
		}
	}

	if err = insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update equipment tx: %w", err)
	}
	return nil
}

// CountActive counts active equipment records.
func (r *EquipmentRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM equipment WHERE is_active = TRUE`); err != nil {
		return 0, fmt.Errorf("count active equipment: %w", err)
	}
	return count, nil
}

// reserveEquipment atomically decrements available stock. The conditional
// update both validates and applies the reservation, so two concurrent
// reservations can never drive availability negative.
func reserveEquipment(ctx context.Context, ext sqlx.ExtContext, equipmentID string, qty int) error {
	res, err := ext.ExecContext(ctx, `UPDATE equipment
SET available_quantity = available_quantity - $2, updated_at = $3
WHERE id = $1 AND is_active = TRUE AND available_quantity >= $2`, equipmentID, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reserve equipment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve equipment result: %w", err)
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// releaseEquipment returns stock to the pool, clamped at total_quantity.
func releaseEquipment(ctx context.Context, ext sqlx.ExtContext, equipmentID string, qty int) error {
	if _, err := ext.ExecContext(ctx, `UPDATE equipment
SET available_quantity = LEAST(available_quantity + $2, total_quantity), updated_at = $3
WHERE id = $1`, equipmentID, qty, time.Now().UTC()); err != nil {
		return fmt.Errorf("release equipment: %w", err)
	}
	return nil
}
