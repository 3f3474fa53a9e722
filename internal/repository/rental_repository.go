package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusclub/gear-rental-api/internal/models"
)

// RentalRepository handles persistence for equipment loans. Creation and
// return each run as one transaction covering the inventory mutation, the
// rental row and the audit entry.
type RentalRepository struct {
	db *sqlx.DB
}

// NewRentalRepository instantiates a rental repository.
func NewRentalRepository(db *sqlx.DB) *RentalRepository {
	return &RentalRepository{db: db}
}

const rentalDetailQuery = `SELECT r.id, r.student_id, r.equipment_id, r.semester_id, r.request_id, r.quantity,
       r.start_date, r.due_date, r.return_date, r.late_fee, r.is_returned, r.rented_by, r.created_at, r.updated_at,
       s.name AS student_name, e.name AS equipment_name, sem.name AS semester_name, m.name AS rented_by_name
FROM rentals r
JOIN users s ON s.id = r.student_id
JOIN equipment e ON e.id = r.equipment_id
JOIN semesters sem ON sem.id = r.semester_id
JOIN users m ON m.id = r.rented_by`

// List returns rentals with joined display fields, newest first.
func (r *RentalRepository) List(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, int, error) {
	where := "WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.EquipmentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.equipment_id = $%d", len(args)+1))
		args = append(args, filter.EquipmentID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("r.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.IsReturned != nil {
		conditions = append(conditions, fmt.Sprintf("r.is_returned = $%d", len(args)+1))
		args = append(args, *filter.IsReturned)
	}
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("%s %s ORDER BY r.start_date DESC LIMIT %d OFFSET %d", rentalDetailQuery, where, size, offset)

	var rentals []models.RentalDetail
	if err := r.db.SelectContext(ctx, &rentals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rentals: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM rentals r " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rentals: %w", err)
	}

	return rentals, total, nil
}

// ListAll returns every rental matching the filter without pagination. Used
// by exports, which must cover the whole ledger.
func (r *RentalRepository) ListAll(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, error) {
	where := "WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.EquipmentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.equipment_id = $%d", len(args)+1))
		args = append(args, filter.EquipmentID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("r.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.IsReturned != nil {
		conditions = append(conditions, fmt.Sprintf("r.is_returned = $%d", len(args)+1))
		args = append(args, *filter.IsReturned)
	}
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("%s %s ORDER BY r.start_date DESC", rentalDetailQuery, where)

	var rentals []models.RentalDetail
	if err := r.db.SelectContext(ctx, &rentals, query, args...); err != nil {
		return nil, fmt.Errorf("list all rentals: %w", err)
	}
	return rentals, nil
}

// FindByID loads a rental by identifier.
func (r *RentalRepository) FindByID(ctx context.Context, id string) (*models.Rental, error) {
	const query = `SELECT id, student_id, equipment_id, semester_id, request_id, quantity, start_date, due_date, return_date, late_fee, is_returned, rented_by, created_at, updated_at FROM rentals WHERE id = $1`
	var rental models.Rental
	if err := r.db.GetContext(ctx, &rental, query, id); err != nil {
		return nil, err
	}
	return &rental, nil
}

// ListOverdue returns open rentals whose due date has passed.
func (r *RentalRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.RentalDetail, error) {
	query := rentalDetailQuery + " WHERE r.is_returned = FALSE AND r.due_date < $1"
	var rentals []models.RentalDetail
	if err := r.db.SelectContext(ctx, &rentals, query, now); err != nil {
		return nil, fmt.Errorf("list overdue rentals: %w", err)
	}
	return rentals, nil
}

// CountOpen counts rentals not yet returned.
func (r *RentalRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM rentals WHERE is_returned = FALSE`); err != nil {
		return 0, fmt.Errorf("count open rentals: %w", err)
	}
	return count, nil
}

// CountOverdue counts open rentals past their due date.
func (r *RentalRepository) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM rentals WHERE is_returned = FALSE AND due_date < $1`, now); err != nil {
		return 0, fmt.Errorf("count overdue rentals: %w", err)
	}
	return count, nil
}

const insertRentalQuery = `INSERT INTO rentals (id, student_id, equipment_id, semester_id, request_id, quantity, start_date, due_date, is_returned, rented_by, created_at, updated_at)
VALUES (:id, :student_id, :equipment_id, :semester_id, :request_id, :quantity, :start_date, :due_date, :is_returned, :rented_by, :created_at, :updated_at)`

func insertRental(ctx context.Context, ext sqlx.ExtContext, rental *models.Rental) error {
	if _, err := sqlx.NamedExecContext(ctx, ext, insertRentalQuery, rental); err != nil {
		return fmt.Errorf("insert rental: %w", err)
	}
	return nil
}

// DirectRentalParams describes a rental created without a preceding request.
type DirectRentalParams struct {
	StudentID     string
	StudentName   string
	EquipmentID   string
	EquipmentName string
	SemesterID    string
	Quantity      int
	DueDate       time.Time
	RentedBy      string
}

// CreateDirect reserves inventory and creates an open rental in a single
// transaction. Returns ErrInsufficientStock when the conditional reservation
// finds no stock; no rental row or inventory change survives the failure.
func (r *RentalRepository) CreateDirect(ctx context.Context, params DirectRentalParams) (*models.Rental, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin direct rental tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = reserveEquipment(ctx, tx, params.EquipmentID, params.Quantity); err != nil {
		return nil, err
	}

	rental := &models.Rental{
		ID:          uuid.NewString(),
		StudentID:   params.StudentID,
		EquipmentID: params.EquipmentID,
		SemesterID:  params.SemesterID,
		Quantity:    params.Quantity,
		StartDate:   now,
		DueDate:     params.DueDate,
		IsReturned:  false,
		RentedBy:    params.RentedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = insertRental(ctx, tx, rental); err != nil {
		return nil, err
	}

	metadata, _ := json.Marshal(models.AuditMetadata{
		EquipmentName: params.EquipmentName,
		StudentName:   params.StudentName,
		Quantity:      params.Quantity,
	})
	if err = insertAudit(ctx, tx, &models.AuditLog{
		ActorID:  params.RentedBy,
		Action:   models.AuditActionEquipmentRented,
		TargetID: &rental.ID,
		Details:  fmt.Sprintf("Direct rental: %dx %s to %s", params.Quantity, params.EquipmentName, params.StudentName),
		Metadata: metadata,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit direct rental tx: %w", err)
	}
	return rental, nil
}

// ReturnParams describes the closing of a rental.
type ReturnParams struct {
	RentalID string
	ActorID  string
	LateFee  int64
	Now      time.Time
}

type lockedRental struct {
	models.Rental
	StudentName   string `db:"student_name"`
	EquipmentName string `db:"equipment_name"`
}

const lockRentalQuery = `SELECT r.id, r.student_id, r.equipment_id, r.semester_id, r.request_id, r.quantity,
       r.start_date, r.due_date, r.return_date, r.late_fee, r.is_returned, r.rented_by, r.created_at, r.updated_at,
       s.name AS student_name, e.name AS equipment_name
FROM rentals r
JOIN users s ON s.id = r.student_id
JOIN equipment e ON e.id = r.equipment_id
WHERE r.id = $1
FOR UPDATE OF r`

// Return closes a rental exactly once: it releases the reserved quantity,
// stamps the return date, stores the final late fee and appends the audit
// entry, all in one transaction. Returns ErrAlreadyReturned for a closed
// rental, leaving state and inventory untouched.
func (r *RentalRepository) Return(ctx context.Context, params ReturnParams) (*models.Rental, error) {
	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin return tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked lockedRental
	if err = tx.GetContext(ctx, &locked, lockRentalQuery, params.RentalID); err != nil {
		return nil, err
	}
	if locked.IsReturned {
		err = ErrAlreadyReturned
		return nil, err
	}

	if err = releaseEquipment(ctx, tx, locked.EquipmentID, locked.Quantity); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE rentals SET is_returned = TRUE, return_date = $2, late_fee = $3, updated_at = $2 WHERE id = $1`,
		locked.Rental.ID, now, params.LateFee); err != nil {
		return nil, fmt.Errorf("close rental: %w", err)
	}

	details := fmt.Sprintf("Returned %dx %s from %s", locked.Quantity, locked.EquipmentName, locked.StudentName)
	if params.LateFee > 0 {
		details += fmt.Sprintf(" (late fee: %d)", params.LateFee)
	}
	fee := params.LateFee
	metadata, _ := json.Marshal(models.AuditMetadata{
		EquipmentName: locked.EquipmentName,
		StudentName:   locked.StudentName,
		Quantity:      locked.Quantity,
		LateFee:       &fee,
	})
	if err = insertAudit(ctx, tx, &models.AuditLog{
		ActorID:  params.ActorID,
		Action:   models.AuditActionEquipmentReturned,
		TargetID: &locked.Rental.ID,
		Details:  details,
		Metadata: metadata,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit return tx: %w", err)
	}

	closed := locked.Rental
	closed.IsReturned = true
	closed.ReturnDate = &now
	closed.LateFee = &fee
	closed.UpdatedAt = now
	return &closed, nil
}
