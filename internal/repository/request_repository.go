package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusclub/gear-rental-api/internal/models"
)

// RequestRepository handles persistence for the request workflow. The review
// transition runs as one transaction spanning the request row, the inventory
// reservation, the rental insert and the audit entries.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository instantiates a request repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestDetailQuery = `SELECT r.id, r.student_id, r.equipment_id, r.semester_id, r.quantity, r.status, r.reason,
       r.request_date, r.reviewed_by, r.review_date, r.created_at, r.updated_at,
       s.name AS student_name, e.name AS equipment_name, sem.name AS semester_name, rev.name AS reviewer_name
FROM requests r
JOIN users s ON s.id = r.student_id
JOIN equipment e ON e.id = r.equipment_id
JOIN semesters sem ON sem.id = r.semester_id
LEFT JOIN users rev ON rev.id = r.reviewed_by`

// List returns requests with joined display fields.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
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
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("%s %s ORDER BY r.request_date DESC LIMIT %d OFFSET %d", requestDetailQuery, where, size, offset)

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM requests r " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	return requests, total, nil
}

// FindByID loads a request by identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	const query = `SELECT id, student_id, equipment_id, semester_id, quantity, status, reason, request_date, reviewed_by, review_date, created_at, updated_at FROM requests WHERE id = $1`
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ExistsPending reports whether the student already holds a pending request
// for the equipment.
func (r *RequestRepository) ExistsPending(ctx context.Context, studentID, equipmentID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM requests WHERE student_id = $1 AND equipment_id = $2 AND status = $3 LIMIT 1`, studentID, equipmentID, models.RequestStatusPending)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return true, nil
}

// Create inserts a pending request and its audit entry atomically.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request, audit *models.AuditLog) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO requests (id, student_id, equipment_id, semester_id, quantity, status, reason, request_date, created_at, updated_at)
VALUES (:id, :student_id, :equipment_id, :semester_id, :quantity, :status, :reason, :request_date, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, query, request); err != nil {
		if isUniqueViolation(err, "requests_single_pending") {
			err = ErrDuplicatePending
			return err
		}
		return fmt.Errorf("create request: %w", err)
	}

	if err = insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create request tx: %w", err)
	}
	return nil
}

// CountByStatus counts requests in the given state.
func (r *RequestRepository) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM requests WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

// ReviewParams identifies the request under review and the deciding member.
type ReviewParams struct {
	RequestID       string
	ReviewerID      string
	ReviewerName    string
	Reason          *string
	DueDateOverride *time.Time
}

type lockedRequest struct {
	models.Request
	StudentName   string    `db:"student_name"`
	EquipmentName string    `db:"equipment_name"`
	SemesterEnd   time.Time `db:"semester_end"`
}

const lockRequestQuery = `SELECT r.id, r.student_id, r.equipment_id, r.semester_id, r.quantity, r.status, r.reason,
       r.request_date, r.reviewed_by, r.review_date, r.created_at, r.updated_at,
       s.name AS student_name, e.name AS equipment_name, sem.end_date AS semester_end
FROM requests r
JOIN users s ON s.id = r.student_id
JOIN equipment e ON e.id = r.equipment_id
JOIN semesters sem ON sem.id = r.semester_id
WHERE r.id = $1
FOR UPDATE OF r`

// Approve transitions a pending request to approved: it re-validates stock,
// reserves inventory and creates the linked rental in a single transaction.
// Returns ErrRequestNotPending when the request was already reviewed and
// ErrInsufficientStock when the re-check fails; in either case nothing is
// persisted.
func (r *RequestRepository) Approve(ctx context.Context, params ReviewParams) (*models.Rental, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked lockedRequest
	if err = tx.GetContext(ctx, &locked, lockRequestQuery, params.RequestID); err != nil {
		return nil, err
	}
	if locked.Status != models.RequestStatusPending {
		err = ErrRequestNotPending
		return nil, err
	}

	if err = reserveEquipment(ctx, tx, locked.EquipmentID, locked.Quantity); err != nil {
		return nil, err
	}

	dueDate := locked.SemesterEnd
	if params.DueDateOverride != nil {
		dueDate = *params.DueDateOverride
	}

	rental := &models.Rental{
		ID:          uuid.NewString(),
		StudentID:   locked.StudentID,
		EquipmentID: locked.EquipmentID,
		SemesterID:  locked.SemesterID,
		RequestID:   &locked.Request.ID,
		Quantity:    locked.Quantity,
		StartDate:   now,
		DueDate:     dueDate,
		IsReturned:  false,
		RentedBy:    params.ReviewerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = insertRental(ctx, tx, rental); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE requests SET status = $2, reason = $3, reviewed_by = $4, review_date = $5, updated_at = $5 WHERE id = $1`,
		locked.Request.ID, models.RequestStatusApproved, params.Reason, params.ReviewerID, now); err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}

	metadata, _ := json.Marshal(models.AuditMetadata{
		EquipmentName: locked.EquipmentName,
		StudentName:   locked.StudentName,
		Quantity:      locked.Quantity,
	})

	reviewDetails := fmt.Sprintf("%s approved request from %s for %s", params.ReviewerName, locked.StudentName, locked.EquipmentName)
	if params.Reason != nil && *params.Reason != "" {
		reviewDetails += ": " + *params.Reason
	}
	if err = insertAudit(ctx, tx, &models.AuditLog{
		ActorID:  params.ReviewerID,
		Action:   models.AuditActionRequestApproved,
		TargetID: &locked.Request.ID,
		Details:  reviewDetails,
		Metadata: metadata,
	}); err != nil {
		return nil, err
	}

	if err = insertAudit(ctx, tx, &models.AuditLog{
		ActorID:  params.ReviewerID,
		Action:   models.AuditActionEquipmentRented,
		TargetID: &rental.ID,
		Details:  fmt.Sprintf("Rented %dx %s to %s", locked.Quantity, locked.EquipmentName, locked.StudentName),
		Metadata: metadata,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve tx: %w", err)
	}
	return rental, nil
}

// Reject transitions a pending request to rejected. No inventory effect.
func (r *RequestRepository) Reject(ctx context.Context, params ReviewParams) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked lockedRequest
	if err = tx.GetContext(ctx, &locked, lockRequestQuery, params.RequestID); err != nil {
		return err
	}
	if locked.Status != models.RequestStatusPending {
		err = ErrRequestNotPending
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE requests SET status = $2, reason = $3, reviewed_by = $4, review_date = $5, updated_at = $5 WHERE id = $1`,
		locked.Request.ID, models.RequestStatusRejected, params.Reason, params.ReviewerID, now); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	metadata, _ := json.Marshal(models.AuditMetadata{
		EquipmentName: locked.EquipmentName,
		StudentName:   locked.StudentName,
		Quantity:      locked.Quantity,
	})

	details := fmt.Sprintf("%s rejected request from %s for %s", params.ReviewerName, locked.StudentName, locked.EquipmentName)
	if params.Reason != nil && *params.Reason != "" {
		details += ": " + *params.Reason
	}
	if err = insertAudit(ctx, tx, &models.AuditLog{
		ActorID:  params.ReviewerID,
		Action:   models.AuditActionRequestRejected,
		TargetID: &locked.Request.ID,
		Details:  details,
		Metadata: metadata,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reject tx: %w", err)
	}
	return nil
}
