package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/repository"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type requestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Request, error)
	ExistsPending(ctx context.Context, studentID, equipmentID string) (bool, error)
	Create(ctx context.Context, request *models.Request, audit *models.AuditLog) error
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
	Approve(ctx context.Context, params repository.ReviewParams) (*models.Rental, error)
	Reject(ctx context.Context, params repository.ReviewParams) error
}

type requestEquipmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Equipment, error)
}

type requestSemesterReader interface {
	FindActive(ctx context.Context) (*models.Semester, error)
}

// SubmitRequestRequest is a student's borrow petition payload.
type SubmitRequestRequest struct {
	EquipmentID string  `json:"equipment_id" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	Reason      *string `json:"reason"`
}

// ReviewRequestRequest carries an approve or reject decision.
type ReviewRequestRequest struct {
	Reason  *string    `json:"reason"`
	DueDate *time.Time `json:"due_date"`
}

// RequestService runs the borrow-request workflow. Submission never touches
// stock; stock is reserved inside the approval transaction.
type RequestService struct {
	repo      requestRepository
	equipment requestEquipmentReader
	semesters requestSemesterReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService creates a new request service instance.
func NewRequestService(repo requestRepository, equipment requestEquipmentReader, semesters requestSemesterReader, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{repo: repo, equipment: equipment, semesters: semesters, validator: validate, logger: logger}
}

// List returns paginated requests matching the filter.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a request by ID.
func (s *RequestService) Get(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// Submit files a new borrow request for the active semester. The quantity is
// checked against available stock as a courtesy precheck; the binding check
// happens at approval.
func (s *RequestService) Submit(ctx context.Context, student *models.User, req SubmitRequestRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	item, err := s.equipment.FindByID(ctx, req.EquipmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}
	if !item.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "equipment is not available for rental")
	}
	if req.Quantity > item.AvailableQuantity {
		return nil, appErrors.Clone(appErrors.ErrInsufficientStock, "")
	}

	semester, err := s.semesters.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidSemester, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active semester")
	}

	duplicate, err := s.repo.ExistsPending(ctx, student.ID, req.EquipmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if duplicate {
		return nil, appErrors.Clone(appErrors.ErrDuplicatePending, "")
	}

	request := &models.Request{
		StudentID:   student.ID,
		EquipmentID: req.EquipmentID,
		SemesterID:  semester.ID,
		Quantity:    req.Quantity,
		Status:      models.RequestStatusPending,
		Reason:      req.Reason,
	}
	audit := &models.AuditLog{
		ActorID: student.ID,
		Action:  models.AuditActionRequestSubmitted,
		Details: fmt.Sprintf("Requested %dx %s", req.Quantity, item.Name),
	}
	if err := s.repo.Create(ctx, request, audit); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, appErrors.Clone(appErrors.ErrDuplicatePending, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.logger.Info("request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_id", student.ID),
		zap.String("equipment_id", req.EquipmentID),
		zap.Int("quantity", req.Quantity))
	return request, nil
}

// Approve transitions a pending request to APPROVED, reserves stock and opens
// a rental in one transaction. A request that lost the race for stock fails
// with an insufficient-stock conflict and stays pending.
func (s *RequestService) Approve(ctx context.Context, reviewer *models.User, requestID string, req ReviewRequestRequest) (*models.Rental, error) {
	params := repository.ReviewParams{
		RequestID:       requestID,
		ReviewerID:      reviewer.ID,
		ReviewerName:    reviewer.Name,
		Reason:          req.Reason,
		DueDateOverride: req.DueDate,
	}
	rental, err := s.repo.Approve(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		case errors.Is(err, repository.ErrRequestNotPending):
			return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "")
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, appErrors.Clone(appErrors.ErrInsufficientStock, "")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
		}
	}

	s.logger.Info("request approved",
		zap.String("request_id", requestID),
		zap.String("reviewer_id", reviewer.ID),
		zap.String("rental_id", rental.ID))
	return rental, nil
}

// Reject transitions a pending request to REJECTED. Inventory is untouched.
func (s *RequestService) Reject(ctx context.Context, reviewer *models.User, requestID string, req ReviewRequestRequest) error {
	params := repository.ReviewParams{
		RequestID:    requestID,
		ReviewerID:   reviewer.ID,
		ReviewerName: reviewer.Name,
		Reason:       req.Reason,
	}
	if err := s.repo.Reject(ctx, params); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		case errors.Is(err, repository.ErrRequestNotPending):
			return appErrors.Clone(appErrors.ErrAlreadyReviewed, "")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
		}
	}

	s.logger.Info("request rejected",
		zap.String("request_id", requestID),
		zap.String("reviewer_id", reviewer.ID))
	return nil
}

// CountPending returns the number of pending requests.
func (s *RequestService) CountPending(ctx context.Context) (int, error) {
	count, err := s.repo.CountByStatus(ctx, models.RequestStatusPending)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	return count, nil
}
