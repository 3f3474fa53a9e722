package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/repository"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type rentalRepository interface {
	List(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, int, error)
	ListAll(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, error)
	FindByID(ctx context.Context, id string) (*models.Rental, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.RentalDetail, error)
	CountOverdue(ctx context.Context, now time.Time) (int, error)
	CreateDirect(ctx context.Context, params repository.DirectRentalParams) (*models.Rental, error)
	Return(ctx context.Context, params repository.ReturnParams) (*models.Rental, error)
}

type rentalUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type rentalEquipmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Equipment, error)
}

type rentalSemesterReader interface {
	FindActive(ctx context.Context) (*models.Semester, error)
}

// CreateRentalRequest opens a rental directly, skipping the request workflow.
type CreateRentalRequest struct {
	StudentID   string     `json:"student_id" validate:"required"`
	EquipmentID string     `json:"equipment_id" validate:"required"`
	Quantity    int        `json:"quantity" validate:"required,min=1"`
	DueDate     *time.Time `json:"due_date"`
}

// ReturnRentalRequest closes a rental. LateFeeOverride replaces the computed
// fee when set.
type ReturnRentalRequest struct {
	LateFeeOverride *int64 `json:"late_fee_override" validate:"omitempty,min=0"`
}

// RentalService manages the rental ledger and return flow.
type RentalService struct {
	repo         rentalRepository
	users        rentalUserReader
	equipment    rentalEquipmentReader
	semesters    rentalSemesterReader
	validator    *validator.Validate
	logger       *zap.Logger
	lateFeeDaily int64
}

// NewRentalService creates a new rental service instance.
func NewRentalService(repo rentalRepository, users rentalUserReader, equipment rentalEquipmentReader, semesters rentalSemesterReader, validate *validator.Validate, logger *zap.Logger, lateFeeDailyRate int64) *RentalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lateFeeDailyRate <= 0 {
		lateFeeDailyRate = 10
	}
	return &RentalService{
		repo:         repo,
		users:        users,
		equipment:    equipment,
		semesters:    semesters,
		validator:    validate,
		logger:       logger,
		lateFeeDaily: lateFeeDailyRate,
	}
}

// List returns paginated rentals with the overdue projection applied to each
// open row.
func (s *RentalService) List(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, *models.Pagination, error) {
	rentals, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rentals")
	}

	now := time.Now().UTC()
	for i := range rentals {
		s.applyProjection(&rentals[i], now)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rentals, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListAll returns every rental matching the filter with the overdue
// projection applied. Exports use this to cover the whole ledger.
func (s *RentalService) ListAll(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, error) {
	rentals, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rentals")
	}
	now := time.Now().UTC()
	for i := range rentals {
		s.applyProjection(&rentals[i], now)
	}
	return rentals, nil
}

// Get returns a rental by ID.
func (s *RentalService) Get(ctx context.Context, id string) (*models.Rental, error) {
	rental, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rental not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rental")
	}
	return rental, nil
}

// ListOverdue returns open rentals past their due date, most overdue first.
func (s *RentalService) ListOverdue(ctx context.Context) ([]models.RentalDetail, error) {
	now := time.Now().UTC()
	rentals, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue rentals")
	}
	for i := range rentals {
		s.applyProjection(&rentals[i], now)
	}
	sort.SliceStable(rentals, func(i, j int) bool {
		return rentals[i].OverdueDays > rentals[j].OverdueDays
	})
	return rentals, nil
}

// CountOverdue counts open rentals past their due date.
func (s *RentalService) CountOverdue(ctx context.Context) (int, error) {
	count, err := s.repo.CountOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count overdue rentals")
	}
	return count, nil
}

// Create opens a rental directly on behalf of a student. The student must be
// an approved STUDENT account and a semester must be active; the due date
// defaults to the semester end.
func (s *RentalService) Create(ctx context.Context, actor *models.User, req CreateRentalRequest) (*models.Rental, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rental payload")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rentals can only be opened for student accounts")
	}
	if !student.IsApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student account is not approved")
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

	semester, err := s.semesters.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidSemester, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active semester")
	}

	dueDate := semester.EndDate
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	rental, err := s.repo.CreateDirect(ctx, repository.DirectRentalParams{
		StudentID:     student.ID,
		StudentName:   student.Name,
		EquipmentID:   item.ID,
		EquipmentName: item.Name,
		SemesterID:    semester.ID,
		Quantity:      req.Quantity,
		DueDate:       dueDate,
		RentedBy:      actor.ID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, appErrors.Clone(appErrors.ErrInsufficientStock, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rental")
	}

	s.logger.Info("rental created",
		zap.String("rental_id", rental.ID),
		zap.String("student_id", student.ID),
		zap.String("equipment_id", item.ID),
		zap.Int("quantity", req.Quantity))
	return rental, nil
}

// Return closes a rental, releases inventory and freezes the late fee. The
// fee defaults to the computed overdue projection; an explicit override wins.
func (s *RentalService) Return(ctx context.Context, actor *models.User, rentalID string, req ReturnRentalRequest) (*models.Rental, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid return payload")
	}

	rental, err := s.Get(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.IsReturned {
		return nil, appErrors.Clone(appErrors.ErrAlreadyReturned, "")
	}

	now := time.Now().UTC()
	fee := models.ProjectOverdue(rental.DueDate, rental.IsReturned, now, s.lateFeeDaily).ProjectedFee
	if req.LateFeeOverride != nil {
		fee = *req.LateFeeOverride
	}

	closed, err := s.repo.Return(ctx, repository.ReturnParams{
		RentalID: rentalID,
		ActorID:  actor.ID,
		LateFee:  fee,
		Now:      now,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rental not found")
		case errors.Is(err, repository.ErrAlreadyReturned):
			return nil, appErrors.Clone(appErrors.ErrAlreadyReturned, "")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to return rental")
		}
	}

	s.logger.Info("rental returned",
		zap.String("rental_id", rentalID),
		zap.String("actor_id", actor.ID),
		zap.Int64("late_fee", fee))
	return closed, nil
}

func (s *RentalService) applyProjection(rental *models.RentalDetail, now time.Time) {
	proj := models.ProjectOverdue(rental.DueDate, rental.IsReturned, now, s.lateFeeDaily)
	rental.IsOverdue = proj.IsOverdue
	rental.OverdueDays = proj.OverdueDays
	rental.CalculatedLateFee = proj.ProjectedFee
}
