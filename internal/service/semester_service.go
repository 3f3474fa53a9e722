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

type semesterRepository interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindActive(ctx context.Context) (*models.Semester, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, semester *models.Semester, activate bool, audit *models.AuditLog) error
	Update(ctx context.Context, semester *models.Semester, activate bool, audit *models.AuditLog) error
	SetActive(ctx context.Context, id string, audit *models.AuditLog) error
}

// CreateSemesterRequest describes payload for creating semesters.
type CreateSemesterRequest struct {
	Code      string    `json:"code" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsActive  bool      `json:"is_active"`
}

// UpdateSemesterRequest updates mutable fields on a semester.
type UpdateSemesterRequest struct {
	Code      string    `json:"code" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsActive  *bool     `json:"is_active"`
}

// SemesterService orchestrates semester registry workflows.
type SemesterService struct {
	repo      semesterRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService creates a new semester service instance.
func NewSemesterService(repo semesterRepository, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated semesters.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error) {
	semesters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return semesters, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a semester by ID.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// GetActive returns the currently active semester.
func (s *SemesterService) GetActive(ctx context.Context) (*models.Semester, error) {
	semester, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active semester")
	}
	return semester, nil
}

// Create adds a new semester ensuring code uniqueness and date validation.
// When IsActive is set, every other semester is deactivated in the same
// transaction.
func (s *SemesterService) Create(ctx context.Context, actorID string, req CreateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
	}

	semester := &models.Semester{
		Code:      req.Code,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsActive:  req.IsActive,
	}

	audit := &models.AuditLog{
		ActorID: actorID,
		Action:  models.AuditActionSemesterCreated,
		Details: fmt.Sprintf("Created semester %s (%s)", req.Name, req.Code),
	}
	if err := s.repo.Create(ctx, semester, req.IsActive, audit); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	return semester, nil
}

// Update modifies a semester record.
func (s *SemesterService) Update(ctx context.Context, actorID, id string, req UpdateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}

	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
	}

	semester.Code = req.Code
	semester.Name = req.Name
	semester.StartDate = req.StartDate
	semester.EndDate = req.EndDate

	activate := req.IsActive != nil && *req.IsActive && !semester.IsActive
	if req.IsActive != nil && !*req.IsActive {
		semester.IsActive = false
	}

	audit := &models.AuditLog{
		ActorID:  actorID,
		Action:   models.AuditActionSemesterUpdated,
		TargetID: &semester.ID,
		Details:  fmt.Sprintf("Updated semester %s (%s)", req.Name, req.Code),
	}
	if err := s.repo.Update(ctx, semester, activate, audit); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	if activate {
		semester.IsActive = true
	}
	return semester, nil
}

// SetActive designates a semester as active, deactivating all others
// atomically.
func (s *SemesterService) SetActive(ctx context.Context, actorID, id string) (*models.Semester, error) {
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	audit := &models.AuditLog{
		ActorID:  actorID,
		Action:   models.AuditActionSemesterUpdated,
		TargetID: &semester.ID,
		Details:  fmt.Sprintf("Activated semester %s (%s)", semester.Name, semester.Code),
	}
	if err := s.repo.SetActive(ctx, semester.ID, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate semester")
	}
	semester.IsActive = true

	s.logger.Info("semester activated", zap.String("semester_id", id), zap.String("actor_id", actorID))
	return semester, nil
}
