package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/repository"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type equipmentRepository interface {
	List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error)
	ListAll(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, error)
	Categories(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id string) (*models.Equipment, error)
	Create(ctx context.Context, item *models.Equipment, audit *models.AuditLog) error
	Update(ctx context.Context, id string, upd repository.EquipmentUpdate, audit *models.AuditLog) error
}

// CreateEquipmentRequest describes payload for adding inventory items.
type CreateEquipmentRequest struct {
	Name          string  `json:"name" validate:"required"`
	Category      string  `json:"category" validate:"required"`
	Description   *string `json:"description"`
	TotalQuantity int     `json:"total_quantity" validate:"required,min=1"`
}

// UpdateEquipmentRequest partially updates an inventory item. Nil fields are
// left unchanged.
type UpdateEquipmentRequest struct {
	Name          *string `json:"name"`
	Category      *string `json:"category"`
	Description   *string `json:"description"`
	TotalQuantity *int    `json:"total_quantity" validate:"omitempty,min=0"`
	IsActive      *bool   `json:"is_active"`
}

// EquipmentService manages the inventory catalog.
type EquipmentService struct {
	repo      equipmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEquipmentService creates a new equipment service instance.
func NewEquipmentService(repo equipmentRepository, validate *validator.Validate, logger *zap.Logger) *EquipmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated equipment matching the filter.
func (s *EquipmentService) List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list equipment")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListAll returns every equipment record matching the filter. Exports use
// this to cover the whole catalog.
func (s *EquipmentService) ListAll(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, error) {
	items, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list equipment")
	}
	return items, nil
}

// Categories returns the distinct categories across active equipment.
func (s *EquipmentService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// Get returns an equipment item by ID.
func (s *EquipmentService) Get(ctx context.Context, id string) (*models.Equipment, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}
	return item, nil
}

// Create registers a new inventory item. Available quantity starts equal to
// total quantity.
func (s *EquipmentService) Create(ctx context.Context, actorID string, req CreateEquipmentRequest) (*models.Equipment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid equipment payload")
	}

	item := &models.Equipment{
		Name:              req.Name,
		Category:          req.Category,
		Description:       req.Description,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.TotalQuantity,
		IsActive:          true,
	}

	audit := &models.AuditLog{
		ActorID: actorID,
		Action:  models.AuditActionEquipmentAdded,
		Details: fmt.Sprintf("Added equipment %s (qty %d)", req.Name, req.TotalQuantity),
	}
	if err := s.repo.Create(ctx, item, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create equipment")
	}
	return item, nil
}

// Update applies a partial update. A total-quantity change shifts
// available_quantity by the same delta; shrinking total below the number of
// units currently out fails with an invalid-adjustment conflict.
func (s *EquipmentService) Update(ctx context.Context, actorID, id string, req UpdateEquipmentRequest) (*models.Equipment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid equipment payload")
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	audit := &models.AuditLog{
		ActorID:  actorID,
		Action:   models.AuditActionEquipmentUpdated,
		TargetID: &item.ID,
		Details:  fmt.Sprintf("Updated equipment %s", item.Name),
	}
	upd := repository.EquipmentUpdate{
		Name:          req.Name,
		Category:      req.Category,
		Description:   req.Description,
		TotalQuantity: req.TotalQuantity,
		IsActive:      req.IsActive,
	}
	if err := s.repo.Update(ctx, id, upd, audit); err != nil {
		if errors.Is(err, repository.ErrInvalidAdjustment) {
			return nil, appErrors.Clone(appErrors.ErrInvalidAdjustment, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update equipment")
	}

	return s.Get(ctx, id)
}
