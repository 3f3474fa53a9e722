package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/repository"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type mockEquipmentRepo struct {
	items        []models.Equipment
	item         *models.Equipment
	categories   []string
	created      *models.Equipment
	createdAudit *models.AuditLog
	updateErr    error
	lastUpdate   *repository.EquipmentUpdate
}

func (m *mockEquipmentRepo) List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	return m.items, len(m.items), nil
}

func (m *mockEquipmentRepo) ListAll(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, error) {
	return m.items, nil
}

func (m *mockEquipmentRepo) Categories(ctx context.Context) ([]string, error) {
	return m.categories, nil
}

func (m *mockEquipmentRepo) FindByID(ctx context.Context, id string) (*models.Equipment, error) {
	if m.item == nil {
		return nil, sql.ErrNoRows
	}
	return m.item, nil
}

func (m *mockEquipmentRepo) Create(ctx context.Context, item *models.Equipment, audit *models.AuditLog) error {
	item.ID = "eq-new"
	m.created = item
	m.createdAudit = audit
	return nil
}

func (m *mockEquipmentRepo) Update(ctx context.Context, id string, upd repository.EquipmentUpdate, audit *models.AuditLog) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastUpdate = &upd
	return nil
}

func newEquipmentService(repo *mockEquipmentRepo) *EquipmentService {
	return NewEquipmentService(repo, validator.New(), zap.NewNop())
}

func TestEquipmentServiceCreateStartsFullyAvailable(t *testing.T) {
	repo := &mockEquipmentRepo{}
	svc := newEquipmentService(repo)

	item, err := svc.Create(context.Background(), "adm-1", CreateEquipmentRequest{
		Name:          "Projector",
		Category:      "AV",
		TotalQuantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, item.TotalQuantity)
	assert.Equal(t, 4, item.AvailableQuantity)
	assert.True(t, item.IsActive)
	require.NotNil(t, repo.createdAudit)
	assert.Equal(t, models.AuditActionEquipmentAdded, repo.createdAudit.Action)
}

func TestEquipmentServiceCreateRequiresPositiveQuantity(t *testing.T) {
	svc := newEquipmentService(&mockEquipmentRepo{})

	_, err := svc.Create(context.Background(), "adm-1", CreateEquipmentRequest{
		Name:          "Projector",
		Category:      "AV",
		TotalQuantity: 0,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEquipmentServiceUpdateInvalidAdjustment(t *testing.T) {
	repo := &mockEquipmentRepo{
		item:      &models.Equipment{ID: "eq-1", Name: "Projector", TotalQuantity: 4, AvailableQuantity: 1},
		updateErr: repository.ErrInvalidAdjustment,
	}
	svc := newEquipmentService(repo)

	total := 2
	_, err := svc.Update(context.Background(), "adm-1", "eq-1", UpdateEquipmentRequest{TotalQuantity: &total})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidAdjustment.Code, appErr.Code)
}

func TestEquipmentServiceUpdateNotFound(t *testing.T) {
	svc := newEquipmentService(&mockEquipmentRepo{})

	name := "Renamed"
	_, err := svc.Update(context.Background(), "adm-1", "missing", UpdateEquipmentRequest{Name: &name})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
