package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/pkg/export"
)

type mockExportRentals struct {
	rentals []models.RentalDetail
}

func (m *mockExportRentals) ListAll(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, error) {
	return m.rentals, nil
}

type mockExportEquipment struct {
	items []models.Equipment
}

func (m *mockExportEquipment) ListAll(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, error) {
	return m.items, nil
}

type mockExportAudit struct {
	entries []models.AuditLogDetail
}

func (m *mockExportAudit) History(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogDetail, error) {
	return m.entries, nil
}

type capturingRenderer struct {
	dataset export.Dataset
}

func (r *capturingRenderer) Render(data export.Dataset) ([]byte, error) {
	r.dataset = data
	return []byte("csv"), nil
}

func TestExportRentalsCoversWholeLedger(t *testing.T) {
	rentals := make([]models.RentalDetail, 0, 150)
	for i := 0; i < 150; i++ {
		rentals = append(rentals, models.RentalDetail{
			Rental: models.Rental{
				ID:        fmt.Sprintf("rent-%d", i),
				Quantity:  1,
				StartDate: time.Now(),
				DueDate:   time.Now().Add(24 * time.Hour),
			},
			StudentName:   "Ana",
			EquipmentName: "Tripod",
		})
	}

	renderer := &capturingRenderer{}
	svc := NewExportService(&mockExportRentals{rentals: rentals}, &mockExportEquipment{}, &mockExportAudit{}, nil, renderer, nil)

	result, err := svc.Rentals(context.Background(), models.RentalFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Len(t, renderer.dataset.Rows, 150)
}

func TestExportInventoryCoversWholeCatalog(t *testing.T) {
	items := make([]models.Equipment, 0, 120)
	for i := 0; i < 120; i++ {
		items = append(items, models.Equipment{
			ID:                fmt.Sprintf("eq-%d", i),
			Name:              fmt.Sprintf("Item %d", i),
			Category:          "CAMERA",
			TotalQuantity:     5,
			AvailableQuantity: 5,
			IsActive:          true,
		})
	}

	renderer := &capturingRenderer{}
	svc := NewExportService(&mockExportRentals{}, &mockExportEquipment{items: items}, &mockExportAudit{}, nil, renderer, nil)

	result, err := svc.Inventory(context.Background(), models.EquipmentFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Len(t, renderer.dataset.Rows, 120)
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockExportRentals{}, &mockExportEquipment{}, &mockExportAudit{}, nil, nil, nil)

	_, err := svc.Rentals(context.Background(), models.RentalFilter{}, ExportFormat("xlsx"))
	require.Error(t, err)
}
