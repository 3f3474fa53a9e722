package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusclub/gear-rental-api/internal/models"
)

func newEquipmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEquipmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newEquipmentRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	active := true
	rows := sqlmock.NewRows([]string{"id", "name", "category", "description", "total_quantity", "available_quantity", "is_active", "created_at", "updated_at"}).
		AddRow("eq-1", "Tripod", "CAMERA", "Aluminium tripod", 5, 3, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, category")).
		WithArgs("CAMERA", true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM equipment")).
		WithArgs("CAMERA", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.EquipmentFilter{Category: "CAMERA", IsActive: &active})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "eq-1", items[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepositoryUpdateTotalQuantity(t *testing.T) {
	db, mock, cleanup := newEquipmentRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	total := 8
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 8, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), "eq-1", EquipmentUpdate{TotalQuantity: &total}, &models.AuditLog{
		ActorID: "admin-1",
		Action:  models.AuditActionEquipmentUpdated,
		Details: "Updated Tripod",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepositoryUpdateInvalidAdjustment(t *testing.T) {
	db, mock, cleanup := newEquipmentRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	// Shrinking total below the reserved quantity matches no row, so the
	// whole transaction rolls back.
	total := 1
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), "eq-1", EquipmentUpdate{TotalQuantity: &total}, &models.AuditLog{
		ActorID: "admin-1",
		Action:  models.AuditActionEquipmentUpdated,
	})
	require.ErrorIs(t, err, ErrInvalidAdjustment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveEquipment(t *testing.T) {
	db, mock, cleanup := newEquipmentRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, reserveEquipment(context.Background(), db, "eq-1", 2))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 99, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, reserveEquipment(context.Background(), db, "eq-1", 99), ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}
