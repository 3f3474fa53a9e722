package repository

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusclub/gear-rental-api/internal/models"
)

func newRentalRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lockedRentalRows(returned bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "equipment_id", "semester_id", "request_id", "quantity",
		"start_date", "due_date", "return_date", "late_fee", "is_returned", "rented_by",
		"created_at", "updated_at", "student_name", "equipment_name",
	}).AddRow(
		"rent-1", "stu-1", "eq-1", "sem-1", nil, 2,
		time.Now().Add(-96*time.Hour), time.Now().Add(-72*time.Hour), nil, nil, returned, "mem-1",
		time.Now(), time.Now(), "Ana", "Tripod",
	)
}

func TestRentalRepositoryListAllUnpaginated(t *testing.T) {
	db, mock, cleanup := newRentalRepoMock(t)
	defer cleanup()

	repo := NewRentalRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "equipment_id", "semester_id", "request_id", "quantity",
		"start_date", "due_date", "return_date", "late_fee", "is_returned", "rented_by",
		"created_at", "updated_at", "student_name", "equipment_name", "semester_name", "rented_by_name",
	})
	for i := 0; i < 150; i++ {
		rows.AddRow(
			fmt.Sprintf("rent-%d", i), "stu-1", "eq-1", "sem-1", nil, 1,
			time.Now(), time.Now().Add(24*time.Hour), nil, nil, false, "mem-1",
			time.Now(), time.Now(), "Ana", "Tripod", "Fall 2026", "Ben",
		)
	}
	// The query must end at the sort clause; a LIMIT here would truncate
	// exports.
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY r.start_date DESC") + "$").
		WillReturnRows(rows)

	rentals, err := repo.ListAll(context.Background(), models.RentalFilter{})
	require.NoError(t, err)
	require.Len(t, rentals, 150)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepositoryReturn(t *testing.T) {
	db, mock, cleanup := newRentalRepoMock(t)
	defer cleanup()

	repo := NewRentalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id")).
		WithArgs("rent-1").
		WillReturnRows(lockedRentalRows(false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rentals SET is_returned = TRUE")).
		WithArgs("rent-1", sqlmock.AnyArg(), int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	closed, err := repo.Return(context.Background(), ReturnParams{
		RentalID: "rent-1",
		ActorID:  "mem-1",
		LateFee:  30,
	})
	require.NoError(t, err)
	require.True(t, closed.IsReturned)
	require.NotNil(t, closed.ReturnDate)
	require.NotNil(t, closed.LateFee)
	require.Equal(t, int64(30), *closed.LateFee)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepositoryReturnAlreadyClosed(t *testing.T) {
	db, mock, cleanup := newRentalRepoMock(t)
	defer cleanup()

	repo := NewRentalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id")).
		WithArgs("rent-1").
		WillReturnRows(lockedRentalRows(true))
	mock.ExpectRollback()

	_, err := repo.Return(context.Background(), ReturnParams{RentalID: "rent-1", ActorID: "mem-1"})
	require.ErrorIs(t, err, ErrAlreadyReturned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepositoryCreateDirectInsufficientStock(t *testing.T) {
	db, mock, cleanup := newRentalRepoMock(t)
	defer cleanup()

	repo := NewRentalRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 10, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.CreateDirect(context.Background(), DirectRentalParams{
		StudentID:   "stu-1",
		EquipmentID: "eq-1",
		SemesterID:  "sem-1",
		Quantity:    10,
		DueDate:     time.Now().Add(720 * time.Hour),
		RentedBy:    "mem-1",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepositoryCreateDirect(t *testing.T) {
	db, mock, cleanup := newRentalRepoMock(t)
	defer cleanup()

	repo := NewRentalRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rentals")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	due := time.Now().Add(720 * time.Hour)
	rental, err := repo.CreateDirect(context.Background(), DirectRentalParams{
		StudentID:     "stu-1",
		StudentName:   "Ana",
		EquipmentID:   "eq-1",
		EquipmentName: "Tripod",
		SemesterID:    "sem-1",
		Quantity:      1,
		DueDate:       due,
		RentedBy:      "mem-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, rental.ID)
	require.False(t, rental.IsReturned)
	require.Equal(t, due, rental.DueDate)
	require.NoError(t, mock.ExpectationsWereMet())
}
