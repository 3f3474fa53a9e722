package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campusclub/gear-rental-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lockedRequestRows(status models.RequestStatus, semesterEnd time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "equipment_id", "semester_id", "quantity", "status", "reason",
		"request_date", "reviewed_by", "review_date", "created_at", "updated_at",
		"student_name", "equipment_name", "semester_end",
	}).AddRow(
		"req-1", "stu-1", "eq-1", "sem-1", 2, status, "field trip",
		time.Now(), nil, nil, time.Now(), time.Now(),
		"Ana", "Tripod", semesterEnd,
	)
}

func TestRequestRepositoryCreateDuplicatePending(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "requests_single_pending"})
	mock.ExpectRollback()

	request := &models.Request{
		StudentID:   "stu-1",
		EquipmentID: "eq-1",
		SemesterID:  "sem-1",
		Quantity:    1,
		Status:      models.RequestStatusPending,
		RequestDate: time.Now().UTC(),
	}
	err := repo.Create(context.Background(), request, &models.AuditLog{
		ActorID: "stu-1",
		Action:  models.AuditActionRequestSubmitted,
	})
	require.ErrorIs(t, err, ErrDuplicatePending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	semesterEnd := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id")).
		WithArgs("req-1").
		WillReturnRows(lockedRequestRows(models.RequestStatusPending, semesterEnd))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rentals")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status = $2")).
		WithArgs("req-1", models.RequestStatusApproved, nil, "mem-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rental, err := repo.Approve(context.Background(), ReviewParams{
		RequestID:    "req-1",
		ReviewerID:   "mem-1",
		ReviewerName: "Ben",
	})
	require.NoError(t, err)
	require.Equal(t, "stu-1", rental.StudentID)
	require.Equal(t, semesterEnd, rental.DueDate)
	require.NotNil(t, rental.RequestID)
	require.Equal(t, "req-1", *rental.RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApproveNotPending(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id")).
		WithArgs("req-1").
		WillReturnRows(lockedRequestRows(models.RequestStatusRejected, time.Now()))
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), ReviewParams{RequestID: "req-1", ReviewerID: "mem-1"})
	require.ErrorIs(t, err, ErrRequestNotPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApproveInsufficientStock(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id")).
		WithArgs("req-1").
		WillReturnRows(lockedRequestRows(models.RequestStatusPending, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment")).
		WithArgs("eq-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), ReviewParams{RequestID: "req-1", ReviewerID: "mem-1"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryReject(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	reason := "out for maintenance"
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id")).
		WithArgs("req-1").
		WillReturnRows(lockedRequestRows(models.RequestStatusPending, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status = $2")).
		WithArgs("req-1", models.RequestStatusRejected, &reason, "mem-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), "mem-1", models.AuditActionRequestRejected, sqlmock.AnyArg(),
			"Ben rejected request from Ana for Tripod: out for maintenance", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Reject(context.Background(), ReviewParams{
		RequestID:    "req-1",
		ReviewerID:   "mem-1",
		ReviewerName: "Ben",
		Reason:       &reason,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
