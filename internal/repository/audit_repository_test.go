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

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAuditRepositoryInsertStampsEntry(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{
		ActorID: "admin-1",
		Action:  models.AuditActionUserApproved,
		Details: "Approved account for Ana (ana@club.test)",
	}
	require.NoError(t, repo.Insert(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	rows := sqlmock.NewRows([]string{"id", "actor_id", "action", "target_id", "details", "metadata", "created_at", "actor_name"}).
		AddRow("audit-1", "admin-1", models.AuditActionUserApproved, nil, "Approved account for Ana (ana@club.test)", nil, time.Now(), "Root Admin")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.actor_id")).
		WithArgs(models.AuditActionUserApproved, "admin-1").
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), models.AuditFilter{
		Action:  models.AuditActionUserApproved,
		ActorID: "admin-1",
		Limit:   50,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Root Admin", entries[0].ActorName)
	require.NoError(t, mock.ExpectationsWereMet())
}
