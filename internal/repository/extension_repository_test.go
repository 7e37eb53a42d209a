package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionRepositoryApplyExtension(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewExtensionRepository(db)

	validUntil := time.Date(2026, time.July, 19, 0, 0, 0, 0, time.UTC)
	newExpiry := validUntil.AddDate(0, 0, 14)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("enr-1").
		WillReturnRows(enrollmentRow("enr-1", 10, 2, validUntil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollment_extensions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments")).
		WithArgs("enr-1", newExpiry, sqlmock.AnyArg(), "ops-1").
		WillReturnRows(enrollmentRow("enr-1", 10, 2, newExpiry))
	mock.ExpectCommit()

	ext, enrollment, err := repo.ApplyExtension(context.Background(), ExtensionParams{
		EnrollmentID: "enr-1",
		Days:         14,
		Reason:       "make-up classes",
		ApprovedBy:   "adm-1",
		CreatedBy:    "ops-1",
	})
	require.NoError(t, err)
	assert.Equal(t, validUntil, ext.OriginalExpiry.UTC())
	assert.Equal(t, newExpiry, ext.NewExpiry.UTC())
	assert.Equal(t, "enr-1", enrollment.ID)
	assert.Equal(t, newExpiry, enrollment.ValidUntil.UTC())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtensionRepositoryApplyExtensionMissingEnrollment(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewExtensionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.ApplyExtension(context.Background(), ExtensionParams{
		EnrollmentID: "missing",
		Days:         7,
		Reason:       "r",
		ApprovedBy:   "a",
		CreatedBy:    "c",
	})
	assert.Equal(t, sql.ErrNoRows, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtensionRepositoryApplyExtensionAbortsWhenAuditInsertFails(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewExtensionRepository(db)

	validUntil := time.Date(2026, time.July, 19, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("enr-1").
		WillReturnRows(enrollmentRow("enr-1", 10, 2, validUntil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollment_extensions")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, _, err := repo.ApplyExtension(context.Background(), ExtensionParams{
		EnrollmentID: "enr-1",
		Days:         7,
		Reason:       "r",
		ApprovedBy:   "a",
		CreatedBy:    "c",
	})
	require.Error(t, err, "no state change may land without its audit row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtensionRepositoryListByEnrollment(t *testing.T) {
	db, mock, cleanup := newLedgerRepoMock(t)
	defer cleanup()
	repo := NewExtensionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "extended_days", "original_expiry", "new_expiry", "reason", "approved_by", "created_by", "created_at"}).
		AddRow("ext-2", "enr-1", 7, now.AddDate(0, 0, 14), now.AddDate(0, 0, 21), "holiday closure", "adm-1", "ops-2", now).
		AddRow("ext-1", "enr-1", 14, now, now.AddDate(0, 0, 14), "make-up classes", "adm-1", "ops-1", now.AddDate(0, 0, -10))

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollment_extensions WHERE enrollment_id = $1 ORDER BY created_at DESC")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	extensions, err := repo.ListByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Len(t, extensions, 2)
	assert.Equal(t, "ext-2", extensions[0].ID)
	assert.Equal(t, 7, extensions[0].ExtendedDays)
}
