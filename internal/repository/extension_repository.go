package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tuition-credit-api/internal/models"
)

// ExtensionRepository owns the append-only extension audit trail and the
// paired enrollment update it describes.
type ExtensionRepository struct {
	db *sqlx.DB
}

// NewExtensionRepository constructs the repository.
func NewExtensionRepository(db *sqlx.DB) *ExtensionRepository {
	return &ExtensionRepository{db: db}
}

// ExtensionParams holds values required to extend an enrollment's validity.
type ExtensionParams struct {
	EnrollmentID string
	Days         int
	Reason       string
	ApprovedBy   string
	CreatedBy    string
}

// ApplyExtension appends the audit row and pushes valid_until forward in a
// single transaction: a crash cannot leave an audit entry with no state
// change, nor a state change with no audit trail. The enrollment row is
// locked first so a concurrent merge cannot slide valid_until between the
// read and the write.
func (r *ExtensionRepository) ApplyExtension(ctx context.Context, params ExtensionParams) (ext *models.EnrollmentExtension, enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin extension transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Enrollment
	lockQuery := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 FOR UPDATE`, enrollmentColumns)
	if err = tx.GetContext(ctx, &current, lockQuery, params.EnrollmentID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	record := &models.EnrollmentExtension{
		ID:             uuid.NewString(),
		EnrollmentID:   current.ID,
		ExtendedDays:   params.Days,
		OriginalExpiry: current.ValidUntil,
		NewExpiry:      current.ValidUntil.AddDate(0, 0, params.Days),
		Reason:         params.Reason,
		ApprovedBy:     params.ApprovedBy,
		CreatedBy:      params.CreatedBy,
		CreatedAt:      now,
	}

	const insertQuery = `INSERT INTO enrollment_extensions (id, enrollment_id, extended_days, original_expiry, new_expiry, reason, approved_by, created_by, created_at)
        VALUES (:id, :enrollment_id, :extended_days, :original_expiry, :new_expiry, :reason, :approved_by, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, record); err != nil {
		return nil, nil, fmt.Errorf("insert enrollment extension: %w", err)
	}

	updateQuery := fmt.Sprintf(`UPDATE enrollments
        SET valid_until = $2,
            is_expired = false,
            extended_times = extended_times + 1,
            last_extended_at = $3,
            last_extended_by = $4,
            updated_at = $3
        WHERE id = $1
        RETURNING %s`, enrollmentColumns)
	var updated models.Enrollment
	if err = tx.GetContext(ctx, &updated, updateQuery, current.ID, record.NewExpiry, now, params.CreatedBy); err != nil {
		return nil, nil, fmt.Errorf("apply enrollment extension: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit enrollment extension: %w", err)
	}
	return record, &updated, nil
}

// ListByEnrollment returns the audit trail for one enrollment, newest first.
func (r *ExtensionRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.EnrollmentExtension, error) {
	const query = `SELECT id, enrollment_id, extended_days, original_expiry, new_expiry, reason, approved_by, created_by, created_at
        FROM enrollment_extensions WHERE enrollment_id = $1 ORDER BY created_at DESC`
	var extensions []models.EnrollmentExtension
	if err := r.db.SelectContext(ctx, &extensions, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment extensions: %w", err)
	}
	return extensions, nil
}
