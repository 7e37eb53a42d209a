package models

import "time"

// EnrollmentExtension is the append-only audit record of a manual validity
// change. Rows are only ever inserted, inside the same transaction as the
// enrollment update they describe.
type EnrollmentExtension struct {
	ID             string    `db:"id" json:"id"`
	EnrollmentID   string    `db:"enrollment_id" json:"enrollment_id"`
	ExtendedDays   int       `db:"extended_days" json:"extended_days"`
	OriginalExpiry time.Time `db:"original_expiry" json:"original_expiry"`
	NewExpiry      time.Time `db:"new_expiry" json:"new_expiry"`
	Reason         string    `db:"reason" json:"reason"`
	ApprovedBy     string    `db:"approved_by" json:"approved_by"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
