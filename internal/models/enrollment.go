package models

import "time"

// EnrollmentStatus represents the administrative state of a ledger row.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// EnrollmentSource records which channel produced the row.
type EnrollmentSource string

// Possible enrollment sources.
const (
	EnrollmentSourceManual EnrollmentSource = "MANUAL"
	EnrollmentSourceOnline EnrollmentSource = "ONLINE"
)

// EnrollmentCategory mirrors the course category the row was bought into.
// Regular purchases accumulate into a single ongoing row per student and
// course; theme purchases each stand alone.
type EnrollmentCategory string

// Possible enrollment categories.
const (
	EnrollmentCategoryRegular EnrollmentCategory = "REGULAR"
	EnrollmentCategoryTheme   EnrollmentCategory = "THEME"
)

// Enrollment is a student's entitlement to attend a course: purchased versus
// remaining sessions plus the validity window they may be consumed in.
type Enrollment struct {
	ID        string  `db:"id" json:"id"`
	StudentID string  `db:"student_id" json:"student_id"`
	CourseID  string  `db:"course_id" json:"course_id"`
	PackageID *string `db:"package_id" json:"package_id,omitempty"`

	PurchasedSessions int `db:"purchased_sessions" json:"purchased_sessions"`
	RemainingSessions int `db:"remaining_sessions" json:"remaining_sessions"`
	BonusSessions     int `db:"bonus_sessions" json:"bonus_sessions"`

	Status   EnrollmentStatus   `db:"status" json:"status"`
	Source   EnrollmentSource   `db:"source" json:"source"`
	Category EnrollmentCategory `db:"category" json:"category"`

	ValidFrom  time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil time.Time `db:"valid_until" json:"valid_until"`
	IsExpired  bool      `db:"is_expired" json:"is_expired"`

	ExtendedTimes  int        `db:"extended_times" json:"extended_times"`
	LastExtendedAt *time.Time `db:"last_extended_at" json:"last_extended_at,omitempty"`
	LastExtendedBy *string    `db:"last_extended_by" json:"last_extended_by,omitempty"`

	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with course info for read endpoints.
type EnrollmentDetail struct {
	Enrollment
	CourseName     string         `db:"course_name" json:"course_name"`
	CourseCategory CourseCategory `db:"course_category" json:"course_category"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Category  EnrollmentCategory
	Expired   *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
