package models

import "time"

// CourseCategory distinguishes ongoing regular courses from fixed-run theme
// courses whose entitlements cannot outlive the course itself.
type CourseCategory string

// Possible course categories.
const (
	CourseCategoryRegular CourseCategory = "REGULAR"
	CourseCategoryTheme   CourseCategory = "THEME"
)

// Course is a read-only view of a course owned by the course subsystem.
type Course struct {
	ID                  string         `db:"id" json:"id"`
	Name                string         `db:"name" json:"name"`
	Category            CourseCategory `db:"category" json:"category"`
	EndDate             *time.Time     `db:"end_date" json:"end_date,omitempty"`
	DefaultValidityDays int            `db:"default_validity_days" json:"default_validity_days"`
	SessionsPerWeek     *int           `db:"sessions_per_week" json:"sessions_per_week,omitempty"`
	Active              bool           `db:"active" json:"active"`
}

// CoursePackage is a predefined bundle of sessions sold as a unit.
type CoursePackage struct {
	ID           string `db:"id" json:"id"`
	CourseID     string `db:"course_id" json:"course_id"`
	Name         string `db:"name" json:"name"`
	SessionCount int    `db:"session_count" json:"session_count"`
	PriceCents   int64  `db:"price_cents" json:"price_cents"`
	ValidityDays *int   `db:"validity_days" json:"validity_days,omitempty"`
	Active       bool   `db:"active" json:"active"`
}
