package dto

import "github.com/noah-isme/tuition-credit-api/internal/models"

// StudentCredits partitions a student's ledger rows into dashboard buckets.
type StudentCredits struct {
	StudentID string                    `json:"student_id"`
	Theme     []models.EnrollmentDetail `json:"theme"`
	Regular   []models.EnrollmentDetail `json:"regular"`
	Expired   []models.EnrollmentDetail `json:"expired"`
}

// CourseCredit is one currently-valid enrollment enriched with its expiry
// countdown for the valid-credit aggregation.
type CourseCredit struct {
	EnrollmentID      string                    `json:"enrollment_id"`
	CourseID          string                    `json:"course_id"`
	CourseName        string                    `json:"course_name"`
	Category          models.EnrollmentCategory `json:"category"`
	RemainingSessions int                       `json:"remaining_sessions"`
	ValidUntil        string                    `json:"valid_until"`
	Expiry            models.ExpiryStatus       `json:"expiry"`
}

// ValidCredits aggregates remaining sessions across currently-valid rows.
type ValidCredits struct {
	StudentID      string                            `json:"student_id"`
	TotalRemaining int                               `json:"total_remaining"`
	ByCategory     map[models.EnrollmentCategory]int `json:"by_category"`
	Courses        []CourseCredit                    `json:"courses"`
}

// OrderCompletionResult is the structured outcome handed back to the order
// workflow. Enrollment failures must not block an already-committed sale, so
// errors surface here instead of propagating.
type OrderCompletionResult struct {
	Success     bool                `json:"success"`
	Enrollments []models.Enrollment `json:"enrollments"`
	Message     string              `json:"message,omitempty"`
}

// SweepResult reports one expiry sweep run.
type SweepResult struct {
	UpdatedCount int    `json:"updated_count"`
	RanAt        string `json:"ran_at"`
}
