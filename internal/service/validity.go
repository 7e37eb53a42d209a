package service

import (
	"time"

	"github.com/noah-isme/tuition-credit-api/internal/models"
	appErrors "github.com/noah-isme/tuition-credit-api/pkg/errors"
)

// timeNow is swapped in tests that assert day-boundary behaviour.
var timeNow = time.Now

// ValidityInput carries everything the window computation needs. All policy
// comes from the course or package; the calculator itself holds no state.
type ValidityInput struct {
	CourseCategory      models.CourseCategory
	PurchaseDate        time.Time
	SessionCount        int
	PackageValidityDays *int
	CourseEndDate       *time.Time
	DefaultValidityDays int
	SessionsPerWeek     *int
}

// ValidityWindow is the computed [ValidFrom, ValidUntil] date range.
type ValidityWindow struct {
	ValidFrom  time.Time
	ValidUntil time.Time
}

// ComputeValidity derives the validity window for a purchase.
//
// ValidFrom is always the purchase date truncated to a calendar day. For
// theme courses the window is DefaultValidityDays long but never extends past
// the course end date. For regular courses a package-level override wins when
// present; otherwise the days needed to consume the sessions at the course
// cadence (ceil(sessions/sessionsPerWeek) weeks) are estimated and the larger
// of that estimate and DefaultValidityDays is used. A missing cadence falls
// back to DefaultValidityDays alone.
//
// A window that would close before it opens (a course that already ended) is
// a configuration error, never silently produced.
func ComputeValidity(input ValidityInput) (ValidityWindow, error) {
	validFrom := dateOnly(input.PurchaseDate)

	var validUntil time.Time
	switch input.CourseCategory {
	case models.CourseCategoryTheme:
		validUntil = validFrom.AddDate(0, 0, input.DefaultValidityDays)
		if input.CourseEndDate != nil {
			endDate := dateOnly(*input.CourseEndDate)
			if endDate.Before(validUntil) {
				validUntil = endDate
			}
		}
	default:
		days := input.DefaultValidityDays
		if input.PackageValidityDays != nil {
			days = *input.PackageValidityDays
		} else if input.SessionsPerWeek != nil && *input.SessionsPerWeek > 0 {
			weeks := (input.SessionCount + *input.SessionsPerWeek - 1) / *input.SessionsPerWeek
			if estimate := weeks * 7; estimate > days {
				days = estimate
			}
		}
		validUntil = validFrom.AddDate(0, 0, days)
	}

	if validUntil.Before(validFrom) {
		return ValidityWindow{}, appErrors.Clone(appErrors.ErrConfiguration, "computed validity window ends before it starts")
	}
	return ValidityWindow{ValidFrom: validFrom, ValidUntil: validUntil}, nil
}

// dateOnly truncates a timestamp to UTC midnight.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RemainingDays counts whole days from today until validUntil, floored at
// zero. A window closing today counts as zero remaining days.
func RemainingDays(validUntil, now time.Time) int {
	days := int(dateOnly(validUntil).Sub(dateOnly(now)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// IsCurrentlyValid is the canonical validity check used by every read path.
// The date-derived computation is authoritative; the stored is_expired flag
// only widens the expired condition while the sweep catches up.
func IsCurrentlyValid(e models.Enrollment, now time.Time) bool {
	if e.Status != models.EnrollmentStatusActive {
		return false
	}
	if e.IsExpired {
		return false
	}
	return !dateOnly(e.ValidUntil).Before(dateOnly(now))
}
