package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuition-credit-api/internal/models"
	appErrors "github.com/noah-isme/tuition-credit-api/pkg/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestComputeValidityRegularPackageOverride(t *testing.T) {
	window, err := ComputeValidity(ValidityInput{
		CourseCategory:      models.CourseCategoryRegular,
		PurchaseDate:        time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC),
		SessionCount:        10,
		PackageValidityDays: intPtr(90),
		DefaultValidityDays: 60,
		SessionsPerWeek:     intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.March, 10), window.ValidFrom, "purchase date must be date-truncated")
	assert.Equal(t, day(2026, time.June, 8), window.ValidUntil)
}

func TestComputeValidityRegularCadenceEstimate(t *testing.T) {
	// 20 sessions at 1/week -> ceil(20/1)*7 = 140 days, beating the 90-day default.
	window, err := ComputeValidity(ValidityInput{
		CourseCategory:      models.CourseCategoryRegular,
		PurchaseDate:        day(2026, time.January, 1),
		SessionCount:        20,
		DefaultValidityDays: 90,
		SessionsPerWeek:     intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.January, 1).AddDate(0, 0, 140), window.ValidUntil)
}

func TestComputeValidityRegularDefaultWinsOverShortEstimate(t *testing.T) {
	// 4 sessions at 2/week -> 14 days estimate; default 90 is the safety margin.
	window, err := ComputeValidity(ValidityInput{
		CourseCategory:      models.CourseCategoryRegular,
		PurchaseDate:        day(2026, time.January, 1),
		SessionCount:        4,
		DefaultValidityDays: 90,
		SessionsPerWeek:     intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.January, 1).AddDate(0, 0, 90), window.ValidUntil)
}

func TestComputeValidityRegularNoCadenceFallsBack(t *testing.T) {
	window, err := ComputeValidity(ValidityInput{
		CourseCategory:      models.CourseCategoryRegular,
		PurchaseDate:        day(2026, time.January, 1),
		SessionCount:        12,
		DefaultValidityDays: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.January, 1).AddDate(0, 0, 45), window.ValidUntil)
}

func TestComputeValidityThemeClampedToCourseEnd(t *testing.T) {
	window, err := ComputeValidity(ValidityInput{
		CourseCategory:      models.CourseCategoryTheme,
		PurchaseDate:        day(2026, time.May, 1),
		SessionCount:        8,
		CourseEndDate:       timePtr(day(2026, time.May, 20)),
		DefaultValidityDays: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.May, 20), window.ValidUntil, "entitlement cannot outlive the course")
}

func TestComputeValidityThemeWithoutEndDate(t *testing.T) {
	window, err := ComputeValidity(ValidityInput{
		CourseCategory:      models.CourseCategoryTheme,
		PurchaseDate:        day(2026, time.May, 1),
		SessionCount:        8,
		DefaultValidityDays: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.May, 1).AddDate(0, 0, 60), window.ValidUntil)
}

func TestComputeValidityThemeCourseAlreadyEnded(t *testing.T) {
	_, err := ComputeValidity(ValidityInput{
		CourseCategory:      models.CourseCategoryTheme,
		PurchaseDate:        day(2026, time.May, 1),
		SessionCount:        8,
		CourseEndDate:       timePtr(day(2026, time.April, 1)),
		DefaultValidityDays: 60,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErr.Code)
}

func TestRemainingDays(t *testing.T) {
	now := day(2026, time.August, 28)

	assert.Equal(t, 0, RemainingDays(now.AddDate(0, 0, -40), now))
	assert.Equal(t, 0, RemainingDays(now, now))
	assert.Equal(t, 1, RemainingDays(now.AddDate(0, 0, 1), now))
	assert.Equal(t, 30, RemainingDays(now.AddDate(0, 0, 30), now))
	// Time-of-day must not leak into the count.
	assert.Equal(t, 5, RemainingDays(now.AddDate(0, 0, 5).Add(23*time.Hour), now.Add(10*time.Minute)))
}

func TestIsCurrentlyValid(t *testing.T) {
	now := day(2026, time.August, 28)
	base := models.Enrollment{
		Status:     models.EnrollmentStatusActive,
		ValidUntil: now.AddDate(0, 0, 10),
	}

	assert.True(t, IsCurrentlyValid(base, now))

	lastDay := base
	lastDay.ValidUntil = now
	assert.True(t, IsCurrentlyValid(lastDay, now), "window closing today is still consumable")

	lapsed := base
	lapsed.ValidUntil = now.AddDate(0, 0, -1)
	assert.False(t, IsCurrentlyValid(lapsed, now))

	flagged := base
	flagged.IsExpired = true
	assert.False(t, IsCurrentlyValid(flagged, now), "stored flag widens the expired condition")

	cancelled := base
	cancelled.Status = models.EnrollmentStatusCancelled
	assert.False(t, IsCurrentlyValid(cancelled, now))
}
