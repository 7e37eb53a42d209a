package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-credit-api/internal/models"
	"github.com/noah-isme/tuition-credit-api/internal/repository"
	appErrors "github.com/noah-isme/tuition-credit-api/pkg/errors"
)

type mockCreditRepo struct {
	rows        map[string]models.Enrollment
	details     map[string][]models.EnrollmentDetail
	markedAsOf  []time.Time
	markReturns []int
	expiring    []models.EnrollmentDetail
}

func (m *mockCreditRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.rows[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCreditRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.details[studentID], nil
}

func (m *mockCreditRepo) MarkExpired(ctx context.Context, asOf time.Time) (int, error) {
	m.markedAsOf = append(m.markedAsOf, asOf)
	if len(m.markReturns) == 0 {
		return 0, nil
	}
	count := m.markReturns[0]
	m.markReturns = m.markReturns[1:]
	return count, nil
}

func (m *mockCreditRepo) ListExpiring(ctx context.Context, from, to time.Time) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.expiring {
		if !e.ValidUntil.Before(from) && !e.ValidUntil.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockExtensionStore struct {
	rows    map[string]*models.Enrollment
	applied []repository.ExtensionParams
	history map[string][]models.EnrollmentExtension
}

// ApplyExtension mirrors the transactional repository semantics.
func (m *mockExtensionStore) ApplyExtension(ctx context.Context, params repository.ExtensionParams) (*models.EnrollmentExtension, *models.Enrollment, error) {
	enrollment, ok := m.rows[params.EnrollmentID]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	ext := &models.EnrollmentExtension{
		ID:             "ext-1",
		EnrollmentID:   params.EnrollmentID,
		ExtendedDays:   params.Days,
		OriginalExpiry: enrollment.ValidUntil,
		NewExpiry:      enrollment.ValidUntil.AddDate(0, 0, params.Days),
		Reason:         params.Reason,
		ApprovedBy:     params.ApprovedBy,
		CreatedBy:      params.CreatedBy,
		CreatedAt:      time.Now().UTC(),
	}
	enrollment.ValidUntil = ext.NewExpiry
	enrollment.IsExpired = false
	enrollment.ExtendedTimes++
	enrollment.LastExtendedBy = &params.CreatedBy
	m.applied = append(m.applied, params)
	if m.history == nil {
		m.history = make(map[string][]models.EnrollmentExtension)
	}
	m.history[params.EnrollmentID] = append([]models.EnrollmentExtension{*ext}, m.history[params.EnrollmentID]...)
	return ext, enrollment, nil
}

func (m *mockExtensionStore) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.EnrollmentExtension, error) {
	return m.history[enrollmentID], nil
}

func newCreditFixture(t *testing.T) (*CreditService, *mockCreditRepo, *mockExtensionStore) {
	t.Helper()
	repo := &mockCreditRepo{rows: map[string]models.Enrollment{}, details: map[string][]models.EnrollmentDetail{}}
	extensions := &mockExtensionStore{rows: map[string]*models.Enrollment{}}
	svc := NewCreditService(repo, extensions, nil, nil, CreditServiceConfig{}, validator.New(), zap.NewNop())
	return svc, repo, extensions
}

func detailRow(id, studentID string, category models.EnrollmentCategory, remaining int, validUntil time.Time) models.EnrollmentDetail {
	return models.EnrollmentDetail{Enrollment: models.Enrollment{
		ID: id, StudentID: studentID, CourseID: "crs-" + id,
		RemainingSessions: remaining,
		Status:            models.EnrollmentStatusActive,
		Category:          category,
		ValidUntil:        validUntil,
	}}
}

func TestGetStudentCreditsPartitionsBuckets(t *testing.T) {
	today := day(2026, time.August, 28)
	fixedClock(t, today)
	svc, repo, _ := newCreditFixture(t)

	flagged := detailRow("e4", "stu-1", models.EnrollmentCategoryRegular, 2, today.AddDate(0, 0, 20))
	flagged.IsExpired = true
	cancelled := detailRow("e5", "stu-1", models.EnrollmentCategoryRegular, 1, today.AddDate(0, 0, 20))
	cancelled.Status = models.EnrollmentStatusCancelled

	repo.details["stu-1"] = []models.EnrollmentDetail{
		detailRow("e1", "stu-1", models.EnrollmentCategoryTheme, 5, today.AddDate(0, 0, 10)),
		detailRow("e2", "stu-1", models.EnrollmentCategoryRegular, 8, today.AddDate(0, 0, 60)),
		detailRow("e3", "stu-1", models.EnrollmentCategoryRegular, 3, today.AddDate(0, 0, -1)),
		flagged,
		cancelled,
	}

	credits, err := svc.GetStudentCredits(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, credits.Theme, 1)
	require.Len(t, credits.Regular, 1)
	// Expired by date and expired by stale flag both land in the expired
	// bucket; cancelled rows are not credits at all.
	require.Len(t, credits.Expired, 2)
	assert.Equal(t, "e1", credits.Theme[0].ID)
	assert.Equal(t, "e2", credits.Regular[0].ID)
}

func TestGetStudentValidCreditsAggregates(t *testing.T) {
	today := day(2026, time.August, 28)
	fixedClock(t, today)
	svc, repo, _ := newCreditFixture(t)

	repo.details["stu-1"] = []models.EnrollmentDetail{
		detailRow("e1", "stu-1", models.EnrollmentCategoryTheme, 5, today.AddDate(0, 0, 10)),
		detailRow("e2", "stu-1", models.EnrollmentCategoryRegular, 8, today.AddDate(0, 0, 60)),
		detailRow("e3", "stu-1", models.EnrollmentCategoryRegular, 3, today.AddDate(0, 0, -5)),
	}

	credits, err := svc.GetStudentValidCredits(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 13, credits.TotalRemaining)
	assert.Equal(t, 5, credits.ByCategory[models.EnrollmentCategoryTheme])
	assert.Equal(t, 8, credits.ByCategory[models.EnrollmentCategoryRegular])
	require.Len(t, credits.Courses, 2)
	assert.Equal(t, models.ExpiryStateExpiring, credits.Courses[0].Expiry.Status)
	assert.Equal(t, 10, credits.Courses[0].Expiry.RemainingDays)
	assert.Equal(t, models.ExpiryStateActive, credits.Courses[1].Expiry.Status)
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	today := day(2026, time.August, 28)
	fixedClock(t, today)
	svc, repo, _ := newCreditFixture(t)
	repo.markReturns = []int{3, 0}

	first, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.UpdatedCount)

	second, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.UpdatedCount, "re-running with no newly lapsed rows updates zero")

	require.Len(t, repo.markedAsOf, 2)
	assert.Equal(t, today, repo.markedAsOf[0], "sweep compares against date-truncated today")
}

func TestExtendValidityRecordsAuditAndResetsFlag(t *testing.T) {
	today := day(2026, time.August, 28)
	fixedClock(t, today)
	svc, _, extensions := newCreditFixture(t)

	// Lapsed 40 days ago and already flagged by the sweep.
	lapsed := today.AddDate(0, 0, -40)
	extensions.rows["enr-1"] = &models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1",
		Status: models.EnrollmentStatusActive, Category: models.EnrollmentCategoryRegular,
		ValidUntil: lapsed, IsExpired: true, ExtendedTimes: 0,
	}

	ext, err := svc.ExtendValidity(context.Background(), "enr-1", ExtendValidityRequest{
		Days: 14, Reason: "make-up classes", ApprovedBy: "adm-1", CreatedBy: "ops-1",
	})
	require.NoError(t, err)

	assert.Equal(t, lapsed, ext.OriginalExpiry)
	assert.Equal(t, lapsed.AddDate(0, 0, 14), ext.NewExpiry)
	assert.Equal(t, "make-up classes", ext.Reason)
	assert.Equal(t, "adm-1", ext.ApprovedBy)
	assert.Equal(t, "ops-1", ext.CreatedBy)

	updated := extensions.rows["enr-1"]
	assert.Equal(t, 1, updated.ExtendedTimes)
	assert.False(t, updated.IsExpired, "flag reset by the extension")
	// 14 days on a 40-day-lapsed row is still past-dated: the flag and the
	// date-derived check legitimately disagree until the next sweep.
	assert.False(t, IsCurrentlyValid(*updated, today))
}

func TestExtendValidityNotFound(t *testing.T) {
	svc, _, _ := newCreditFixture(t)

	_, err := svc.ExtendValidity(context.Background(), "missing", ExtendValidityRequest{
		Days: 7, Reason: "r", ApprovedBy: "a", CreatedBy: "c",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExtendValidityRejectsInvalidPayload(t *testing.T) {
	svc, _, extensions := newCreditFixture(t)
	extensions.rows["enr-1"] = &models.Enrollment{ID: "enr-1", ValidUntil: time.Now()}

	_, err := svc.ExtendValidity(context.Background(), "enr-1", ExtendValidityRequest{Days: 0, Reason: "r", ApprovedBy: "a", CreatedBy: "c"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, extensions.applied, "nothing written for an invalid request")
}

func TestListExpiringUsesConfiguredWindow(t *testing.T) {
	today := day(2026, time.August, 28)
	fixedClock(t, today)
	svc, repo, _ := newCreditFixture(t)

	repo.expiring = []models.EnrollmentDetail{
		detailRow("e1", "stu-1", models.EnrollmentCategoryRegular, 4, today.AddDate(0, 0, 2)),
		detailRow("e2", "stu-2", models.EnrollmentCategoryRegular, 6, today.AddDate(0, 0, 12)),
	}

	within, err := svc.ListExpiring(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, within, 1, "default 7-day window excludes the later row")
	assert.Equal(t, "e1", within[0].ID)

	wider, err := svc.ListExpiring(context.Background(), 14)
	require.NoError(t, err)
	assert.Len(t, wider, 2)
}

func TestExpiryClassificationBoundaries(t *testing.T) {
	today := day(2026, time.August, 28)
	fixedClock(t, today)
	svc, _, _ := newCreditFixture(t)

	past := svc.ExpiryStatusFor(today.AddDate(0, 0, -40))
	assert.Equal(t, models.ExpiryStateExpired, past.Status)
	assert.Equal(t, 0, past.RemainingDays)
	assert.False(t, svc.IsExpiringSoon(today.AddDate(0, 0, -40)))

	assert.Equal(t, models.ExpiryStateExpired, svc.ExpiryStatusFor(today).Status)
	assert.Equal(t, models.ExpiryStateExpiring, svc.ExpiryStatusFor(today.AddDate(0, 0, 1)).Status)
	assert.Equal(t, models.ExpiryStateExpiring, svc.ExpiryStatusFor(today.AddDate(0, 0, 30)).Status)
	assert.Equal(t, models.ExpiryStateActive, svc.ExpiryStatusFor(today.AddDate(0, 0, 31)).Status)

	assert.True(t, svc.IsExpiringSoon(today.AddDate(0, 0, 1)))
	assert.True(t, svc.IsExpiringSoon(today.AddDate(0, 0, 30)))
	assert.False(t, svc.IsExpiringSoon(today.AddDate(0, 0, 31)))
	assert.False(t, svc.IsExpiringSoon(today))
}

func TestListExtensions(t *testing.T) {
	svc, repo, extensions := newCreditFixture(t)
	repo.rows["enr-1"] = models.Enrollment{ID: "enr-1", ValidUntil: time.Now()}
	extensions.rows["enr-1"] = &models.Enrollment{ID: "enr-1", ValidUntil: time.Now()}

	_, err := svc.ExtendValidity(context.Background(), "enr-1", ExtendValidityRequest{Days: 7, Reason: "r", ApprovedBy: "a", CreatedBy: "c"})
	require.NoError(t, err)

	history, err := svc.ListExtensions(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 7, history[0].ExtendedDays)

	_, err = svc.ListExtensions(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
