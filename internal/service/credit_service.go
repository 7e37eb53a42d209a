package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-credit-api/internal/dto"
	"github.com/noah-isme/tuition-credit-api/internal/models"
	"github.com/noah-isme/tuition-credit-api/internal/repository"
	appErrors "github.com/noah-isme/tuition-credit-api/pkg/errors"
)

type creditRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	MarkExpired(ctx context.Context, asOf time.Time) (int, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]models.EnrollmentDetail, error)
}

type extensionStore interface {
	ApplyExtension(ctx context.Context, params repository.ExtensionParams) (*models.EnrollmentExtension, *models.Enrollment, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.EnrollmentExtension, error)
}

type creditCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ExtendValidityRequest describes a manual validity extension. Both actors
// are explicit parameters; nothing is resolved from ambient state.
type ExtendValidityRequest struct {
	Days       int    `json:"days" validate:"required,gt=0"`
	Reason     string `json:"reason" validate:"required"`
	ApprovedBy string `json:"approved_by" validate:"required"`
	CreatedBy  string `json:"created_by" validate:"required"`
}

// CreditService is the read side of the ledger plus the expiry sweep and the
// audited extension workflow.
type CreditService struct {
	repo       creditRepository
	extensions extensionStore
	cache      creditCache
	metrics    *MetricsService

	cacheTTL          time.Duration
	expiringThreshold int
	expiringWindow    int

	validator *validator.Validate
	logger    *zap.Logger
}

// CreditServiceConfig tunes caching and classification behaviour.
type CreditServiceConfig struct {
	CacheTTL          time.Duration
	ExpiringThreshold int
	ExpiringWindow    int
}

// NewCreditService constructs CreditService.
func NewCreditService(repo creditRepository, extensions extensionStore, cache creditCache, metrics *MetricsService, cfg CreditServiceConfig, validate *validator.Validate, logger *zap.Logger) *CreditService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExpiringThreshold <= 0 {
		cfg.ExpiringThreshold = 30
	}
	if cfg.ExpiringWindow <= 0 {
		cfg.ExpiringWindow = 7
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &CreditService{
		repo:              repo,
		extensions:        extensions,
		cache:             cache,
		metrics:           metrics,
		cacheTTL:          cfg.CacheTTL,
		expiringThreshold: cfg.ExpiringThreshold,
		expiringWindow:    cfg.ExpiringWindow,
		validator:         validate,
		logger:            logger,
	}
}

// GetStudentCredits partitions a student's ledger rows into theme, regular
// and expired buckets. The expired bucket honours both the stored flag and
// the date-derived check, so a row the sweep has not reached yet still lands
// where it belongs.
func (s *CreditService) GetStudentCredits(ctx context.Context, studentID string) (*dto.StudentCredits, error) {
	cacheKey := fmt.Sprintf("credits:%s:summary", studentID)
	if s.cache != nil {
		var cached dto.StudentCredits
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("credit summary cache read failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	rows, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student enrollments")
	}

	now := timeNow()
	credits := &dto.StudentCredits{
		StudentID: studentID,
		Theme:     []models.EnrollmentDetail{},
		Regular:   []models.EnrollmentDetail{},
		Expired:   []models.EnrollmentDetail{},
	}
	for _, row := range rows {
		if row.Status != models.EnrollmentStatusActive {
			continue
		}
		if !IsCurrentlyValid(row.Enrollment, now) {
			credits.Expired = append(credits.Expired, row)
			continue
		}
		switch row.Category {
		case models.EnrollmentCategoryTheme:
			credits.Theme = append(credits.Theme, row)
		default:
			credits.Regular = append(credits.Regular, row)
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, credits, s.cacheTTL); err != nil {
			s.logger.Warn("credit summary cache write failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return credits, nil
}

// GetStudentValidCredits aggregates remaining sessions across currently-valid
// rows: a total, a per-category breakdown and a per-course list with each
// row's expiry countdown.
func (s *CreditService) GetStudentValidCredits(ctx context.Context, studentID string) (*dto.ValidCredits, error) {
	cacheKey := fmt.Sprintf("credits:%s:valid", studentID)
	if s.cache != nil {
		var cached dto.ValidCredits
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("valid credit cache read failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	rows, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student enrollments")
	}

	now := timeNow()
	credits := &dto.ValidCredits{
		StudentID:  studentID,
		ByCategory: map[models.EnrollmentCategory]int{},
		Courses:    []dto.CourseCredit{},
	}
	for _, row := range rows {
		if !IsCurrentlyValid(row.Enrollment, now) {
			continue
		}
		credits.TotalRemaining += row.RemainingSessions
		credits.ByCategory[row.Category] += row.RemainingSessions
		credits.Courses = append(credits.Courses, dto.CourseCredit{
			EnrollmentID:      row.ID,
			CourseID:          row.CourseID,
			CourseName:        row.CourseName,
			Category:          row.Category,
			RemainingSessions: row.RemainingSessions,
			ValidUntil:        dateOnly(row.ValidUntil).Format("2006-01-02"),
			Expiry:            s.ExpiryStatusFor(row.ValidUntil),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, credits, s.cacheTTL); err != nil {
			s.logger.Warn("valid credit cache write failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return credits, nil
}

// SweepExpired reconciles the cached is_expired flag with the date-derived
// truth. Idempotent; safe to run concurrently with merges.
func (s *CreditService) SweepExpired(ctx context.Context) (*dto.SweepResult, error) {
	now := timeNow()
	updated, err := s.repo.MarkExpired(ctx, dateOnly(now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep expired enrollments")
	}
	s.metrics.RecordSweep(updated)
	if updated > 0 {
		s.logger.Info("expiry sweep flagged enrollments", zap.Int("updated", updated))
		s.invalidateAllCredits(ctx)
	}
	return &dto.SweepResult{UpdatedCount: updated, RanAt: now.UTC().Format(time.RFC3339)}, nil
}

// ExtendValidity pushes an enrollment's valid_until forward and records the
// append-only audit row; both writes happen in one transaction downstream.
// Resetting is_expired does not guarantee future-dated validity: a short
// extension of a long-lapsed row stays expired by date until the next sweep.
func (s *CreditService) ExtendValidity(ctx context.Context, enrollmentID string, req ExtendValidityRequest) (*models.EnrollmentExtension, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extension payload")
	}

	ext, enrollment, err := s.extensions.ApplyExtension(ctx, repository.ExtensionParams{
		EnrollmentID: enrollmentID,
		Days:         req.Days,
		Reason:       req.Reason,
		ApprovedBy:   req.ApprovedBy,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to extend enrollment validity")
	}

	s.metrics.RecordExtension()
	s.logger.Info("enrollment validity extended",
		zap.String("enrollment_id", enrollmentID),
		zap.Int("days", req.Days),
		zap.String("approved_by", req.ApprovedBy),
		zap.String("created_by", req.CreatedBy),
		zap.Time("new_expiry", ext.NewExpiry))
	s.invalidateStudentCredits(ctx, enrollment.StudentID)
	return ext, nil
}

// ListExtensions returns the audit trail for one enrollment.
func (s *CreditService) ListExtensions(ctx context.Context, enrollmentID string) ([]models.EnrollmentExtension, error) {
	if _, err := s.repo.FindByID(ctx, enrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	extensions, err := s.extensions.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list extensions")
	}
	return extensions, nil
}

// ListExpiring returns active enrollments lapsing within daysAhead days,
// soonest first. Zero or negative daysAhead uses the configured window.
func (s *CreditService) ListExpiring(ctx context.Context, daysAhead int) ([]models.EnrollmentDetail, error) {
	if daysAhead <= 0 {
		daysAhead = s.expiringWindow
	}
	from := dateOnly(timeNow())
	to := from.AddDate(0, 0, daysAhead)
	enrollments, err := s.repo.ListExpiring(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expiring enrollments")
	}
	return enrollments, nil
}

// RemainingDays counts whole days left until validUntil, floored at zero.
func (s *CreditService) RemainingDays(validUntil time.Time) int {
	return RemainingDays(validUntil, timeNow())
}

// IsExpiringSoon reports whether the window lapses within the configured
// threshold without having lapsed already.
func (s *CreditService) IsExpiringSoon(validUntil time.Time) bool {
	remaining := s.RemainingDays(validUntil)
	return remaining > 0 && remaining <= s.expiringThreshold
}

// ExpiryStatusFor classifies a window into expired, expiring or active with a
// human-readable day count.
func (s *CreditService) ExpiryStatusFor(validUntil time.Time) models.ExpiryStatus {
	remaining := s.RemainingDays(validUntil)
	switch {
	case remaining == 0:
		return models.ExpiryStatus{Status: models.ExpiryStateExpired, RemainingDays: 0, Label: "expired"}
	case remaining <= s.expiringThreshold:
		return models.ExpiryStatus{Status: models.ExpiryStateExpiring, RemainingDays: remaining, Label: fmt.Sprintf("expires in %d days", remaining)}
	default:
		return models.ExpiryStatus{Status: models.ExpiryStateActive, RemainingDays: remaining, Label: fmt.Sprintf("%d days remaining", remaining)}
	}
}

func (s *CreditService) invalidateStudentCredits(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "credits:"+studentID+":*"); err != nil {
		s.logger.Warn("failed to invalidate credit cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *CreditService) invalidateAllCredits(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "credits:*"); err != nil {
		s.logger.Warn("failed to invalidate credit caches", zap.Error(err))
	}
}
