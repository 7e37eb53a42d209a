package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-credit-api/internal/dto"
	"github.com/noah-isme/tuition-credit-api/internal/models"
	appErrors "github.com/noah-isme/tuition-credit-api/pkg/errors"
)

type ledgerRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindActiveUnexpired(ctx context.Context, studentID, courseID string, asOf time.Time) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	MergePurchase(ctx context.Context, candidate *models.Enrollment, asOf time.Time) (*models.Enrollment, bool, error)
}

type orderReader interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	ListEnrollmentItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindPackageByID(ctx context.Context, id string) (*models.CoursePackage, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EnrollmentService converts confirmed purchase orders into ledger rows and
// owns the merge-vs-create decision.
type EnrollmentService struct {
	repo      ledgerRepository
	orders    orderReader
	courses   courseReader
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo ledgerRepository, orders orderReader, courses courseReader, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, orders: orders, courses: courses, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// FindDetail returns a single enrollment with course info.
func (s *EnrollmentService) FindDetail(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// CreateFromOrder converts every enrollment-type line item of a confirmed
// order into ledger rows, creating or merging per item. Callers on the order
// workflow boundary should use ProcessOrderCompletion instead.
func (s *EnrollmentService) CreateFromOrder(ctx context.Context, orderID string) ([]models.Enrollment, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	if order.Status != models.OrderStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "order is not confirmed")
	}

	items, err := s.orders.ListEnrollmentItems(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order items")
	}

	var results []models.Enrollment
	for _, item := range items {
		var enrollment *models.Enrollment
		if item.PackageID != nil {
			enrollment, err = s.createPackageEnrollment(ctx, order, item)
		} else {
			enrollment, err = s.createDirectEnrollment(ctx, order, item)
		}
		if err != nil {
			return nil, err
		}
		results = append(results, *enrollment)
	}
	return results, nil
}

// ProcessOrderCompletion wraps CreateFromOrder for the order-confirmation
// workflow: the sale is already committed, so enrollment failures are logged
// and reported, never propagated.
func (s *EnrollmentService) ProcessOrderCompletion(ctx context.Context, orderID string) dto.OrderCompletionResult {
	enrollments, err := s.CreateFromOrder(ctx, orderID)
	if err != nil {
		s.logger.Error("order completion produced no enrollments",
			zap.String("order_id", orderID),
			zap.Error(err))
		return dto.OrderCompletionResult{Success: false, Message: appErrors.FromError(err).Message}
	}
	return dto.OrderCompletionResult{Success: true, Enrollments: enrollments}
}

func (s *EnrollmentService) createPackageEnrollment(ctx context.Context, order *models.Order, item models.OrderItem) (*models.Enrollment, error) {
	pkg, err := s.courses.FindPackageByID(ctx, *item.PackageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course package")
	}
	course, err := s.findCourse(ctx, pkg.CourseID)
	if err != nil {
		return nil, err
	}

	validityDays := item.ValidityDays
	if validityDays == nil {
		validityDays = pkg.ValidityDays
	}
	sessions := pkg.SessionCount * quantityOf(item)

	return s.buildAndUpsert(ctx, order, item, course, sessions, validityDays)
}

func (s *EnrollmentService) createDirectEnrollment(ctx context.Context, order *models.Order, item models.OrderItem) (*models.Enrollment, error) {
	course, err := s.findCourse(ctx, item.CourseID)
	if err != nil {
		return nil, err
	}
	sessions := item.SessionCount * quantityOf(item)
	return s.buildAndUpsert(ctx, order, item, course, sessions, item.ValidityDays)
}

func (s *EnrollmentService) findCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *EnrollmentService) buildAndUpsert(ctx context.Context, order *models.Order, item models.OrderItem, course *models.Course, sessions int, validityDays *int) (*models.Enrollment, error) {
	purchaseDate := timeNow().UTC()
	if order.ConfirmedAt != nil {
		purchaseDate = *order.ConfirmedAt
	}

	window, err := ComputeValidity(ValidityInput{
		CourseCategory:      course.Category,
		PurchaseDate:        purchaseDate,
		SessionCount:        sessions,
		PackageValidityDays: validityDays,
		CourseEndDate:       course.EndDate,
		DefaultValidityDays: course.DefaultValidityDays,
		SessionsPerWeek:     course.SessionsPerWeek,
	})
	if err != nil {
		return nil, err
	}

	candidate := &models.Enrollment{
		StudentID:         order.StudentID,
		CourseID:          course.ID,
		PackageID:         item.PackageID,
		PurchasedSessions: sessions,
		RemainingSessions: sessions,
		BonusSessions:     0,
		Status:            models.EnrollmentStatusActive,
		Source:            sourceOf(order),
		Category:          categoryOf(course),
		ValidFrom:         window.ValidFrom,
		ValidUntil:        window.ValidUntil,
		Notes:             order.ID,
	}
	return s.upsert(ctx, candidate)
}

// upsert routes a candidate through the merge path for regular purchases and
// always inserts for theme purchases, which each stand alone.
func (s *EnrollmentService) upsert(ctx context.Context, candidate *models.Enrollment) (*models.Enrollment, error) {
	if candidate.StudentID == "" || candidate.CourseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment candidate missing student or course reference")
	}

	if candidate.Category != models.EnrollmentCategoryRegular {
		if err := s.repo.Create(ctx, candidate); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
		s.metrics.RecordEnrollmentCreated()
		s.invalidateCredits(ctx, candidate.StudentID)
		return candidate, nil
	}

	enrollment, merged, err := s.repo.MergePurchase(ctx, candidate, dateOnly(timeNow()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to merge purchase")
	}
	if merged {
		s.metrics.RecordPurchaseMerged()
		s.logger.Info("purchase merged into existing enrollment",
			zap.String("enrollment_id", enrollment.ID),
			zap.String("student_id", enrollment.StudentID),
			zap.String("course_id", enrollment.CourseID),
			zap.Int("added_sessions", candidate.PurchasedSessions))
	} else {
		s.metrics.RecordEnrollmentCreated()
	}
	s.invalidateCredits(ctx, enrollment.StudentID)
	return enrollment, nil
}

// GetExistingEnrollment returns the row a regular purchase would merge into.
func (s *EnrollmentService) GetExistingEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindActiveUnexpired(ctx, studentID, courseID, dateOnly(timeNow()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find existing enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) invalidateCredits(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "credits:"+studentID+":*"); err != nil {
		s.logger.Warn("failed to invalidate credit cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

func quantityOf(item models.OrderItem) int {
	if item.Quantity <= 0 {
		return 1
	}
	return item.Quantity
}

func sourceOf(order *models.Order) models.EnrollmentSource {
	if order.Source == "ONLINE" {
		return models.EnrollmentSourceOnline
	}
	return models.EnrollmentSourceManual
}

func categoryOf(course *models.Course) models.EnrollmentCategory {
	if course.Category == models.CourseCategoryTheme {
		return models.EnrollmentCategoryTheme
	}
	return models.EnrollmentCategoryRegular
}
