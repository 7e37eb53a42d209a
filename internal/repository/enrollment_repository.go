package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tuition-credit-api/internal/models"
)

// EnrollmentRepository handles persistence of ledger rows.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, course_id, package_id, purchased_sessions, remaining_sessions, bonus_sessions,
        status, source, category, valid_from, valid_until, is_expired,
        extended_times, last_extended_at, last_extended_by, notes, created_at, updated_at`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("e.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Expired != nil {
		conditions = append(conditions, fmt.Sprintf("e.is_expired = $%d", len(args)+1))
		args = append(args, *filter.Expired)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":  "e.created_at",
		"valid_until": "e.valid_until",
		"course_name": "c.name",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.package_id, e.purchased_sessions, e.remaining_sessions, e.bonus_sessions,
        e.status, e.source, e.category, e.valid_from, e.valid_until, e.is_expired,
        e.extended_times, e.last_extended_at, e.last_extended_by, e.notes, e.created_at, e.updated_at,
        c.name AS course_name, c.category AS course_category
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with course info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.package_id, e.purchased_sessions, e.remaining_sessions, e.bonus_sessions,
        e.status, e.source, e.category, e.valid_from, e.valid_until, e.is_expired,
        e.extended_times, e.last_extended_at, e.last_extended_by, e.notes, e.created_at, e.updated_at,
        c.name AS course_name, c.category AS course_category
        FROM enrollments e
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveUnexpired returns the most recent active, unexpired enrollment for
// a student and course, or sql.ErrNoRows. More than one such row violates the
// regular-category invariant but is tolerated via the created_at tie-break.
func (r *EnrollmentRepository) FindActiveUnexpired(ctx context.Context, studentID, courseID string, asOf time.Time) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments
        WHERE student_id = $1 AND course_id = $2 AND status = $3 AND is_expired = false AND valid_until >= $4
        ORDER BY created_at DESC LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID, models.EnrollmentStatusActive, asOf); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns every enrollment for a student with course info.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.package_id, e.purchased_sessions, e.remaining_sessions, e.bonus_sessions,
        e.status, e.source, e.category, e.valid_from, e.valid_until, e.is_expired,
        e.extended_times, e.last_extended_at, e.last_extended_by, e.notes, e.created_at, e.updated_at,
        c.name AS course_name, c.category AS course_category
        FROM enrollments e
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.created_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// Create persists a new ledger row.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	prepareEnrollment(enrollment)
	const query = `INSERT INTO enrollments (id, student_id, course_id, package_id, purchased_sessions, remaining_sessions, bonus_sessions,
        status, source, category, valid_from, valid_until, is_expired, extended_times, notes, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :package_id, :purchased_sessions, :remaining_sessions, :bonus_sessions,
        :status, :source, :category, :valid_from, :valid_until, :is_expired, :extended_times, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// MergePurchase folds a purchase candidate into the student's existing active
// unexpired row for the course, or inserts the candidate when none exists.
// The read-check-write sequence runs inside one transaction holding a row
// lock, and the accumulation itself is expressed server-side, so two
// concurrent purchases for the same (student, course) serialize instead of
// losing an update. Validity is never shortened: valid_until takes the later
// of the existing and candidate dates.
func (r *EnrollmentRepository) MergePurchase(ctx context.Context, candidate *models.Enrollment, asOf time.Time) (enrollment *models.Enrollment, merged bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin merge transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing models.Enrollment
	lockQuery := fmt.Sprintf(`SELECT %s FROM enrollments
        WHERE student_id = $1 AND course_id = $2 AND status = $3 AND is_expired = false AND valid_until >= $4
        ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, enrollmentColumns)
	err = tx.GetContext(ctx, &existing, lockQuery, candidate.StudentID, candidate.CourseID, models.EnrollmentStatusActive, asOf)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, false, fmt.Errorf("lock enrollment for merge: %w", err)
		}
		err = nil
		prepareEnrollment(candidate)
		const insertQuery = `INSERT INTO enrollments (id, student_id, course_id, package_id, purchased_sessions, remaining_sessions, bonus_sessions,
            status, source, category, valid_from, valid_until, is_expired, extended_times, notes, created_at, updated_at)
            VALUES (:id, :student_id, :course_id, :package_id, :purchased_sessions, :remaining_sessions, :bonus_sessions,
            :status, :source, :category, :valid_from, :valid_until, :is_expired, :extended_times, :notes, :created_at, :updated_at)`
		if _, err = tx.NamedExecContext(ctx, insertQuery, candidate); err != nil {
			return nil, false, fmt.Errorf("insert enrollment: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit enrollment insert: %w", err)
		}
		return candidate, false, nil
	}

	updateQuery := fmt.Sprintf(`UPDATE enrollments
        SET remaining_sessions = remaining_sessions + $2,
            purchased_sessions = purchased_sessions + $2,
            valid_until = GREATEST(valid_until, $3),
            updated_at = $4
        WHERE id = $1
        RETURNING %s`, enrollmentColumns)
	var updated models.Enrollment
	if err = tx.GetContext(ctx, &updated, updateQuery, existing.ID, candidate.PurchasedSessions, candidate.ValidUntil, time.Now().UTC()); err != nil {
		return nil, false, fmt.Errorf("merge purchase: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit purchase merge: %w", err)
	}
	return &updated, true, nil
}

// MarkExpired flips the cached is_expired flag for every active row whose
// window closed before asOf. Idempotent: a second run with no newly lapsed
// rows updates zero.
func (r *EnrollmentRepository) MarkExpired(ctx context.Context, asOf time.Time) (int, error) {
	const query = `UPDATE enrollments SET is_expired = true, updated_at = $2
        WHERE valid_until < $1 AND is_expired = false AND status = $3`
	result, err := r.db.ExecContext(ctx, query, asOf, time.Now().UTC(), models.EnrollmentStatusActive)
	if err != nil {
		return 0, fmt.Errorf("mark expired enrollments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired enrollments: %w", err)
	}
	return int(affected), nil
}

// ListExpiring returns active unexpired enrollments whose valid_until falls in
// [from, to], soonest first. Drives reminder workflows.
func (r *EnrollmentRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.package_id, e.purchased_sessions, e.remaining_sessions, e.bonus_sessions,
        e.status, e.source, e.category, e.valid_from, e.valid_until, e.is_expired,
        e.extended_times, e.last_extended_at, e.last_extended_by, e.notes, e.created_at, e.updated_at,
        c.name AS course_name, c.category AS course_category
        FROM enrollments e
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.status = $1 AND e.is_expired = false AND e.valid_until >= $2 AND e.valid_until <= $3
        ORDER BY e.valid_until ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusActive, from, to); err != nil {
		return nil, fmt.Errorf("list expiring enrollments: %w", err)
	}
	return enrollments, nil
}

func prepareEnrollment(enrollment *models.Enrollment) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	if enrollment.UpdatedAt.IsZero() {
		enrollment.UpdatedAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.Source == "" {
		enrollment.Source = models.EnrollmentSourceManual
	}
}
