package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tuition-credit-api/internal/models"
)

// CourseRepository reads courses and packages owned by the course subsystem.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, category, end_date, default_validity_days, sessions_per_week, active FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindPackageByID returns a course package by its ID.
func (r *CourseRepository) FindPackageByID(ctx context.Context, id string) (*models.CoursePackage, error) {
	const query = `SELECT id, course_id, name, session_count, price_cents, validity_days, active FROM course_packages WHERE id = $1`
	var pkg models.CoursePackage
	if err := r.db.GetContext(ctx, &pkg, query, id); err != nil {
		return nil, err
	}
	return &pkg, nil
}
