package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-portal-api/internal/models"
)

const enrollmentColumns = `id, user_id, course_id, status, expiry_date, enrolled_at, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindLatest returns the most recent enrollment for the pair, or sql.ErrNoRows.
func (r *EnrollmentRepository) FindLatest(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments
        WHERE user_id = $1 AND course_id = $2
        ORDER BY enrolled_at DESC, id DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CreatePending inserts a pending enrollment unless the pair already has one.
// The boolean reports whether a row was inserted.
func (r *EnrollmentRepository) CreatePending(ctx context.Context, userID, courseID string) (*models.Enrollment, bool, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO enrollments (id, user_id, course_id, status, enrolled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5, $5)
        ON CONFLICT (user_id, course_id) DO NOTHING
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	err := r.db.GetContext(ctx, &enrollment, query, uuid.NewString(), userID, courseID, models.EnrollmentStatusPending, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create enrollment: %w", err)
	}
	return &enrollment, true, nil
}

// RenewExpired moves an expired enrollment back to pending. Rows in any other
// status are left alone and reported as sql.ErrNoRows.
func (r *EnrollmentRepository) RenewExpired(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3
        WHERE id = $1 AND status = $4
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, models.EnrollmentStatusPending, time.Now().UTC(), models.EnrollmentStatusExpired); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateStatus sets status and expiry date on one enrollment, returning sql.ErrNoRows when absent.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, update models.EnrollmentStatusUpdate) (*models.Enrollment, error) {
	const query = `UPDATE enrollments SET status = $2, expiry_date = $3, updated_at = $4
        WHERE id = $1
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, update.Status, update.ExpiryDate, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// BulkUpdateStatus applies one status to every listed enrollment and returns the rows it touched.
func (r *EnrollmentRepository) BulkUpdateStatus(ctx context.Context, ids []string, update models.EnrollmentStatusUpdate) ([]models.Enrollment, error) {
	if len(ids) == 0 {
		return []models.Enrollment{}, nil
	}
	const query = `UPDATE enrollments SET status = $2, expiry_date = $3, updated_at = $4
        WHERE id = ANY($1)
        RETURNING ` + enrollmentColumns
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, pq.Array(ids), update.Status, update.ExpiryDate, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("bulk update enrollments: %w", err)
	}
	return enrollments, nil
}

// Delete removes an enrollment and returns the deleted row, or sql.ErrNoRows.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `DELETE FROM enrollments WHERE id = $1 RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByUser returns the user's enrollments joined with their courses.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentWithCourse, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.status, e.expiry_date, e.enrolled_at, e.created_at, e.updated_at,
        c.id AS "course.id", c.title AS "course.title", c.description AS "course.description",
        c.course_type AS "course.course_type", c.thumbnail_url AS "course.thumbnail_url",
        c.num_videos AS "course.num_videos", c.zoom_link AS "course.zoom_link", c.tags AS "course.tags",
        c.created_at AS "course.created_at", c.updated_at AS "course.updated_at"
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.user_id = $1
        ORDER BY e.enrolled_at DESC`
	enrollments := []models.EnrollmentWithCourse{}
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list user enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByCourse returns a course roster with profile details, newest first.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithProfile, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.status, e.expiry_date, e.enrolled_at, e.created_at, e.updated_at,
        p.id AS "profile.id", p.full_name AS "profile.full_name", p.username AS "profile.username", p.email AS "profile.email"
        FROM enrollments e
        LEFT JOIN profiles p ON p.id = e.user_id
        WHERE e.course_id = $1
        ORDER BY e.enrolled_at DESC`
	enrollments := []models.EnrollmentWithProfile{}
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// ListPending returns every pending enrollment across courses, newest first.
func (r *EnrollmentRepository) ListPending(ctx context.Context) ([]models.PendingEnrollment, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.status, e.enrolled_at,
        c.title AS course_title, p.full_name, p.username, p.email
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN profiles p ON p.id = e.user_id
        WHERE e.status = $1
        ORDER BY e.enrolled_at DESC`
	pending := []models.PendingEnrollment{}
	if err := r.db.SelectContext(ctx, &pending, query, models.EnrollmentStatusPending); err != nil {
		return nil, fmt.Errorf("list pending enrollments: %w", err)
	}
	return pending, nil
}
