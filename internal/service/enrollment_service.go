package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

type enrollmentRepository interface {
	FindLatest(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	CreatePending(ctx context.Context, userID, courseID string) (*models.Enrollment, bool, error)
	RenewExpired(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, update models.EnrollmentStatusUpdate) (*models.Enrollment, error)
	BulkUpdateStatus(ctx context.Context, ids []string, update models.EnrollmentStatusUpdate) ([]models.Enrollment, error)
	Delete(ctx context.Context, id string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.EnrollmentWithCourse, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithProfile, error)
	ListPending(ctx context.Context) ([]models.PendingEnrollment, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// UpdateEnrollmentStatusRequest is the admin payload for a single status change.
type UpdateEnrollmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// BulkUpdateEnrollmentStatusRequest is the admin payload for a batch status change.
// Field checks happen in ValidateBulkOperation so each failure keeps its own code.
type BulkUpdateEnrollmentStatusRequest struct {
	EnrollmentIDs []string `json:"enrollment_ids"`
	Status        string   `json:"status"`
}

// UserEnrollment is one dashboard row.
type UserEnrollment struct {
	models.EnrollmentWithCourse
	Presentation EnrollmentPresentation `json:"presentation"`
}

// EnrollmentStatusView is the caller's standing on one course.
type EnrollmentStatusView struct {
	CourseID     string                 `json:"course_id"`
	Enrollment   *models.Enrollment     `json:"enrollment"`
	Presentation EnrollmentPresentation `json:"presentation"`
	CanAccess    bool                   `json:"can_access"`
}

// CourseRoster is the admin view of a course's enrollments.
type CourseRoster struct {
	CourseID    string                         `json:"course_id"`
	Enrollments []models.EnrollmentWithProfile `json:"enrollments"`
	Stats       models.CourseEnrollmentStats   `json:"stats"`
}

// EnrollmentService orchestrates the enrollment lifecycle.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Status returns the caller's latest enrollment for a course and how to present it.
// The enrollment may come from cache; CanAccess is always read from the store.
func (s *EnrollmentService) Status(ctx context.Context, userID, courseID string) (*EnrollmentStatusView, error) {
	courseID, err := CanonicalID(courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "invalid course id")
	}
	enrollment, err := Fetch(ctx, s.cache, EnrollmentStatusKey(userID, courseID), 0, func(ctx context.Context) (*models.Enrollment, error) {
		return s.latest(ctx, userID, courseID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment status")
	}
	return &EnrollmentStatusView{
		CourseID:     courseID,
		Enrollment:   enrollment,
		Presentation: ResolveStatus(enrollment),
		CanAccess:    s.IsEnrolled(ctx, userID, courseID),
	}, nil
}

// Current reads the caller's latest enrollment straight from the store, skipping
// the cache. Anonymous callers have none.
func (s *EnrollmentService) Current(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if userID == "" {
		return nil, nil
	}
	return Retry(ctx, s.cache, "enrollment_current", func(ctx context.Context) (*models.Enrollment, error) {
		return s.latest(ctx, userID, courseID)
	})
}

// IsEnrolled reads the current status straight from the store. A failed read
// counts as not enrolled; callers gate content on it.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, userID, courseID string) bool {
	enrollment, err := s.Current(ctx, userID, courseID)
	if err != nil {
		s.logger.Warn("enrollment check failed, denying access",
			zap.String("user_id", userID), zap.String("course_id", courseID), zap.Error(err))
		return false
	}
	return IsEnrolled(enrollment)
}

// RequestEnrollment creates a pending enrollment or renews an expired one. Pending,
// active and suspended enrollments are returned unchanged.
func (s *EnrollmentService) RequestEnrollment(ctx context.Context, userID, courseID string) (*EnrollmentStatusView, error) {
	courseID, err := CanonicalID(courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "invalid course id")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	current, err := Retry(ctx, s.cache, "enrollment_latest", func(ctx context.Context) (*models.Enrollment, error) {
		return s.latest(ctx, userID, courseID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	var (
		result  *models.Enrollment
		changed bool
	)
	switch models.StateOf(current) {
	case models.StateNotEnrolled:
		result, changed, err = s.repo.CreatePending(ctx, userID, courseID)
		if err == nil && !changed {
			// Lost a race with a concurrent request; the unique index kept one row.
			result, err = s.latest(ctx, userID, courseID)
		}
	case models.StateExpired:
		result, err = s.repo.RenewExpired(ctx, current.ID)
		changed = err == nil
		if errors.Is(err, sql.ErrNoRows) {
			result, err = s.latest(ctx, userID, courseID)
		}
	default:
		result = current
	}
	if changed || err != nil {
		s.metrics.RecordEnrollmentMutation(string(MutationEnrollmentRequested), err)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request enrollment")
	}

	if changed {
		s.cache.Invalidate(ctx, MutationEnrollmentRequested, CacheScope{UserID: userID, CourseID: courseID})
		s.logger.Info("enrollment requested",
			zap.String("user_id", userID), zap.String("course_id", courseID), zap.String("enrollment_id", result.ID))
	}

	return &EnrollmentStatusView{
		CourseID:     courseID,
		Enrollment:   result,
		Presentation: ResolveStatus(result),
		CanAccess:    IsEnrolled(result),
	}, nil
}

// ListForUser returns the caller's enrollments with their course and presentation.
func (s *EnrollmentService) ListForUser(ctx context.Context, userID string) ([]UserEnrollment, error) {
	rows, err := Fetch(ctx, s.cache, UserEnrollmentsKey(userID), 0, func(ctx context.Context) ([]models.EnrollmentWithCourse, error) {
		return s.repo.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	enrollments := make([]UserEnrollment, 0, len(rows))
	for i := range rows {
		enrollments = append(enrollments, UserEnrollment{
			EnrollmentWithCourse: rows[i],
			Presentation:         ResolveStatus(&rows[i].Enrollment),
		})
	}
	return enrollments, nil
}

// CourseRoster returns every enrollment of a course with profile details and status counts.
func (s *EnrollmentService) CourseRoster(ctx context.Context, courseID string) (*CourseRoster, error) {
	courseID, err := CanonicalID(courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "invalid course id")
	}
	rows, err := Fetch(ctx, s.cache, CourseEnrollmentsKey(courseID), 0, func(ctx context.Context) ([]models.EnrollmentWithProfile, error) {
		return s.repo.ListByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course enrollments")
	}
	return &CourseRoster{CourseID: courseID, Enrollments: rows, Stats: rosterStats(rows)}, nil
}

// PendingSummary lists enrollments awaiting approval across all courses.
func (s *EnrollmentService) PendingSummary(ctx context.Context) ([]models.PendingEnrollment, error) {
	rows, err := Fetch(ctx, s.cache, PendingEnrollmentsKey(), 0, s.repo.ListPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending enrollments")
	}
	return rows, nil
}

// UpdateStatus sets one enrollment's status. Expiring stamps the expiry date; any other status clears it.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	id, err := CanonicalID(id)
	if err != nil {
		return nil, appErrors.ErrInvalidEnrollmentID
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "status is required")
	}
	status, ok := models.ParseEnrollmentStatus(req.Status)
	if !ok {
		return nil, appErrors.ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, id, s.statusUpdate(status))
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("enrollment status update skipped, not found", zap.String("enrollment_id", id))
		return nil, appErrors.ErrEnrollmentNotFound
	}
	s.metrics.RecordEnrollmentMutation(string(MutationEnrollmentStatusChanged), err)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	s.cache.Invalidate(ctx, MutationEnrollmentStatusChanged, CacheScope{UserID: updated.UserID, CourseID: updated.CourseID})
	s.logger.Info("enrollment status updated", zap.String("enrollment_id", id), zap.String("status", string(status)))
	return updated, nil
}

// BulkUpdateStatus applies one status to up to MaxBulkBatchSize enrollments. Input is fully
// validated before the store is touched; ids that match no row are reported, not failed.
func (s *EnrollmentService) BulkUpdateStatus(ctx context.Context, req BulkUpdateEnrollmentStatusRequest) (*models.BulkUpdateResult, error) {
	ids, status, err := ValidateBulkOperation(req.EnrollmentIDs, req.Status)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.BulkUpdateStatus(ctx, ids, s.statusUpdate(status))
	s.metrics.RecordEnrollmentMutation(string(MutationEnrollmentBulkUpdated), err)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollments")
	}

	touched := make(map[string]struct{}, len(updated))
	for _, e := range updated {
		touched[e.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := touched[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(updated) > 0 {
		s.cache.Invalidate(ctx, MutationEnrollmentBulkUpdated)
	}
	s.logger.Info("bulk enrollment status update",
		zap.Int("requested", len(ids)), zap.Int("updated", len(updated)), zap.Int("missing", len(missing)),
		zap.String("status", string(status)))

	return &models.BulkUpdateResult{Requested: len(ids), Updated: updated, MissingIDs: missing}, nil
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	id, err := CanonicalID(id)
	if err != nil {
		return appErrors.ErrInvalidEnrollmentID
	}
	deleted, err := s.repo.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("enrollment delete skipped, not found", zap.String("enrollment_id", id))
		return appErrors.ErrEnrollmentNotFound
	}
	s.metrics.RecordEnrollmentMutation(string(MutationEnrollmentDeleted), err)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.cache.Invalidate(ctx, MutationEnrollmentDeleted, CacheScope{UserID: deleted.UserID, CourseID: deleted.CourseID})
	s.logger.Info("enrollment deleted", zap.String("enrollment_id", id))
	return nil
}

func (s *EnrollmentService) latest(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindLatest(ctx, userID, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return enrollment, err
}

func (s *EnrollmentService) statusUpdate(status models.EnrollmentStatus) models.EnrollmentStatusUpdate {
	update := models.EnrollmentStatusUpdate{Status: status}
	if status == models.EnrollmentStatusExpired {
		now := s.now()
		update.ExpiryDate = &now
	}
	return update
}

func rosterStats(rows []models.EnrollmentWithProfile) models.CourseEnrollmentStats {
	stats := models.CourseEnrollmentStats{Total: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case models.EnrollmentStatusActive:
			stats.Active++
		case models.EnrollmentStatusPending:
			stats.Pending++
		case models.EnrollmentStatusSuspended:
			stats.Suspended++
		case models.EnrollmentStatusExpired:
			stats.Expired++
		}
	}
	return stats
}
