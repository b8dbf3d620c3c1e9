package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

const (
	testUser   = "0b0e1a52-51a4-4d0c-9f3a-1f9f0c2a7e11"
	testCourse = "5d2c7f0e-2b1a-4e4f-8a6b-9c0d1e2f3a4b"
)

func newEnrollmentFixture(rows ...models.Enrollment) (*EnrollmentService, *fakeEnrollmentRepo, *memoryCache) {
	repo := newFakeEnrollmentRepo(rows...)
	courses := &fakeCourseRepo{courses: map[string]models.Course{testCourse: {ID: testCourse, Title: "Go Basics"}}}
	cacheRepo := newMemoryCache()
	svc := NewEnrollmentService(repo, courses, newTestCache(cacheRepo), NewMetricsService(), nil, nil)
	return svc, repo, cacheRepo
}

func enrollmentRow(id string, status models.EnrollmentStatus, enrolledAt time.Time) models.Enrollment {
	return models.Enrollment{ID: id, UserID: testUser, CourseID: testCourse, Status: status, EnrolledAt: enrolledAt}
}

func TestRequestEnrollmentCreatesPending(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	view, err := svc.RequestEnrollment(context.Background(), testUser, testCourse)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, view.Presentation.State)
	assert.False(t, view.CanAccess)
	assert.Equal(t, 1, repo.writeCalls)
}

func TestRequestEnrollmentLostRaceReturnsExistingRow(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()
	repo.createLost = true

	view, err := svc.RequestEnrollment(context.Background(), testUser, testCourse)
	require.NoError(t, err)
	assert.Equal(t, "raced", view.Enrollment.ID)
	assert.Equal(t, models.StatePending, view.Presentation.State)
}

func TestRequestEnrollmentRenewsExpired(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(enrollmentRow("old", models.EnrollmentStatusExpired, time.Now()))

	view, err := svc.RequestEnrollment(context.Background(), testUser, testCourse)
	require.NoError(t, err)
	assert.Equal(t, "old", view.Enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusPending, repo.rows["old"].Status)
	assert.Len(t, repo.rows, 1)
}

func TestRequestEnrollmentNoOpForOtherStates(t *testing.T) {
	for _, status := range []models.EnrollmentStatus{models.EnrollmentStatusPending, models.EnrollmentStatusActive, models.EnrollmentStatusSuspended} {
		t.Run(string(status), func(t *testing.T) {
			svc, repo, _ := newEnrollmentFixture(enrollmentRow("existing", status, time.Now()))

			view, err := svc.RequestEnrollment(context.Background(), testUser, testCourse)
			require.NoError(t, err)
			assert.Equal(t, status, view.Enrollment.Status)
			assert.Zero(t, repo.writeCalls)
		})
	}
}

func TestRequestEnrollmentUsesLatestRow(t *testing.T) {
	now := time.Now()
	svc, _, _ := newEnrollmentFixture(
		enrollmentRow("older", models.EnrollmentStatusActive, now.Add(-time.Hour)),
		enrollmentRow("newer", models.EnrollmentStatusSuspended, now),
	)
	view, err := svc.Status(context.Background(), testUser, testCourse)
	require.NoError(t, err)
	assert.Equal(t, "newer", view.Enrollment.ID)
	assert.False(t, view.CanAccess)
}

func TestRequestEnrollmentValidatesCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.RequestEnrollment(context.Background(), testUser, "bad")
	assert.ErrorIs(t, err, appErrors.ErrInvalidID)

	_, err = svc.RequestEnrollment(context.Background(), testUser, "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRequestEnrollmentInvalidatesStatusCache(t *testing.T) {
	svc, _, cacheRepo := newEnrollmentFixture()
	ctx := context.Background()

	before, err := svc.Status(ctx, testUser, testCourse)
	require.NoError(t, err)
	assert.Equal(t, models.StateNotEnrolled, before.Presentation.State)
	assert.Contains(t, cacheRepo.keys(), "test:"+EnrollmentStatusKey(testUser, testCourse))

	_, err = svc.RequestEnrollment(ctx, testUser, testCourse)
	require.NoError(t, err)

	after, err := svc.Status(ctx, testUser, testCourse)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, after.Presentation.State)
}

func TestRequestEnrollmentAcceptsUppercaseCourseID(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	view, err := svc.RequestEnrollment(context.Background(), testUser, strings.ToUpper(testCourse))
	require.NoError(t, err)
	assert.Equal(t, testCourse, view.CourseID)
	assert.Equal(t, testCourse, repo.rows["created"].CourseID)
}

func TestUppercaseCourseIDSharesInvalidatedEntries(t *testing.T) {
	svc, _, cacheRepo := newEnrollmentFixture(enrollmentRow(enrollmentA, models.EnrollmentStatusActive, time.Now()))
	ctx := context.Background()

	view, err := svc.Status(ctx, testUser, strings.ToUpper(testCourse))
	require.NoError(t, err)
	assert.True(t, view.CanAccess)
	_, err = svc.CourseRoster(ctx, strings.ToUpper(testCourse))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"test:" + CourseEnrollmentsKey(testCourse),
		"test:" + EnrollmentStatusKey(testUser, testCourse),
	}, cacheRepo.keys())

	_, err = svc.UpdateStatus(ctx, strings.ToUpper(enrollmentA), UpdateEnrollmentStatusRequest{Status: "suspended"})
	require.NoError(t, err)
	assert.Empty(t, cacheRepo.keys())

	view, err = svc.Status(ctx, testUser, strings.ToUpper(testCourse))
	require.NoError(t, err)
	assert.Equal(t, models.StateSuspended, view.Presentation.State)
	assert.False(t, view.CanAccess)
}

func TestStatusAccessReadsStore(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(enrollmentRow(enrollmentA, models.EnrollmentStatusActive, time.Now()))
	ctx := context.Background()

	view, err := svc.Status(ctx, testUser, testCourse)
	require.NoError(t, err)
	assert.True(t, view.CanAccess)

	row := repo.rows[enrollmentA]
	row.Status = models.EnrollmentStatusSuspended
	repo.rows[enrollmentA] = row

	view, err = svc.Status(ctx, testUser, testCourse)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, view.Enrollment.Status)
	assert.False(t, view.CanAccess)
}

func TestIsEnrolledFailsClosed(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(enrollmentRow("e1", models.EnrollmentStatusActive, time.Now()))
	repo.findErrs = []error{errors.New("down"), errors.New("down"), errors.New("down")}

	assert.False(t, svc.IsEnrolled(context.Background(), testUser, testCourse))
	assert.Equal(t, 3, repo.findCalls)
	assert.True(t, svc.IsEnrolled(context.Background(), testUser, testCourse))
	assert.False(t, svc.IsEnrolled(context.Background(), "", testCourse))
}

func TestIsEnrolledRecoversWithinRetryBudget(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(enrollmentRow("e1", models.EnrollmentStatusActive, time.Now()))
	repo.findErrs = []error{errors.New("blip")}

	assert.True(t, svc.IsEnrolled(context.Background(), testUser, testCourse))
	assert.Equal(t, 2, repo.findCalls)
}

func TestUpdateStatusExpiredStampsDate(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(enrollmentRow(enrollmentA, models.EnrollmentStatusActive, time.Now()))
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	updated, err := svc.UpdateStatus(context.Background(), enrollmentA, UpdateEnrollmentStatusRequest{Status: "expired"})
	require.NoError(t, err)
	require.NotNil(t, updated.ExpiryDate)
	assert.Equal(t, fixed, *updated.ExpiryDate)

	updated, err = svc.UpdateStatus(context.Background(), enrollmentA, UpdateEnrollmentStatusRequest{Status: "active"})
	require.NoError(t, err)
	assert.Nil(t, updated.ExpiryDate)
	assert.Equal(t, 2, repo.writeCalls)
}

func TestUpdateStatusValidation(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	_, err := svc.UpdateStatus(context.Background(), "nope", UpdateEnrollmentStatusRequest{Status: "active"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidEnrollmentID)

	_, err = svc.UpdateStatus(context.Background(), enrollmentA, UpdateEnrollmentStatusRequest{Status: "archived"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)
	assert.Zero(t, repo.writeCalls)
}

func TestUpdateStatusNotFoundIsSoft(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.UpdateStatus(context.Background(), enrollmentA, UpdateEnrollmentStatusRequest{Status: "active"})
	assert.ErrorIs(t, err, appErrors.ErrEnrollmentNotFound)
	assert.True(t, appErrors.IsSoft(err))
}

func TestUpdateStatusStoreFailure(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(enrollmentRow(enrollmentA, models.EnrollmentStatusActive, time.Now()))
	repo.writeErr = errors.New("deadlock")

	_, err := svc.UpdateStatus(context.Background(), enrollmentA, UpdateEnrollmentStatusRequest{Status: "suspended"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestBulkUpdateValidationNeverTouchesStore(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()
	cases := []BulkUpdateEnrollmentStatusRequest{
		{Status: "active"},
		{EnrollmentIDs: idBatch(101), Status: "active"},
		{EnrollmentIDs: []string{"bad"}, Status: "active"},
		{EnrollmentIDs: []string{enrollmentA}, Status: "nope"},
	}
	for _, req := range cases {
		_, err := svc.BulkUpdateStatus(context.Background(), req)
		assert.Error(t, err)
	}
	assert.Zero(t, repo.bulkCalls)
}

func TestBulkUpdateReportsMissingIDs(t *testing.T) {
	svc, repo, cacheRepo := newEnrollmentFixture(enrollmentRow(enrollmentA, models.EnrollmentStatusPending, time.Now()))
	ctx := context.Background()
	_, err := svc.PendingSummary(ctx)
	require.NoError(t, err)
	require.Contains(t, cacheRepo.keys(), "test:"+PendingEnrollmentsKey())

	result, err := svc.BulkUpdateStatus(ctx, BulkUpdateEnrollmentStatusRequest{
		EnrollmentIDs: []string{enrollmentA, enrollmentB},
		Status:        "expired",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Requested)
	require.Len(t, result.Updated, 1)
	assert.NotNil(t, result.Updated[0].ExpiryDate)
	assert.Equal(t, []string{enrollmentB}, result.MissingIDs)
	assert.Equal(t, 1, repo.bulkCalls)
	assert.NotContains(t, cacheRepo.keys(), "test:"+PendingEnrollmentsKey())
}

func TestCourseRosterStats(t *testing.T) {
	now := time.Now()
	rows := []models.Enrollment{
		enrollmentRow("e1", models.EnrollmentStatusActive, now),
		enrollmentRow("e2", models.EnrollmentStatusPending, now),
		enrollmentRow("e3", models.EnrollmentStatusPending, now),
		enrollmentRow("e4", models.EnrollmentStatusExpired, now),
	}
	rows[1].UserID = "u2"
	rows[2].UserID = "u3"
	rows[3].UserID = "u4"
	svc, _, _ := newEnrollmentFixture(rows...)

	roster, err := svc.CourseRoster(context.Background(), testCourse)
	require.NoError(t, err)
	assert.Equal(t, models.CourseEnrollmentStats{Total: 4, Active: 1, Pending: 2, Expired: 1}, roster.Stats)
}

func TestListForUserAttachesPresentation(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(enrollmentRow("e1", models.EnrollmentStatusSuspended, time.Now()))

	rows, err := svc.ListForUser(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Enrollment Suspended", rows[0].Presentation.Label)
	assert.Equal(t, "Course "+testCourse, rows[0].Course.Title)
}

func TestDeleteEnrollment(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(enrollmentRow(enrollmentA, models.EnrollmentStatusActive, time.Now()))

	require.NoError(t, svc.Delete(context.Background(), enrollmentA))
	assert.Empty(t, repo.rows)
	assert.ErrorIs(t, svc.Delete(context.Background(), enrollmentA), appErrors.ErrEnrollmentNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), "x"), appErrors.ErrInvalidEnrollmentID)
}

func TestRequestEnrollmentTwiceLeavesOnePendingRow(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		view, err := svc.RequestEnrollment(ctx, testUser, testCourse)
		require.NoError(t, err)
		assert.Equal(t, models.StatePending, view.Presentation.State)
		assert.False(t, view.Presentation.Actionable)
	}
	require.Len(t, repo.rows, 1)
	assert.Equal(t, models.EnrollmentStatusPending, repo.rows["created"].Status)
	assert.Equal(t, 1, repo.writeCalls)
}

func TestBulkActivateInvalidatesDependentViews(t *testing.T) {
	const enrollmentC = "9b8a7c6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d"
	now := time.Now()
	rows := []models.Enrollment{
		enrollmentRow(enrollmentA, models.EnrollmentStatusPending, now),
		enrollmentRow(enrollmentB, models.EnrollmentStatusPending, now),
		enrollmentRow(enrollmentC, models.EnrollmentStatusSuspended, now),
	}
	rows[1].UserID = "u2"
	rows[2].UserID = "u3"
	svc, repo, cacheRepo := newEnrollmentFixture(rows...)
	ctx := context.Background()

	_, err := svc.CourseRoster(ctx, testCourse)
	require.NoError(t, err)
	_, err = svc.Status(ctx, testUser, testCourse)
	require.NoError(t, err)
	_, err = svc.PendingSummary(ctx)
	require.NoError(t, err)
	require.Len(t, cacheRepo.keys(), 3)

	result, err := svc.BulkUpdateStatus(ctx, BulkUpdateEnrollmentStatusRequest{
		EnrollmentIDs: []string{enrollmentA, enrollmentB, enrollmentC},
		Status:        "active",
	})
	require.NoError(t, err)
	assert.Len(t, result.Updated, 3)
	assert.Empty(t, result.MissingIDs)
	for _, row := range repo.rows {
		assert.Equal(t, models.EnrollmentStatusActive, row.Status)
		assert.Nil(t, row.ExpiryDate)
	}
	assert.Empty(t, cacheRepo.keys())
}
