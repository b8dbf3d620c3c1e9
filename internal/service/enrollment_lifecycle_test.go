package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-portal-api/internal/models"
)

func TestResolveStatus(t *testing.T) {
	cases := []struct {
		name       string
		enrollment *models.Enrollment
		state      models.EnrollmentState
		cta        string
		actionable bool
		message    string
	}{
		{"none", nil, models.StateNotEnrolled, "Enroll Now", true, ""},
		{"pending", &models.Enrollment{Status: models.EnrollmentStatusPending}, models.StatePending, "Enrollment Pending", false, "Your enrollment request is pending admin approval"},
		{"active", &models.Enrollment{Status: models.EnrollmentStatusActive}, models.StateActive, "Continue Learning", false, ""},
		{"suspended", &models.Enrollment{Status: models.EnrollmentStatusSuspended}, models.StateSuspended, "Enrollment Suspended", false, "Your enrollment has been suspended. Contact admin for assistance."},
		{"expired", &models.Enrollment{Status: models.EnrollmentStatusExpired}, models.StateExpired, "Renew Enrollment", true, "Your enrollment has expired. Click \"Renew Enrollment\" to request reactivation."},
		{"unknown status", &models.Enrollment{Status: "archived"}, models.StateNotEnrolled, "Enroll Now", true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveStatus(tc.enrollment)
			assert.Equal(t, tc.state, got.State)
			assert.Equal(t, tc.cta, got.CTAText)
			assert.Equal(t, tc.actionable, got.Actionable)
			assert.Equal(t, tc.message, got.Message)
			assert.NotEmpty(t, got.Label)
		})
	}
}

func TestResolveStatusCoversEveryState(t *testing.T) {
	statuses := map[models.EnrollmentState]*models.Enrollment{
		models.StateNotEnrolled: nil,
		models.StatePending:     {Status: models.EnrollmentStatusPending},
		models.StateActive:      {Status: models.EnrollmentStatusActive},
		models.StateSuspended:   {Status: models.EnrollmentStatusSuspended},
		models.StateExpired:     {Status: models.EnrollmentStatusExpired},
	}
	for _, state := range models.EnrollmentStates {
		enrollment, ok := statuses[state]
		assert.True(t, ok, "state %s has no fixture", state)
		assert.NotPanics(t, func() { ResolveStatus(enrollment) })
	}
}

func TestIsEnrolledOnlyActive(t *testing.T) {
	assert.False(t, IsEnrolled(nil))
	for _, status := range models.EnrollmentStatuses {
		assert.Equal(t, status == models.EnrollmentStatusActive, IsEnrolled(&models.Enrollment{Status: status}), string(status))
	}
}

func TestCanAccessVideo(t *testing.T) {
	preview := models.CourseVideo{PreviewEnabled: true}
	premium := models.CourseVideo{}

	assert.True(t, CanAccessVideo(preview, false))
	assert.True(t, CanAccessVideo(preview, true))
	assert.True(t, CanAccessVideo(premium, true))
	assert.False(t, CanAccessVideo(premium, false))
}

func TestCanRequestEnrollment(t *testing.T) {
	assert.True(t, CanRequestEnrollment(nil))
	assert.True(t, CanRequestEnrollment(&models.Enrollment{Status: models.EnrollmentStatusExpired}))
	assert.False(t, CanRequestEnrollment(&models.Enrollment{Status: models.EnrollmentStatusPending}))
	assert.False(t, CanRequestEnrollment(&models.Enrollment{Status: models.EnrollmentStatusSuspended}))
}
