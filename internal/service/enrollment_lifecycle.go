package service

import (
	"fmt"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// EnrollmentPresentation is what the course page renders for the caller's enrollment state.
type EnrollmentPresentation struct {
	State      models.EnrollmentState `json:"state"`
	Label      string                 `json:"label"`
	CTAText    string                 `json:"cta_text"`
	Actionable bool                   `json:"actionable"`
	Message    string                 `json:"message,omitempty"`
}

// ResolveStatus maps the latest enrollment row (nil when none exists) to its presentation.
func ResolveStatus(enrollment *models.Enrollment) EnrollmentPresentation {
	state := models.StateOf(enrollment)
	switch state {
	case models.StateNotEnrolled:
		return EnrollmentPresentation{
			State:      state,
			Label:      "Not Enrolled",
			CTAText:    "Enroll Now",
			Actionable: true,
		}
	case models.StatePending:
		return EnrollmentPresentation{
			State:   state,
			Label:   "Enrollment Pending",
			CTAText: "Enrollment Pending",
			Message: "Your enrollment request is pending admin approval",
		}
	case models.StateActive:
		return EnrollmentPresentation{
			State:   state,
			Label:   "Already Enrolled",
			CTAText: "Continue Learning",
		}
	case models.StateSuspended:
		return EnrollmentPresentation{
			State:   state,
			Label:   "Enrollment Suspended",
			CTAText: "Enrollment Suspended",
			Message: "Your enrollment has been suspended. Contact admin for assistance.",
		}
	case models.StateExpired:
		return EnrollmentPresentation{
			State:      state,
			Label:      "Enrollment Expired",
			CTAText:    "Renew Enrollment",
			Actionable: true,
			Message:    "Your enrollment has expired. Click \"Renew Enrollment\" to request reactivation.",
		}
	}
	panic(fmt.Sprintf("unhandled enrollment state %d", int(state)))
}

// IsEnrolled reports whether the enrollment grants course access. Only active does.
func IsEnrolled(enrollment *models.Enrollment) bool {
	return models.StateOf(enrollment) == models.StateActive
}

// CanAccessVideo is the single gate for video content.
func CanAccessVideo(video models.CourseVideo, enrolled bool) bool {
	return video.PreviewEnabled || enrolled
}

// CanRequestEnrollment reports whether a new request makes sense from the current state.
func CanRequestEnrollment(enrollment *models.Enrollment) bool {
	return ResolveStatus(enrollment).Actionable
}
