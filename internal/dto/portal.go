package dto

import (
	"time"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// RequestEnrollmentPayload is the body of an enrollment request.
type RequestEnrollmentPayload struct {
	CourseID string `json:"course_id" binding:"required"`
}

// SessionResponse describes the authenticated caller.
type SessionResponse struct {
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	SessionID string          `json:"session_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile,omitempty"`
}

// HealthResponse is returned by liveness and readiness checks.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
