package models

import (
	"strings"
	"time"
)

// EnrollmentStatus is the raw lifecycle status stored on an enrollment row.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusSuspended EnrollmentStatus = "suspended"
	EnrollmentStatusExpired   EnrollmentStatus = "expired"
)

// EnrollmentStatuses lists the fixed status set in display order.
var EnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusPending,
	EnrollmentStatusActive,
	EnrollmentStatusSuspended,
	EnrollmentStatusExpired,
}

// ParseEnrollmentStatus normalises raw input and reports whether it belongs to the fixed set.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, bool) {
	status := EnrollmentStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// Valid reports membership in the fixed status set.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusSuspended, EnrollmentStatusExpired:
		return true
	}
	return false
}

// Enrollment ties a user to a course with a lifecycle status.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	UserID     string           `db:"user_id" json:"user_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	ExpiryDate *time.Time       `db:"expiry_date" json:"expiry_date"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentWithCourse joins an enrollment with its course for dashboards.
type EnrollmentWithCourse struct {
	Enrollment
	Course Course `db:"course" json:"course"`
}

// EnrollmentWithProfile joins an enrollment with the enrolled user's profile for admin rosters.
type EnrollmentWithProfile struct {
	Enrollment
	Profile ProfileSummary `db:"profile" json:"profile"`
}

// PendingEnrollment is one row of the global pending-approval summary.
type PendingEnrollment struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"user_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CourseTitle string           `db:"course_title" json:"course_title"`
	FullName    *string          `db:"full_name" json:"full_name"`
	Username    *string          `db:"username" json:"username"`
	Email       *string          `db:"email" json:"email"`
}

// EnrollmentStatusUpdate describes a status change applied to one or more rows.
type EnrollmentStatusUpdate struct {
	Status     EnrollmentStatus
	ExpiryDate *time.Time
}

// BulkUpdateResult reports which requested rows were changed.
type BulkUpdateResult struct {
	Requested  int          `json:"requested"`
	Updated    []Enrollment `json:"updated"`
	MissingIDs []string     `json:"missing_ids,omitempty"`
}

// CourseEnrollmentStats summarises a course roster.
type CourseEnrollmentStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Pending   int `json:"pending"`
	Suspended int `json:"suspended"`
	Expired   int `json:"expired"`
}
