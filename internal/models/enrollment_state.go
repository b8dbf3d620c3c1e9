package models

import "fmt"

// EnrollmentState is the closed set of lifecycle states a (user, course) pair can be in,
// including the absence of any enrollment row.
type EnrollmentState int

const (
	StateNotEnrolled EnrollmentState = iota
	StatePending
	StateActive
	StateSuspended
	StateExpired
)

// EnrollmentStates lists every state; switches over EnrollmentState must cover all of them.
var EnrollmentStates = []EnrollmentState{StateNotEnrolled, StatePending, StateActive, StateSuspended, StateExpired}

// StateOf classifies the latest enrollment row. Rows with an unknown status are
// treated as not enrolled so they never grant access.
func StateOf(e *Enrollment) EnrollmentState {
	if e == nil {
		return StateNotEnrolled
	}
	switch e.Status {
	case EnrollmentStatusPending:
		return StatePending
	case EnrollmentStatusActive:
		return StateActive
	case EnrollmentStatusSuspended:
		return StateSuspended
	case EnrollmentStatusExpired:
		return StateExpired
	default:
		return StateNotEnrolled
	}
}

// String returns the wire name of the state.
func (s EnrollmentState) String() string {
	switch s {
	case StateNotEnrolled:
		return "not_enrolled"
	case StatePending:
		return string(EnrollmentStatusPending)
	case StateActive:
		return string(EnrollmentStatusActive)
	case StateSuspended:
		return string(EnrollmentStatusSuspended)
	case StateExpired:
		return string(EnrollmentStatusExpired)
	}
	panic(fmt.Sprintf("unknown enrollment state %d", int(s)))
}

// MarshalText renders the state as its wire name in JSON payloads.
func (s EnrollmentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
