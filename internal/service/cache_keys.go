package service

import (
	"sort"
	"strings"
)

// MutationKind names a write whose cached readers must be dropped.
type MutationKind string

const (
	MutationEnrollmentRequested     MutationKind = "enrollment.requested"
	MutationEnrollmentStatusChanged MutationKind = "enrollment.status_changed"
	MutationEnrollmentBulkUpdated   MutationKind = "enrollment.bulk_updated"
	MutationEnrollmentDeleted       MutationKind = "enrollment.deleted"
	MutationSessionSignedOut        MutationKind = "session.signed_out"
)

// Key templates. {user} and {course} are filled from a CacheScope.
const (
	keyCourses            = "courses:list"
	keyCourse             = "courses:{course}"
	keyCourseVideos       = "course-videos:{course}"
	keyUserEnrollments    = "user-enrollments:{user}"
	keyEnrollmentStatus   = "enrollment-status:{user}:{course}"
	keyCourseEnrollments  = "course-enrollments:{course}"
	keyPendingEnrollments = "pending-enrollments"
	keyProfile            = "profile:{user}"
)

var enrollmentReaders = []string{
	keyUserEnrollments,
	keyEnrollmentStatus,
	keyCourseEnrollments,
	keyPendingEnrollments,
}

// invalidationTable lists, per mutation, the cached reads it makes stale.
var invalidationTable = map[MutationKind][]string{
	MutationEnrollmentRequested:     enrollmentReaders,
	MutationEnrollmentStatusChanged: enrollmentReaders,
	MutationEnrollmentBulkUpdated:   enrollmentReaders,
	MutationEnrollmentDeleted:       enrollmentReaders,
	MutationSessionSignedOut:        {keyProfile},
}

// CacheScope identifies the user and course a mutation touched. Empty parts widen to every value.
type CacheScope struct {
	UserID   string
	CourseID string
}

func (s CacheScope) render(template string) string {
	return strings.NewReplacer("{user}", wildcard(s.UserID), "{course}", wildcard(s.CourseID)).Replace(template)
}

func wildcard(v string) string {
	if v == "" {
		return "*"
	}
	return v
}

// InvalidationKeys returns the unprefixed keys and patterns for a mutation, sorted and deduplicated.
func InvalidationKeys(kind MutationKind, scopes ...CacheScope) []string {
	templates := invalidationTable[kind]
	if len(scopes) == 0 {
		scopes = []CacheScope{{}}
	}
	set := make(map[string]struct{})
	for _, scope := range scopes {
		for _, template := range templates {
			set[scope.render(template)] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CoursesKey caches the course list.
func CoursesKey() string { return keyCourses }

// CourseKey caches one course.
func CourseKey(courseID string) string { return CacheScope{CourseID: courseID}.render(keyCourse) }

// CourseVideosKey caches a course's video list.
func CourseVideosKey(courseID string) string {
	return CacheScope{CourseID: courseID}.render(keyCourseVideos)
}

// UserEnrollmentsKey caches a user's enrollment dashboard.
func UserEnrollmentsKey(userID string) string {
	return CacheScope{UserID: userID}.render(keyUserEnrollments)
}

// EnrollmentStatusKey caches the latest enrollment for a pair.
func EnrollmentStatusKey(userID, courseID string) string {
	return CacheScope{UserID: userID, CourseID: courseID}.render(keyEnrollmentStatus)
}

// CourseEnrollmentsKey caches an admin roster.
func CourseEnrollmentsKey(courseID string) string {
	return CacheScope{CourseID: courseID}.render(keyCourseEnrollments)
}

// PendingEnrollmentsKey caches the global pending summary.
func PendingEnrollmentsKey() string { return keyPendingEnrollments }

// ProfileKey caches a user profile.
func ProfileKey(userID string) string { return CacheScope{UserID: userID}.render(keyProfile) }
