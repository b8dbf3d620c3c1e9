package service

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

const (
	// MaxBulkBatchSize caps the ids accepted by one bulk status update.
	MaxBulkBatchSize = 100

	maxInputLength = 255
)

// ValidateID accepts only RFC 4122 UUIDs of versions 1 through 5 in the 36 character form.
func ValidateID(id string) error {
	_, err := CanonicalID(id)
	return err
}

// CanonicalID validates id like ValidateID and returns its lowercase form. Cache keys
// and store lookups use the canonical form so every spelling of an id shares one entry.
func CanonicalID(id string) (string, error) {
	if len(id) != 36 {
		return "", appErrors.ErrInvalidID
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", appErrors.ErrInvalidID
	}
	if v := parsed.Version(); v < 1 || v > 5 || parsed.Variant() != uuid.RFC4122 {
		return "", appErrors.ErrInvalidID
	}
	return parsed.String(), nil
}

// ValidateBulkOperation checks a bulk request before anything touches the store.
// Each failure kind maps to a distinct error.
func ValidateBulkOperation(ids []string, rawStatus string) ([]string, models.EnrollmentStatus, error) {
	if len(ids) == 0 {
		return nil, "", appErrors.ErrEmptyBatch
	}
	if len(ids) > MaxBulkBatchSize {
		return nil, "", appErrors.ErrBatchTooLarge
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := CanonicalID(strings.TrimSpace(raw))
		if err != nil {
			return nil, "", appErrors.Clone(appErrors.ErrInvalidEnrollmentID, appErrors.ErrInvalidEnrollmentID.Message+": "+truncate(raw, 64))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	status, ok := models.ParseEnrollmentStatus(rawStatus)
	if !ok {
		return nil, "", appErrors.ErrInvalidStatus
	}
	return unique, status, nil
}

// SanitizeInput trims surrounding whitespace and caps the length of free text.
func SanitizeInput(input string) string {
	return truncate(strings.TrimSpace(input), maxInputLength)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
