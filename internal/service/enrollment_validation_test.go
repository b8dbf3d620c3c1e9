package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

const (
	enrollmentA = "3f1c2a9e-8b7d-4c6e-9a1b-2c3d4e5f6a7b"
	enrollmentB = "7a6b5c4d-3e2f-4a1b-8c9d-0e1f2a3b4c5d"
)

func idBatch(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("00000000-0000-4000-8000-%012d", i)
	}
	return ids
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID(enrollmentA))
	assert.NoError(t, ValidateID(strings.ToUpper(enrollmentA)))
	assert.ErrorIs(t, ValidateID(""), appErrors.ErrInvalidID)
	assert.ErrorIs(t, ValidateID("not-a-uuid"), appErrors.ErrInvalidID)
	assert.ErrorIs(t, ValidateID("{"+enrollmentA+"}"), appErrors.ErrInvalidID)
	assert.ErrorIs(t, ValidateID("00000000-0000-0000-0000-000000000000"), appErrors.ErrInvalidID)
}

func TestCanonicalIDLowercases(t *testing.T) {
	id, err := CanonicalID(strings.ToUpper(enrollmentA))
	require.NoError(t, err)
	assert.Equal(t, enrollmentA, id)

	_, err = CanonicalID("urn:uuid:" + enrollmentA)
	assert.ErrorIs(t, err, appErrors.ErrInvalidID)
}

func TestValidateBulkOperation(t *testing.T) {
	cases := []struct {
		name   string
		ids    []string
		status string
		err    error
	}{
		{"empty", nil, "active", appErrors.ErrEmptyBatch},
		{"too many", idBatch(MaxBulkBatchSize + 1), "active", appErrors.ErrBatchTooLarge},
		{"malformed id", []string{enrollmentA, "nope"}, "active", appErrors.ErrInvalidEnrollmentID},
		{"bad status", []string{enrollmentA}, "archived", appErrors.ErrInvalidStatus},
		{"empty batch wins over bad status", []string{}, "archived", appErrors.ErrEmptyBatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ValidateBulkOperation(tc.ids, tc.status)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestValidateBulkOperationAcceptsLimit(t *testing.T) {
	ids, status, err := ValidateBulkOperation(idBatch(MaxBulkBatchSize), " Suspended ")
	require.NoError(t, err)
	assert.Len(t, ids, MaxBulkBatchSize)
	assert.Equal(t, models.EnrollmentStatusSuspended, status)
}

func TestValidateBulkOperationDeduplicates(t *testing.T) {
	ids, _, err := ValidateBulkOperation([]string{enrollmentA, strings.ToUpper(enrollmentA), enrollmentB}, "active")
	require.NoError(t, err)
	assert.Equal(t, []string{enrollmentA, enrollmentB}, ids)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello \n"))
	assert.Len(t, []rune(SanitizeInput(strings.Repeat("é", 300))), 255)
}
