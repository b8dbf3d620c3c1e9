package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var rosterHeaders = []string{"Name", "Username", "Email", "Status", "Enrolled At", "Expiry Date"}

type rosterSource interface {
	CourseRoster(ctx context.Context, courseID string) (*CourseRoster, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered document ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders admin course rosters.
type ExportService struct {
	rosters rosterSource
	courses courseReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(rosters rosterSource, courses courseReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{rosters: rosters, courses: courses, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseExportFormat defaults to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
}

// CourseRoster renders a course's enrollment roster.
func (s *ExportService) CourseRoster(ctx context.Context, courseID string, format ExportFormat) (*ExportResult, error) {
	roster, err := s.rosters.CourseRoster(ctx, courseID)
	if err != nil {
		return nil, err
	}
	courseID = roster.CourseID
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	data := export.Dataset{Headers: rosterHeaders}
	for _, row := range roster.Enrollments {
		expiry := ""
		if row.ExpiryDate != nil {
			expiry = row.ExpiryDate.UTC().Format(time.DateOnly)
		}
		data.Add(
			row.Profile.DisplayName(),
			deref(row.Profile.Username),
			deref(row.Profile.Email),
			string(row.Status),
			row.EnrolledAt.UTC().Format(time.DateOnly),
			expiry,
		)
	}

	result := &ExportResult{Filename: s.filename(course.Title, format)}
	switch format {
	case ExportFormatCSV:
		result.ContentType = "text/csv"
		result.Body, err = s.csv.Render(data)
	case ExportFormatPDF:
		result.ContentType = "application/pdf"
		result.Body, err = s.pdf.Render(data, fmt.Sprintf("%s enrollments", course.Title))
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.logger.Info("roster exported", zap.String("course_id", courseID), zap.String("format", string(format)), zap.Int("rows", len(data.Rows)))
	return result, nil
}

func (s *ExportService) filename(title string, format ExportFormat) string {
	return fmt.Sprintf("%s_enrollments_%s.%s", sanitizeFilename(title), s.now().UTC().Format("20060102_150405"), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "course"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "\"", "", "..", ".")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
