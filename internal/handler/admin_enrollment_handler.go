package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/service"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/response"
)

type adminEnrollmentService interface {
	CourseRoster(ctx context.Context, courseID string) (*service.CourseRoster, error)
	PendingSummary(ctx context.Context) ([]models.PendingEnrollment, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateEnrollmentStatusRequest) (*models.Enrollment, error)
	BulkUpdateStatus(ctx context.Context, req service.BulkUpdateEnrollmentStatusRequest) (*models.BulkUpdateResult, error)
	Delete(ctx context.Context, id string) error
}

type rosterExporter interface {
	CourseRoster(ctx context.Context, courseID string, format service.ExportFormat) (*service.ExportResult, error)
}

// AdminEnrollmentHandler exposes enrollment management for admins.
type AdminEnrollmentHandler struct {
	enrollments adminEnrollmentService
	exports     rosterExporter
}

// NewAdminEnrollmentHandler constructs AdminEnrollmentHandler.
func NewAdminEnrollmentHandler(enrollments adminEnrollmentService, exports rosterExporter) *AdminEnrollmentHandler {
	return &AdminEnrollmentHandler{enrollments: enrollments, exports: exports}
}

// Roster godoc
// @Summary List a course's enrollments with profiles and status counts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/courses/{id}/enrollments [get]
func (h *AdminEnrollmentHandler) Roster(c *gin.Context) {
	roster, err := h.enrollments.CourseRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// ExportRoster godoc
// @Summary Download a course roster
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /admin/courses/{id}/enrollments/export [get]
func (h *AdminEnrollmentHandler) ExportRoster(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.CourseRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Pending godoc
// @Summary List enrollments awaiting approval
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/enrollments/pending [get]
func (h *AdminEnrollmentHandler) Pending(c *gin.Context) {
	pending, err := h.enrollments.PendingSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil, map[string]interface{}{"count": len(pending)})
}

// UpdateStatus godoc
// @Summary Change one enrollment's status
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateEnrollmentStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/{id} [patch]
func (h *AdminEnrollmentHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidStatus, "status is required"))
		return
	}
	enrollment, err := h.enrollments.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// BulkUpdateStatus godoc
// @Summary Change the status of up to 100 enrollments
// @Description Ids that match no enrollment are reported in missing_ids.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.BulkUpdateEnrollmentStatusRequest true "Ids and status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/enrollments/bulk-status [post]
func (h *AdminEnrollmentHandler) BulkUpdateStatus(c *gin.Context) {
	var req service.BulkUpdateEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.BulkUpdateStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete an enrollment
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/{id} [delete]
func (h *AdminEnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
