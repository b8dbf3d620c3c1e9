package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/service"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/response"
)

type enrollmentService interface {
	RequestEnrollment(ctx context.Context, userID, courseID string) (*service.EnrollmentStatusView, error)
	Status(ctx context.Context, userID, courseID string) (*service.EnrollmentStatusView, error)
	ListForUser(ctx context.Context, userID string) ([]service.UserEnrollment, error)
}

// EnrollmentHandler exposes the learner side of the enrollment lifecycle.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Request godoc
// @Summary Request enrollment in a course
// @Description Creates a pending enrollment, renews an expired one, or returns the current one unchanged.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RequestEnrollmentPayload true "Course to enroll in"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Request(c *gin.Context) {
	var req dto.RequestEnrollmentPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.enrollments.RequestEnrollment(c.Request.Context(), callerID(c), service.SanitizeInput(req.CourseID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Mine godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	enrollments, err := h.enrollments.ListForUser(c.Request.Context(), callerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Status godoc
// @Summary Get the caller's enrollment status for a course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollment [get]
func (h *EnrollmentHandler) Status(c *gin.Context) {
	view, err := h.enrollments.Status(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
