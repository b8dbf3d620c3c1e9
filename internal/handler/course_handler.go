package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context) ([]models.Course, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Videos(ctx context.Context, userID, courseID string) ([]service.VideoView, error)
	Video(ctx context.Context, userID, courseID, videoID string) (*service.VideoView, error)
}

// CourseHandler exposes the course catalogue and video playback.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, &models.Pagination{Page: 1, PageSize: len(courses), TotalCount: len(courses)}, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil, middleware.ExtractMeta(c))
}

// Videos godoc
// @Summary List course videos with the caller's access to each
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/videos [get]
func (h *CourseHandler) Videos(c *gin.Context) {
	videos, err := h.courses.Videos(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, videos, nil, middleware.ExtractMeta(c))
}

// Video godoc
// @Summary Get a course video; locked videos omit playback fields
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param videoId path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/videos/{videoId} [get]
func (h *CourseHandler) Video(c *gin.Context) {
	video, err := h.courses.Video(c.Request.Context(), callerID(c), c.Param("id"), c.Param("videoId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, video, nil, middleware.ExtractMeta(c))
}
