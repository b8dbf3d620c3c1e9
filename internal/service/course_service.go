package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

const vimeoPlayerURL = "https://player.vimeo.com/video/%s?autoplay=1&color=2563eb&title=0&byline=0&portrait=0"

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type videoRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseVideoWithVideo, error)
	FindInCourse(ctx context.Context, courseID, videoID string) (*models.CourseVideoWithVideo, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, userID, courseID string) bool
	Current(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
}

// VideoView is a course video as the caller may see it. Playback fields are only
// filled when CanAccess is true.
type VideoView struct {
	ID           string          `json:"id"`
	CourseID     string          `json:"course_id"`
	Title        string          `json:"title"`
	Description  *string         `json:"description"`
	ThumbnailURL *string         `json:"thumbnail_url"`
	DisplayOrder int             `json:"display_order"`
	FreePreview  bool            `json:"free_preview"`
	Premium      bool            `json:"premium"`
	CanAccess    bool            `json:"can_access"`
	EmbedURL     string          `json:"embed_url,omitempty"`
	VideoURL     *string         `json:"video_url,omitempty"`
	Resources    json.RawMessage `json:"resources,omitempty"`
	UploadedAt   time.Time       `json:"uploaded_at"`

	// Enrollment explains a locked video on the single-video view.
	Enrollment *EnrollmentPresentation `json:"enrollment,omitempty"`
}

// CourseService serves the catalogue and gates video playback.
type CourseService struct {
	courses     courseRepository
	videos      videoRepository
	enrollments enrollmentChecker
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseRepository, videos videoRepository, enrollments enrollmentChecker, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, videos: videos, enrollments: enrollments, cache: cache, metrics: metrics, logger: logger}
}

// List returns the catalogue.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := Fetch(ctx, s.cache, CoursesKey(), 0, s.courses.List)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	id, err := CanonicalID(id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "invalid course id")
	}
	course, err := Fetch(ctx, s.cache, CourseKey(id), 0, func(ctx context.Context) (*models.Course, error) {
		course, err := s.courses.FindByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return course, err
	})
	if err != nil {
		return nil, asInternal(err, "failed to load course")
	}
	return course, nil
}

// Videos lists a course's videos with the caller's access to each.
func (s *CourseService) Videos(ctx context.Context, userID, courseID string) ([]VideoView, error) {
	courseID, err := CanonicalID(courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "invalid course id")
	}
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	rows, err := Fetch(ctx, s.cache, CourseVideosKey(courseID), 0, func(ctx context.Context) ([]models.CourseVideoWithVideo, error) {
		return s.videos.ListByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course videos")
	}
	enrolled := s.enrollments.IsEnrolled(ctx, userID, courseID)
	views := make([]VideoView, 0, len(rows))
	for _, row := range rows {
		views = append(views, buildVideoView(row, CanAccessVideo(row.CourseVideo, enrolled), false))
	}
	return views, nil
}

// Video returns one video. Without access the caller gets a locked view rather than an error.
func (s *CourseService) Video(ctx context.Context, userID, courseID, videoID string) (*VideoView, error) {
	courseID, err := CanonicalID(courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "invalid course id")
	}
	videoID, err = CanonicalID(videoID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "invalid video id")
	}
	row, err := Retry(ctx, s.cache, "course_video", func(ctx context.Context) (*models.CourseVideoWithVideo, error) {
		row, err := s.videos.FindInCourse(ctx, courseID, videoID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "video not found in course")
		}
		return row, err
	})
	if err != nil {
		return nil, asInternal(err, "failed to load video")
	}

	enrollment, err := s.enrollments.Current(ctx, userID, courseID)
	if err != nil {
		s.logger.Warn("enrollment check failed, denying access",
			zap.String("user_id", userID), zap.String("course_id", courseID), zap.Error(err))
	}
	granted := CanAccessVideo(row.CourseVideo, err == nil && IsEnrolled(enrollment))
	s.metrics.RecordVideoAccess(granted)

	view := buildVideoView(*row, granted, true)
	if !granted {
		s.logger.Debug("video locked", zap.String("user_id", userID), zap.String("course_id", courseID), zap.String("video_id", videoID))
		if err == nil {
			presentation := ResolveStatus(enrollment)
			view.Enrollment = &presentation
		}
	}
	return &view, nil
}

func buildVideoView(row models.CourseVideoWithVideo, canAccess, withPlayback bool) VideoView {
	view := VideoView{
		ID:           row.Video.ID,
		CourseID:     row.CourseID,
		Title:        row.Video.Title,
		Description:  row.Video.Description,
		ThumbnailURL: row.Video.ThumbnailURL,
		DisplayOrder: row.DisplayOrder,
		FreePreview:  row.PreviewEnabled,
		Premium:      !row.PreviewEnabled,
		CanAccess:    canAccess,
		UploadedAt:   row.Video.UploadedAt,
	}
	if !canAccess || !withPlayback {
		return view
	}
	if row.Video.VimeoID != nil && *row.Video.VimeoID != "" {
		view.EmbedURL = fmt.Sprintf(vimeoPlayerURL, url.PathEscape(*row.Video.VimeoID))
	}
	view.VideoURL = row.Video.VideoURL
	if raw := row.Video.Resources.JSONText; hasResources(raw) {
		view.Resources = json.RawMessage(raw)
	}
	return view
}

// hasResources skips the placeholders a NULL column turns into after a cache round trip.
func hasResources(raw []byte) bool {
	switch string(raw) {
	case "", "null", "{}":
		return false
	}
	return true
}

func asInternal(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
