package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-portal-api/internal/models"
)

const courseVideoSelect = `SELECT cv.id, cv.course_id, cv.video_id, cv.display_order, cv.preview_enabled, cv.created_at, cv.updated_at,
        v.id AS "video.id", v.title AS "video.title", v.description AS "video.description",
        v.video_url AS "video.video_url", v.thumbnail_url AS "video.thumbnail_url",
        v.resources AS "video.resources", v.vimeo_id AS "video.vimeo_id", v.uploaded_at AS "video.uploaded_at"
        FROM course_videos cv
        JOIN videos v ON v.id = cv.video_id`

// VideoRepository reads videos through their course assignments.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository constructs the repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// ListByCourse returns a course's videos in display order.
func (r *VideoRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseVideoWithVideo, error) {
	query := courseVideoSelect + ` WHERE cv.course_id = $1 ORDER BY cv.display_order ASC, cv.created_at ASC`
	videos := []models.CourseVideoWithVideo{}
	if err := r.db.SelectContext(ctx, &videos, query, courseID); err != nil {
		return nil, fmt.Errorf("list course videos: %w", err)
	}
	return videos, nil
}

// FindInCourse returns a video only when it is assigned to the course, otherwise sql.ErrNoRows.
func (r *VideoRepository) FindInCourse(ctx context.Context, courseID, videoID string) (*models.CourseVideoWithVideo, error) {
	query := courseVideoSelect + ` WHERE cv.course_id = $1 AND cv.video_id = $2 LIMIT 1`
	var video models.CourseVideoWithVideo
	if err := r.db.GetContext(ctx, &video, query, courseID, videoID); err != nil {
		return nil, err
	}
	return &video, nil
}
