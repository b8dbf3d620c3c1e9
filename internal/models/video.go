package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Video is read-only from the portal's perspective.
type Video struct {
	ID           string             `db:"id" json:"id"`
	Title        string             `db:"title" json:"title"`
	Description  *string            `db:"description" json:"description"`
	VideoURL     *string            `db:"video_url" json:"video_url"`
	ThumbnailURL *string            `db:"thumbnail_url" json:"thumbnail_url"`
	Resources    types.NullJSONText `db:"resources" json:"resources"`
	VimeoID      *string            `db:"vimeo_id" json:"vimeo_id"`
	UploadedAt   time.Time          `db:"uploaded_at" json:"uploaded_at"`
}

// CourseVideo joins a course and a video and decides preview access.
type CourseVideo struct {
	ID             string    `db:"id" json:"id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	VideoID        string    `db:"video_id" json:"video_id"`
	DisplayOrder   int       `db:"display_order" json:"display_order"`
	PreviewEnabled bool      `db:"preview_enabled" json:"preview_enabled"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseVideoWithVideo is a course_videos row with its video embedded.
type CourseVideoWithVideo struct {
	CourseVideo
	Video Video `db:"video" json:"video"`
}
