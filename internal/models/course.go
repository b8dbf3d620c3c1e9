package models

import (
	"time"

	"github.com/lib/pq"
)

// Course is read-only from the portal's perspective.
type Course struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	CourseType   string         `db:"course_type" json:"course_type"`
	ThumbnailURL string         `db:"thumbnail_url" json:"thumbnail_url"`
	NumVideos    int            `db:"num_videos" json:"num_videos"`
	ZoomLink     *string        `db:"zoom_link" json:"zoom_link"`
	Tags         pq.StringArray `db:"tags" json:"tags"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
