package models

import "time"

// Profile mirrors the profiles table keyed by the identity provider's user id.
type Profile struct {
	ID        string     `db:"id" json:"id"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at"`
	Username  *string    `db:"username" json:"username"`
	FullName  *string    `db:"full_name" json:"full_name"`
	AvatarURL *string    `db:"avatar_url" json:"avatar_url"`
	Website   *string    `db:"website" json:"website"`
	Email     *string    `db:"email" json:"email"`
	IsAdmin   *bool      `db:"is_admin" json:"is_admin"`
}

// Admin treats a missing flag as false.
func (p *Profile) Admin() bool {
	return p != nil && p.IsAdmin != nil && *p.IsAdmin
}

// ProfileSummary is the subset of a profile shown next to enrollments.
type ProfileSummary struct {
	ID       *string `db:"id" json:"id"`
	FullName *string `db:"full_name" json:"full_name"`
	Username *string `db:"username" json:"username"`
	Email    *string `db:"email" json:"email"`
}

// DisplayName picks the best available human-readable name.
func (p ProfileSummary) DisplayName() string {
	switch {
	case p.FullName != nil && *p.FullName != "":
		return *p.FullName
	case p.Username != nil && *p.Username != "":
		return *p.Username
	case p.Email != nil:
		return *p.Email
	}
	return "Unknown"
}
