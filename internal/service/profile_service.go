package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

// ProfileService reads user profiles and admin flags.
type ProfileService struct {
	repo   profileRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(repo profileRepository, cache *CacheService, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, cache: cache, logger: logger}
}

// Get returns the user's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := Fetch(ctx, s.cache, ProfileKey(userID), 0, func(ctx context.Context) (*models.Profile, error) {
		profile, err := s.repo.FindByID(ctx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return profile, err
	})
	if err != nil {
		return nil, asInternal(err, "failed to load profile")
	}
	return profile, nil
}

// IsAdmin reports the admin flag. Any failure to read it counts as not admin.
func (s *ProfileService) IsAdmin(ctx context.Context, userID string) bool {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("admin check failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return profile.Admin()
}
