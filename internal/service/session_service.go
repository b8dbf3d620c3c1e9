package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/identity"
)

type tokenVerifier interface {
	Verify(token string) (*identity.Claims, error)
}

type identityProvider interface {
	AuthorizeURL(redirectTo string) string
	SignOut(ctx context.Context, accessToken string) error
}

type originPolicy interface {
	Allowed(origin string) bool
}

// LoginURL is where the browser goes to start the OAuth sign-in.
type LoginURL struct {
	URL        string `json:"url"`
	RedirectTo string `json:"redirect_to"`
}

// SessionService turns access tokens into sessions and keeps per-session state
// so the hub sees signed_in, token_refreshed and signed_out exactly once each.
type SessionService struct {
	verifier     tokenVerifier
	provider     identityProvider
	hub          *SessionHub
	origins      originPolicy
	redirectPath string
	logger       *zap.Logger
	now          func() time.Time

	mu     sync.Mutex
	active map[string]time.Time
}

// NewSessionService constructs SessionService.
func NewSessionService(verifier tokenVerifier, provider identityProvider, hub *SessionHub, origins originPolicy, redirectPath string, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewSessionHub(logger)
	}
	if redirectPath == "" {
		redirectPath = "/dashboard"
	}
	return &SessionService{
		verifier:     verifier,
		provider:     provider,
		hub:          hub,
		origins:      origins,
		redirectPath: "/" + strings.TrimLeft(redirectPath, "/"),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		active:       make(map[string]time.Time),
	}
}

// Authenticate verifies the bearer token and records the session.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing access token")
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired token")
	}

	session := &models.Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		SessionID:   claims.SessionID,
		AccessToken: token,
	}
	if session.SessionID == "" {
		session.SessionID = claims.Subject
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	if eventType, changed := s.observe(session); changed {
		s.publish(ctx, eventType, *session)
	}
	return session, nil
}

// LoginURL builds the provider sign-in URL. The post-login redirect only targets
// origins the CORS policy accepts.
func (s *SessionService) LoginURL(origin string) (*LoginURL, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if u, err := url.Parse(origin); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Path != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid origin")
	}
	if s.origins == nil || !s.origins.Allowed(origin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "origin not allowed")
	}
	redirect := origin + s.redirectPath
	return &LoginURL{URL: s.provider.AuthorizeURL(redirect), RedirectTo: redirect}, nil
}

// SignOut ends the session at the provider and notifies listeners.
func (s *SessionService) SignOut(ctx context.Context, session *models.Session) error {
	if session == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.provider.SignOut(ctx, session.AccessToken); err != nil {
		s.logger.Warn("provider sign out failed", zap.String("user_id", session.UserID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to sign out")
	}
	s.mu.Lock()
	delete(s.active, session.SessionID)
	s.mu.Unlock()
	s.publish(ctx, models.SessionSignedOut, *session)
	return nil
}

// observe reports which event, if any, this sighting of the session represents.
func (s *SessionService) observe(session *models.Session) (models.SessionEventType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	issued, seen := s.active[session.SessionID]
	s.active[session.SessionID] = session.IssuedAt
	switch {
	case !seen:
		s.sweep(now)
		return models.SessionSignedIn, true
	case session.IssuedAt.After(issued):
		return models.SessionTokenRefreshed, true
	}
	return "", false
}

// sweep forgets sessions whose latest token would have expired. Callers hold s.mu.
func (s *SessionService) sweep(now time.Time) {
	const maxTokenLifetime = 24 * time.Hour
	for id, issued := range s.active {
		if !issued.IsZero() && now.Sub(issued) > maxTokenLifetime {
			delete(s.active, id)
		}
	}
}

func (s *SessionService) publish(ctx context.Context, eventType models.SessionEventType, session models.Session) {
	session.AccessToken = ""
	s.hub.Publish(ctx, models.SessionEvent{Type: eventType, Session: session, OccurredAt: s.now()})
}
