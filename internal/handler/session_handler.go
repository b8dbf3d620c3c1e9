package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/service"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/response"
)

type sessionService interface {
	LoginURL(origin string) (*service.LoginURL, error)
	SignOut(ctx context.Context, session *models.Session) error
}

type profileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
}

// SessionHandler exposes sign-in, session and sign-out endpoints.
type SessionHandler struct {
	sessions sessionService
	profiles profileService
	logger   *zap.Logger
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions sessionService, profiles profileService, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, profiles: profiles, logger: logger}
}

// LoginURL godoc
// @Summary Get the OAuth sign-in URL
// @Description The post-login redirect points at the calling origin, which must be an allowed origin.
// @Tags Auth
// @Produce json
// @Param origin query string false "Front-end origin; defaults to the Origin header"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login-url [get]
func (h *SessionHandler) LoginURL(c *gin.Context) {
	origin := c.Query("origin")
	if origin == "" {
		origin = c.GetHeader("Origin")
	}
	login, err := h.sessions.LoginURL(origin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, login, nil)
}

// Session godoc
// @Summary Describe the current session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session [get]
func (h *SessionHandler) Session(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp := dto.SessionResponse{
		UserID:    session.UserID,
		Email:     session.Email,
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt,
	}
	profile, err := h.profiles.Get(c.Request.Context(), session.UserID)
	if err != nil {
		h.logger.Debug("session profile unavailable", zap.String("user_id", session.UserID), zap.Error(err))
	} else {
		resp.Profile = profile
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Logout godoc
// @Summary Sign out
// @Tags Auth
// @Security BearerAuth
// @Success 204
// @Failure 502 {object} response.Envelope
// @Router /auth/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context(), sessionFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
