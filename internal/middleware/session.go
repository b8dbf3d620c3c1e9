package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/logger"
	"github.com/noah-isme/course-portal-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the caller's session.
const ContextSessionKey = "session"

type sessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// Session protects routes by requiring a valid bearer token.
func Session(auth sessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			c.Abort()
			return
		}

		session, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		setSession(c, session)
		c.Next()
	}
}

// OptionalSession attaches the session when a valid token is present but never blocks.
// Anonymous callers can still browse the catalogue and preview videos.
func OptionalSession(auth sessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if session, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setSession(c, session)
			}
		}
		c.Next()
	}
}

// SessionFrom returns the session stored by Session or OptionalSession.
func SessionFrom(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*models.Session)
	return session
}

func setSession(c *gin.Context, session *models.Session) {
	c.Set(ContextSessionKey, session)
	c.Set(logger.UserIDKey, session.UserID)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
