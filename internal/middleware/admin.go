package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/response"
)

type adminChecker interface {
	IsAdmin(ctx context.Context, userID string) bool
}

// RequireAdmin allows only callers whose profile carries the admin flag. It must run after Session.
func RequireAdmin(profiles adminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFrom(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !profiles.IsAdmin(c.Request.Context(), session.UserID) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
