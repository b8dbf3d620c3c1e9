package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.SessionFrom(c)
}

// callerID is empty for anonymous callers.
func callerID(c *gin.Context) string {
	if session := sessionFromContext(c); session != nil {
		return session.UserID
	}
	return ""
}
