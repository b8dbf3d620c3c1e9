package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Policy holds the origins the browser front-end is served from.
type Policy struct {
	allowAll bool
	origins  map[string]struct{}
}

// NewPolicy builds a policy; an empty list allows every origin.
func NewPolicy(allowedOrigins []string) *Policy {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[normalize(origin)] = struct{}{}
	}
	return &Policy{allowAll: len(allowedOrigins) == 0, origins: origins}
}

// Allowed reports whether the origin may call the API and receive auth redirects.
func (p *Policy) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if p == nil || p.allowAll {
		return true
	}
	_, ok := p.origins[normalize(origin)]
	return ok
}

// Middleware applies CORS headers for allowed origins and short-circuits preflight requests.
func (p *Policy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if p.Allowed(origin) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
		} else if p == nil || p.allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// New returns the middleware for a list of allowed origins.
func New(allowedOrigins []string) gin.HandlerFunc {
	return NewPolicy(allowedOrigins).Middleware()
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
