package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-portal-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{"started_at": time.Now()})
		c.Next()
	}
}

// ExtractMeta returns the metadata for the envelope, stamped with request id and processing time.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	stored, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	meta := make(map[string]interface{}, len(stored)+1)
	for k, v := range stored {
		if k == "started_at" {
			if start, ok := v.(time.Time); ok {
				meta["processing_time_ms"] = time.Since(start).Milliseconds()
			}
			continue
		}
		meta[k] = v
	}
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	return meta
}
