package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/service"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
	"github.com/noah-isme/course-portal-api/pkg/logger"
)

type stubAuthenticator struct {
	session *models.Session
	err     error
	tokens  []string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*models.Session, error) {
	s.tokens = append(s.tokens, token)
	return s.session, s.err
}

type stubAdmins map[string]bool

func (s stubAdmins) IsAdmin(_ context.Context, userID string) bool { return s[userID] }

func newTestRouter(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares...)
	r.GET("/resource/:id", func(c *gin.Context) {
		session := SessionFrom(c)
		userID := ""
		if session != nil {
			userID = session.UserID
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "log_user": c.GetString(logger.UserIDKey)})
	})
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource/42", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware(t *testing.T) {
	auth := &stubAuthenticator{session: &models.Session{UserID: "user-1"}}
	r := newTestRouter(Session(auth))

	w := serve(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, "bearer tok-1")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["user_id"])
	assert.Equal(t, "user-1", body["log_user"])
	assert.Equal(t, []string{"tok-1"}, auth.tokens)

	auth.err = appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	w = serve(r, "Bearer tok-2")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalSessionNeverBlocks(t *testing.T) {
	auth := &stubAuthenticator{err: appErrors.ErrUnauthorized}
	r := newTestRouter(OptionalSession(auth))

	assert.Equal(t, http.StatusOK, serve(r, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "Bearer expired").Code)
}

func TestRequireAdmin(t *testing.T) {
	auth := &stubAuthenticator{session: &models.Session{UserID: "user-1"}}
	admins := stubAdmins{"admin-1": true}

	r := newTestRouter(Session(auth), RequireAdmin(admins))
	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer tok").Code)

	auth.session = &models.Session{UserID: "admin-1"}
	assert.Equal(t, http.StatusOK, serve(r, "Bearer tok").Code)

	r = newTestRouter(RequireAdmin(admins))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestAuditLogsSuccessfulActions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	auth := &stubAuthenticator{session: &models.Session{UserID: "admin-1"}}
	r := newTestRouter(Session(auth), Audit(zap.New(core), "enrollment.update"))

	serve(r, "Bearer tok")
	serve(r, "")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "enrollment.update", fields["action"])
	assert.Equal(t, "admin-1", fields["actor_id"])
	assert.Equal(t, "42", fields["resource_id"])
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newTestRouter(Metrics(metrics))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	serve(r, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.RequestsTotal)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, meta, 1)
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}
