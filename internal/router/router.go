package router

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/internal/handler"
	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/pkg/config"
	"github.com/noah-isme/course-portal-api/pkg/logger"
	"github.com/noah-isme/course-portal-api/pkg/middleware/cors"
	"github.com/noah-isme/course-portal-api/pkg/middleware/requestid"
)

// Authenticator resolves bearer tokens into sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// AdminChecker reports whether a user holds the admin flag.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) bool
}

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	CORS    *cors.Policy

	Auth   Authenticator
	Admins AdminChecker

	Courses         *handler.CourseHandler
	Enrollments     *handler.EnrollmentHandler
	AdminEnrollment *handler.AdminEnrollmentHandler
	Sessions        *handler.SessionHandler
	Health          *handler.MetricsHandler
}

// New builds the gin engine with every route registered.
func New(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config != nil && deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(deps.CORS.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.Health.Health)
	r.GET("/ready", deps.Health.Ready)
	r.GET("/metrics", deps.Health.Prometheus)

	if deps.Config == nil || deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/api/v1"
	if deps.Config != nil && deps.Config.APIPrefix != "" {
		prefix = deps.Config.APIPrefix
	}
	api := r.Group(prefix)

	requireSession := middleware.Session(deps.Auth)
	optionalSession := middleware.OptionalSession(deps.Auth)

	api.GET("/auth/login-url", deps.Sessions.LoginURL)
	auth := api.Group("/auth", requireSession)
	auth.GET("/session", deps.Sessions.Session)
	auth.POST("/logout", deps.Sessions.Logout)

	courses := api.Group("/courses")
	courses.GET("", deps.Courses.List)
	courses.GET("/:id", deps.Courses.Get)
	courses.GET("/:id/videos", optionalSession, deps.Courses.Videos)
	courses.GET("/:id/videos/:videoId", optionalSession, deps.Courses.Video)
	courses.GET("/:id/enrollment", requireSession, deps.Enrollments.Status)

	enrollments := api.Group("/enrollments", requireSession)
	enrollments.POST("", deps.Enrollments.Request)
	enrollments.GET("/me", deps.Enrollments.Mine)

	admin := api.Group("/admin", requireSession, middleware.RequireAdmin(deps.Admins))
	admin.GET("/metrics", deps.Health.Summary)
	admin.GET("/courses/:id/enrollments", deps.AdminEnrollment.Roster)
	admin.GET("/courses/:id/enrollments/export", middleware.Audit(deps.Logger, "enrollment.export"), deps.AdminEnrollment.ExportRoster)
	admin.GET("/enrollments/pending", deps.AdminEnrollment.Pending)
	admin.PATCH("/enrollments/:id", middleware.Audit(deps.Logger, "enrollment.update_status"), deps.AdminEnrollment.UpdateStatus)
	admin.POST("/enrollments/bulk-status", middleware.Audit(deps.Logger, "enrollment.bulk_update_status"), deps.AdminEnrollment.BulkUpdateStatus)
	admin.DELETE("/enrollments/:id", middleware.Audit(deps.Logger, "enrollment.delete"), deps.AdminEnrollment.Delete)

	return r
}
