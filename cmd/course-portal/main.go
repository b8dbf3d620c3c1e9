package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-portal-api/api/swagger"
	"github.com/noah-isme/course-portal-api/internal/handler"
	"github.com/noah-isme/course-portal-api/internal/repository"
	"github.com/noah-isme/course-portal-api/internal/router"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/pkg/cache"
	"github.com/noah-isme/course-portal-api/pkg/config"
	"github.com/noah-isme/course-portal-api/pkg/database"
	"github.com/noah-isme/course-portal-api/pkg/identity"
	"github.com/noah-isme/course-portal-api/pkg/logger"
	"github.com/noah-isme/course-portal-api/pkg/middleware/cors"
)

// @title Course Portal API
// @version 1.0.0
// @description Course catalogue, enrollment lifecycle and admin enrollment management
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("redis unavailable, serving without cache", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, service.CacheOptions{
		Enabled:       cfg.Cache.Enabled && redisClient != nil,
		DefaultTTL:    cfg.Cache.TTL,
		Prefix:        cfg.Cache.Prefix,
		RetryAttempts: cfg.Cache.ReadRetryAttempts,
		RetryDelay:    cfg.Cache.ReadRetryDelay,
	}, logr)

	validate := validator.New()

	courseRepo := repository.NewCourseRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, cacheSvc, metricsSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, videoRepo, enrollmentSvc, cacheSvc, metricsSvc, logr)
	profileSvc := service.NewProfileService(profileRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(enrollmentSvc, courseRepo, logr, nil, nil)

	hub := service.NewSessionHub(logr)
	hub.Subscribe(service.CacheSessionListener(cacheSvc))
	hub.Subscribe(service.MetricsSessionListener(metricsSvc))
	hub.Subscribe(service.LogSessionListener(logr))

	origins := cors.NewPolicy(cfg.CORS.AllowedOrigins)
	sessionSvc := service.NewSessionService(
		identity.NewVerifier(cfg.Backend.JWTSecret),
		identity.NewClient(cfg.Backend),
		hub,
		origins,
		cfg.Backend.RedirectPath,
		logr,
	)

	dependents := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}
	if redisClient != nil {
		dependents["redis"] = cacheRepo
	}

	engine := router.New(router.Dependencies{
		Config:          cfg,
		Logger:          logr,
		Metrics:         metricsSvc,
		CORS:            origins,
		Auth:            sessionSvc,
		Admins:          profileSvc,
		Courses:         handler.NewCourseHandler(courseSvc),
		Enrollments:     handler.NewEnrollmentHandler(enrollmentSvc),
		AdminEnrollment: handler.NewAdminEnrollmentHandler(enrollmentSvc, exportSvc),
		Sessions:        handler.NewSessionHandler(sessionSvc, profileSvc, logr),
		Health:          handler.NewMetricsHandler(metricsSvc, dependents),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
