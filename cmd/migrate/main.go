package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/pkg/config"
	"github.com/noah-isme/course-portal-api/pkg/database"
	"github.com/noah-isme/course-portal-api/pkg/logger"
	"github.com/noah-isme/course-portal-api/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|redo|reset|version")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	logr.Info("migrate ready", zap.String("cmd", *cmd), zap.String("env", cfg.Env))

	switch *cmd {
	case "version":
		if *version == "" {
			logr.Fatal("missing -version for version command")
		}
		err = migrate.MigrateToVersion(ctx, db.DB, *version)
	case "up", "down", "status", "redo", "reset":
		err = migrate.Run(ctx, db.DB, *cmd)
	default:
		logr.Fatal("unknown -cmd value", zap.String("cmd", *cmd))
	}
	if err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}
	logr.Info("migration complete", zap.String("cmd", *cmd))
}
