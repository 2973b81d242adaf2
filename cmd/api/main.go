package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hostwarden/backend/internal/config"
	"github.com/hostwarden/backend/internal/database"
	"github.com/hostwarden/backend/internal/logger"
	"github.com/hostwarden/backend/internal/metrics"
	"github.com/hostwarden/backend/internal/server"
	"github.com/hostwarden/backend/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		logger.Log().WithError(err).Fatal("create log directory")
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "hostwarden.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.Debug, io.MultiWriter(os.Stdout, rotator))
	log := logger.Log()

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}

	if len(os.Args) > 1 && os.Args[1] == "reset-password" {
		if len(os.Args) != 4 {
			log.Fatalf("Usage: %s reset-password <admin-name> <new-password>", os.Args[0])
		}
		if err := database.Migrate(db); err != nil {
			log.WithError(err).Fatal("migrate database")
		}
		if err := resetPassword(db, os.Args[2], os.Args[3]); err != nil {
			log.WithError(err).Fatal("reset password")
		}
		log.WithField("admin_name", os.Args[2]).Info("password updated")
		return
	}

	metrics.Register(prometheus.DefaultRegisterer)

	srv, err := server.New(db, cfg)
	if err != nil {
		log.WithError(err).Fatal("build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("port", cfg.HTTPPort).Infof("starting %s backend %s", version.Name, version.Full())
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("server error")
	}
	log.Info("server stopped")
}
