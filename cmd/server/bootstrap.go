package main

import (
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/internal/handlers"
	"github.com/spotlog/backend/internal/housekeeping"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/services"
	"github.com/spotlog/backend/internal/token"
	"github.com/spotlog/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	db             *gorm.DB
	codec          *token.Codec
	metrics        *services.AuthMetrics
	alerts         services.AlertQueue
	worker         *services.AlertWorker
	housekeeping   *housekeeping.Scheduler
	transport      *handlers.CredentialTransport
	authHandler    *handlers.AuthHandler
	healthHandler  *handlers.HealthHandler
	metricsHandler *handlers.MetricsHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	codec, err := token.NewCodec(cfg.JWT)
	if err != nil {
		logger.Fatalf("Invalid token configuration: %v", err)
	}

	db, err := models.Open(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Security alerts go through Redis when enabled, otherwise inline
	events := services.NewSecurityEventService(db)
	alerts := services.NewAlertQueue(&cfg.Redis, events.Record)

	var worker *services.AlertWorker
	if alerts.IsAsync() {
		worker = services.NewAlertWorker(&cfg.Redis, events.Record)
		if worker != nil {
			if err := worker.Start(); err != nil {
				logger.Fatalf("Failed to start alert worker: %v", err)
			}
		}
	}

	metrics := services.NewAuthMetrics()
	revocation := services.NewRevocationService(services.NewSessionStore(db), alerts, metrics)
	authService := services.NewAuthService(db, codec, &cfg.Auth, alerts, metrics)
	rotation := services.NewRotationService(db, codec, revocation, alerts, metrics)
	transport := handlers.NewCredentialTransport(cfg)

	scheduler := housekeeping.NewScheduler(cfg.Housekeeping, db)
	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start housekeeping: %v", err)
	}

	return &appServices{
		db:             db,
		codec:          codec,
		metrics:        metrics,
		alerts:         alerts,
		worker:         worker,
		housekeeping:   scheduler,
		transport:      transport,
		authHandler:    handlers.NewAuthHandler(authService, rotation, revocation, transport),
		healthHandler:  handlers.NewHealthHandler(db, alerts),
		metricsHandler: handlers.NewMetricsHandler(db, metrics, alerts),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.housekeeping.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.alerts != nil {
		s.alerts.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
