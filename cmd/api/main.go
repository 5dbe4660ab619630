package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/regsalud/reps-sync/internal/config"
	"github.com/regsalud/reps-sync/internal/email"
	"github.com/regsalud/reps-sync/internal/handler/health"
	syncHandler "github.com/regsalud/reps-sync/internal/handler/sync"
	"github.com/regsalud/reps-sync/internal/middleware"
	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/repository/postgres"
	"github.com/regsalud/reps-sync/internal/router"
	auditService "github.com/regsalud/reps-sync/internal/service/audit"
	syncService "github.com/regsalud/reps-sync/internal/service/sync"
	"github.com/regsalud/reps-sync/pkg/auth"
	"github.com/regsalud/reps-sync/pkg/lock"
	"github.com/regsalud/reps-sync/pkg/logger"
	"github.com/regsalud/reps-sync/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.NewLogger(nil)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	facilityRepo := postgres.NewFacilityRepository(base)
	serviceRepo := postgres.NewEnabledServiceRepository(base)
	backupRepo := postgres.NewBackupRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	// Initialize the distributed lock that serializes runs per organization
	locker, err := lock.NewRedisLocker(lock.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	// Initialize services
	m := metrics.NewMetrics("reps", "sync")
	auditSvc := auditService.NewService(auditRepo, l)
	notifier := email.NewService(cfg.SMTP, l)
	backups := syncService.NewBackupManager(facilityRepo, serviceRepo, backupRepo, l)
	conflicts := syncService.NewConflictPreprocessor(facilityRepo, serviceRepo, l)
	syncSvc := syncService.NewService(
		facilityRepo,
		serviceRepo,
		backups,
		conflicts,
		auditSvc,
		notifier,
		m,
		l,
		model.Complexity(cfg.Sync.DefaultComplexity),
	)

	// Initialize middleware
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	// Initialize handlers
	syncH := syncHandler.NewHandler(syncSvc, locker, cfg.Sync.LockTTL, cfg.Sync.ResultCacheTTL, l)
	healthH := health.NewHandler(db)

	// Setup router
	r := router.NewRouter(authMiddleware, syncH, healthH, router.Config{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
	})
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
