package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/regsalud/reps-sync/internal/config"
	"github.com/regsalud/reps-sync/internal/email"
	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/repository/postgres"
	auditService "github.com/regsalud/reps-sync/internal/service/audit"
	syncService "github.com/regsalud/reps-sync/internal/service/sync"
	"github.com/regsalud/reps-sync/pkg/logger"
	"github.com/regsalud/reps-sync/pkg/metrics"
)

// synctool runs a single synchronization from local portal export files,
// bypassing the HTTP API. Meant for backfills and operator-driven reloads.
func main() {
	var (
		orgFlag        = flag.String("org", "", "organization UUID (required)")
		facilitiesPath = flag.String("facilities", "", "path to the facilities export file")
		servicesPath   = flag.String("services", "", "path to the services export file")
		createBackup   = flag.Bool("backup", true, "snapshot current state before merging")
		forceRecreate  = flag.Bool("force-recreate", false, "wipe existing entities before importing")
		actingUser     = flag.String("user", "synctool", "acting user recorded in the audit trail")
	)
	flag.Parse()

	orgID, err := uuid.Parse(*orgFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -org value")
	}
	if *facilitiesPath == "" && *servicesPath == "" {
		log.Fatal().Msg("at least one of -facilities or -services is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	facilityRepo := postgres.NewFacilityRepository(base)
	serviceRepo := postgres.NewEnabledServiceRepository(base)
	backupRepo := postgres.NewBackupRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	m := metrics.NewMetrics("reps", "sync")
	auditSvc := auditService.NewService(auditRepo, l)
	notifier := email.NewService(cfg.SMTP, l)
	backups := syncService.NewBackupManager(facilityRepo, serviceRepo, backupRepo, l)
	conflicts := syncService.NewConflictPreprocessor(facilityRepo, serviceRepo, l)
	svc := syncService.NewService(
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

	opts := syncService.Options{
		CreateBackup:  *createBackup,
		ForceRecreate: *forceRecreate,
		ActingUser:    *actingUser,
	}
	if *facilitiesPath != "" {
		f, err := os.Open(*facilitiesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open facilities file")
		}
		defer f.Close()
		opts.FacilitiesFile = f
		opts.FacilitiesName = *facilitiesPath
	}
	if *servicesPath != "" {
		f, err := os.Open(*servicesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open services file")
		}
		defer f.Close()
		opts.ServicesFile = f
		opts.ServicesName = *servicesPath
	}

	run, err := svc.Run(context.Background(), orgID, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("synchronization failed to start")
	}

	out, _ := json.MarshalIndent(run, "", "  ")
	os.Stdout.Write(append(out, '\n'))

	switch run.Status {
	case model.SyncRunCompleted:
	case model.SyncRunRolledBack:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}
