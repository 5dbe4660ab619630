package sync

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/reps"
	"github.com/regsalud/reps-sync/internal/repository"
	"github.com/regsalud/reps-sync/internal/service/audit"
	apperrors "github.com/regsalud/reps-sync/pkg/errors"
	"github.com/regsalud/reps-sync/pkg/logger"
	"github.com/regsalud/reps-sync/pkg/metrics"
)

// Notifier delivers run alerts to the outside world. Implementations live
// at the alerting boundary; the orchestrator only calls it for runs that
// need operator attention.
type Notifier interface {
	NotifyCriticalFailure(ctx context.Context, run *model.SyncRun) error
}

// Options are the invocation parameters of one synchronization run.
// At least one file must be provided.
type Options struct {
	FacilitiesFile io.Reader
	FacilitiesName string
	ServicesFile   io.Reader
	ServicesName   string
	CreateBackup   bool
	ForceRecreate  bool
	ActingUser     string
}

// Service orchestrates a synchronization run: backup, conflict
// pre-processing, parse/validate/map/upsert per file, post-merge integrity
// check, and rollback on fatal failure. Callers must serialize runs per
// organization; the backup/rollback mechanism assumes no concurrent
// mutation of the organization's entities.
type Service struct {
	facilities repository.FacilityRepository
	services   repository.EnabledServiceRepository
	backups    *BackupManager
	conflicts  *ConflictPreprocessor
	auditor    *audit.Service
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *logger.Logger

	defaultComplexity model.Complexity
}

func NewService(
	facilities repository.FacilityRepository,
	services repository.EnabledServiceRepository,
	backups *BackupManager,
	conflicts *ConflictPreprocessor,
	auditor *audit.Service,
	notifier Notifier,
	m *metrics.Metrics,
	l *logger.Logger,
	defaultComplexity model.Complexity,
) *Service {
	return &Service{
		facilities:        facilities,
		services:          services,
		backups:           backups,
		conflicts:         conflicts,
		auditor:           auditor,
		notifier:          notifier,
		metrics:           m,
		logger:            l.WithComponent("sync"),
		defaultComplexity: defaultComplexity,
	}
}

// Run executes one synchronization for the organization and returns the
// run result. Row-level problems are absorbed into the result statistics;
// only invalid invocations return a nil run.
func (s *Service) Run(ctx context.Context, orgID uuid.UUID, opts Options) (*model.SyncRun, error) {
	if opts.FacilitiesFile == nil && opts.ServicesFile == nil {
		return nil, apperrors.NewBadRequest("at least one file must be provided", nil)
	}

	run := &model.SyncRun{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Status:         model.SyncRunPending,
		StartTime:      time.Now(),
	}
	run.Status = model.SyncRunRunning

	s.logger.Info("synchronization run started",
		"run_id", run.ID.String(),
		"organization_id", orgID.String(),
		"create_backup", opts.CreateBackup,
		"force_recreate", opts.ForceRecreate)

	defer func() {
		run.EndTime = time.Now()
		s.observe(run)
		s.auditor.Log(ctx, orgID, opts.ActingUser, model.AuditActionSync,
			model.AuditEntitySyncRun, run.ID, run)
	}()

	// Parse both files before touching storage so a file-level fault never
	// needs a rollback.
	facTable, svcTable, err := s.parseFiles(&opts)
	if err != nil {
		run.Status = model.SyncRunFailed
		run.AddError(err.Error())
		s.logger.Error(err, "run aborted before mutation", "run_id", run.ID.String())
		return run, nil
	}

	if opts.CreateBackup {
		snapshot, err := s.backups.Capture(ctx, orgID, opts.ActingUser)
		if err != nil {
			// Nothing has changed yet, so this is an ordinary failure.
			run.Status = model.SyncRunFailed
			run.AddError(fmt.Sprintf("backup capture failed: %v", err))
			s.logger.Error(err, "backup capture failed", "run_id", run.ID.String())
			return run, nil
		}
		run.BackupCreated = true
		run.BackupID = &snapshot.ID
	}

	fatal := s.merge(ctx, orgID, &opts, run, facTable, svcTable)
	if fatal == nil {
		fatal = s.verifyIntegrity(ctx, orgID)
	}

	if fatal == nil {
		run.Status = model.SyncRunCompleted
		s.logger.Info("synchronization run completed",
			"run_id", run.ID.String(),
			"imported", run.ImportedCount,
			"updated", run.UpdatedCount,
			"skipped", run.SkippedCount,
			"invalid", run.InvalidRows,
			"errors", run.ErrorCount)
		return run, nil
	}

	run.AddError(fatal.Error())
	s.rollback(ctx, run, fatal)
	return run, nil
}

func (s *Service) parseFiles(opts *Options) (facTable, svcTable *reps.Table, err error) {
	if opts.FacilitiesFile != nil {
		facTable, err = reps.ReadTable(opts.FacilitiesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("facilities file %q: %w", opts.FacilitiesName, err)
		}
	}
	if opts.ServicesFile != nil {
		svcTable, err = reps.ReadTable(opts.ServicesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("services file %q: %w", opts.ServicesName, err)
		}
	}
	return facTable, svcTable, nil
}

// merge runs the mutation phase. The returned error is fatal and triggers
// rollback; row-level failures are folded into the run statistics instead.
func (s *Service) merge(ctx context.Context, orgID uuid.UUID, opts *Options, run *model.SyncRun, facTable, svcTable *reps.Table) error {
	if opts.ForceRecreate {
		// Full-replace mode: wipe and rebuild instead of merging.
		if err := s.services.DeleteAll(ctx, orgID); err != nil {
			return err
		}
		if err := s.facilities.DeleteAll(ctx, orgID); err != nil {
			return err
		}
	}

	mapper := &reps.Mapper{
		DefaultComplexity: s.defaultComplexity,
		ActingUser:        opts.ActingUser,
	}

	// Facilities are always processed first: service rows resolve their
	// parent through the facility natural key.
	if facTable != nil {
		if !opts.ForceRecreate {
			if err := s.conflicts.PurgeFacilityConflicts(ctx, orgID, facTable.Rows); err != nil {
				return err
			}
		}
		if err := s.mergeFacilities(ctx, orgID, mapper, run, opts.FacilitiesName, facTable); err != nil {
			return err
		}
	}

	if svcTable != nil {
		if !opts.ForceRecreate {
			if err := s.conflicts.PurgeServiceConflicts(ctx, orgID, svcTable.Rows); err != nil {
				return err
			}
		}
		if err := s.mergeServices(ctx, orgID, mapper, run, opts.ServicesName, svcTable); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) mergeFacilities(ctx context.Context, orgID uuid.UUID, mapper *reps.Mapper, run *model.SyncRun, fileName string, table *reps.Table) error {
	hasMain, err := s.facilities.HasMainFacility(ctx, orgID)
	if err != nil {
		return err
	}

	stats := model.FileStats{File: fileName, Kind: model.FileKindFacilities}
	for i, row := range table.Rows {
		stats.TotalRows++

		result := reps.ValidateRow(i, row, reps.FacilityRequiredFields)
		if !result.Valid {
			stats.InvalidRows++
			run.AddError(fmt.Sprintf("facilities row %d: missing required fields: %s",
				i+1, strings.Join(result.Missing, ", ")))
			continue
		}
		stats.ValidRows++

		outcome, err := s.upsertFacility(ctx, orgID, mapper, result.Data, &hasMain)
		if err != nil {
			stats.Errors++
			run.AddError(fmt.Sprintf("facilities row %d: %v", i+1, err))
			s.logger.Warn("facility row failed at upsert",
				"row", i+1, "error", err.Error())
			continue
		}
		switch outcome {
		case model.SyncStatusImported:
			stats.Imported++
		case model.SyncStatusUpdated:
			stats.Updated++
		case model.SyncStatusSkipped:
			stats.Skipped++
		}
	}

	run.AddFileStats(stats)
	return nil
}

func (s *Service) upsertFacility(ctx context.Context, orgID uuid.UUID, mapper *reps.Mapper, row reps.Row, hasMain *bool) (string, error) {
	key := reps.FacilityKey(row)
	now := time.Now()

	existing, err := s.facilities.GetByNaturalKey(ctx, orgID, key)
	switch {
	case err == nil:
		mapped := mapper.MapFacility(row, orgID, false)
		existing.Name = mapped.Name
		existing.SedeType = mapped.SedeType
		existing.DepartmentCode = mapped.DepartmentCode
		existing.DepartmentName = mapped.DepartmentName
		existing.MunicipalityCode = mapped.MunicipalityCode
		existing.MunicipalityName = mapped.MunicipalityName
		existing.Address = mapped.Address
		existing.Phone = mapped.Phone
		existing.Email = mapped.Email
		existing.HabilitationStatus = mapped.HabilitationStatus
		existing.UpdatedBy = mapper.ActingUser
		existing.LastSyncStatus = model.SyncStatusUpdated
		existing.LastSyncAt = &now
		if err := s.facilities.Update(ctx, existing); err != nil {
			return "", err
		}
		return model.SyncStatusUpdated, nil

	case apperrors.IsCode(err, apperrors.ErrNotFound):
		// A row can describe an already known facility under a different
		// key shape; exact (name, address) matches are skipped unchanged.
		_, dupErr := s.facilities.FindByNameAddress(ctx, orgID, row[reps.ColName], row[reps.ColAddress])
		if dupErr == nil {
			return model.SyncStatusSkipped, nil
		}
		if !apperrors.IsCode(dupErr, apperrors.ErrNotFound) {
			return "", dupErr
		}

		mapped := mapper.MapFacility(row, orgID, !*hasMain)
		mapped.LastSyncStatus = model.SyncStatusImported
		mapped.LastSyncAt = &now
		if err := s.facilities.Create(ctx, mapped); err != nil {
			return "", err
		}
		if mapped.IsMainFacility {
			*hasMain = true
		}
		return model.SyncStatusImported, nil

	default:
		return "", err
	}
}

func (s *Service) mergeServices(ctx context.Context, orgID uuid.UUID, mapper *reps.Mapper, run *model.SyncRun, fileName string, table *reps.Table) error {
	stats := model.FileStats{File: fileName, Kind: model.FileKindServices}
	for i, row := range table.Rows {
		stats.TotalRows++

		result := reps.ValidateRow(i, row, reps.ServiceRequiredFields)
		if !result.Valid {
			stats.InvalidRows++
			run.AddError(fmt.Sprintf("services row %d: missing required fields: %s",
				i+1, strings.Join(result.Missing, ", ")))
			continue
		}
		stats.ValidRows++

		outcome, err := s.upsertService(ctx, orgID, mapper, result.Data)
		if err != nil {
			stats.Errors++
			run.AddError(fmt.Sprintf("services row %d: %v", i+1, err))
			s.logger.Warn("service row failed at upsert",
				"row", i+1, "error", err.Error())
			continue
		}
		switch outcome {
		case model.SyncStatusImported:
			stats.Imported++
		case model.SyncStatusUpdated:
			stats.Updated++
		}
	}

	run.AddFileStats(stats)
	return nil
}

func (s *Service) upsertService(ctx context.Context, orgID uuid.UUID, mapper *reps.Mapper, row reps.Row) (string, error) {
	key := reps.FacilityKey(row)
	facility, err := s.facilities.GetByNaturalKey(ctx, orgID, key)
	if apperrors.IsCode(err, apperrors.ErrNotFound) {
		return "", fmt.Errorf("facility %s/%s does not exist for service %s",
			key.RegistryCode, key.SedeNumber, row[reps.ColServiceCode])
	}
	if err != nil {
		return "", err
	}

	existing, err := s.services.GetByCode(ctx, facility.ID, row[reps.ColServiceCode])
	switch {
	case err == nil:
		mapped := mapper.MapService(row, orgID, facility.ID)
		existing.ServiceName = mapped.ServiceName
		existing.ServiceGroup = mapped.ServiceGroup
		existing.Complexity = mapped.Complexity
		existing.Ambulatory = mapped.Ambulatory
		existing.Hospital = mapped.Hospital
		existing.MobileUnit = mapped.MobileUnit
		existing.Domiciliary = mapped.Domiciliary
		existing.Telemedicine = mapped.Telemedicine
		existing.HabilitationDate = mapped.HabilitationDate
		existing.Capacity = mapped.Capacity
		existing.UpdatedBy = mapper.ActingUser
		if err := s.services.Update(ctx, existing); err != nil {
			return "", err
		}
		return model.SyncStatusUpdated, nil

	case apperrors.IsCode(err, apperrors.ErrNotFound):
		mapped := mapper.MapService(row, orgID, facility.ID)
		if err := s.services.Create(ctx, mapped); err != nil {
			return "", err
		}
		return model.SyncStatusImported, nil

	default:
		return "", err
	}
}

// verifyIntegrity checks that every active service has an active parent
// facility in the same organization. Any violation is fatal.
func (s *Service) verifyIntegrity(ctx context.Context, orgID uuid.UUID) error {
	orphans, err := s.services.CountOrphans(ctx, orgID)
	if err != nil {
		return err
	}
	if orphans > 0 {
		return apperrors.NewIntegrity(
			fmt.Sprintf("%d services reference a missing or foreign facility", orphans), nil)
	}
	return nil
}

// rollback restores the pre-run snapshot after a fatal merge error. A
// restore failure escalates to critical_error: the organization's data may
// be partially mutated and needs a manual audit.
func (s *Service) rollback(ctx context.Context, run *model.SyncRun, cause error) {
	if run.BackupID == nil {
		run.Status = model.SyncRunFailed
		s.logger.Error(cause, "run failed with no backup to restore",
			"run_id", run.ID.String())
		return
	}

	if err := s.backups.Restore(ctx, *run.BackupID); err != nil {
		run.Status = model.SyncRunCriticalError
		run.AddError(apperrors.NewRollbackFailed(err).Error())
		s.logger.Critical(err, "rollback failed, manual intervention required",
			"run_id", run.ID.String(),
			"backup_id", run.BackupID.String())
		if s.notifier != nil {
			if nerr := s.notifier.NotifyCriticalFailure(ctx, run); nerr != nil {
				s.logger.Error(nerr, "failed to deliver critical failure alert")
			}
		}
		return
	}

	run.Status = model.SyncRunRolledBack
	s.metrics.RollbacksTotal.Inc()
	s.logger.Error(cause, "run rolled back to pre-run snapshot",
		"run_id", run.ID.String(),
		"backup_id", run.BackupID.String())
}

func (s *Service) observe(run *model.SyncRun) {
	s.metrics.ObserveRun(string(run.Status), run.EndTime.Sub(run.StartTime).Seconds())
	s.metrics.SyncRowsTotal.WithLabelValues("imported").Add(float64(run.ImportedCount))
	s.metrics.SyncRowsTotal.WithLabelValues("updated").Add(float64(run.UpdatedCount))
	s.metrics.SyncRowsTotal.WithLabelValues("skipped").Add(float64(run.SkippedCount))
	s.metrics.SyncRowsTotal.WithLabelValues("invalid").Add(float64(run.InvalidRows))
	s.metrics.SyncRowsTotal.WithLabelValues("error").Add(float64(run.ErrorCount))
}
