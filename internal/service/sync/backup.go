package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/repository"
	"github.com/regsalud/reps-sync/pkg/logger"
)

// BackupManager serializes an organization's complete entity set into an
// addressable snapshot before mutation and can restore it verbatim. A
// snapshot is owned by the run that captured it; restore is destructive
// and total.
type BackupManager struct {
	facilities repository.FacilityRepository
	services   repository.EnabledServiceRepository
	backups    repository.BackupRepository
	logger     *logger.Logger
}

func NewBackupManager(
	facilities repository.FacilityRepository,
	services repository.EnabledServiceRepository,
	backups repository.BackupRepository,
	l *logger.Logger,
) *BackupManager {
	return &BackupManager{
		facilities: facilities,
		services:   services,
		backups:    backups,
		logger:     l.WithComponent("backup"),
	}
}

// Capture snapshots every facility and service of the organization,
// tombstoned records included, so a restore reproduces the exact pre-run
// state.
func (m *BackupManager) Capture(ctx context.Context, orgID uuid.UUID, actingUser string) (*model.BackupSnapshot, error) {
	facilities, err := m.facilities.ListAll(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot facilities: %w", err)
	}
	services, err := m.services.ListAll(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot services: %w", err)
	}

	payload, err := json.Marshal(&model.BackupPayload{
		Facilities: facilities,
		Services:   services,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	snapshot := &model.BackupSnapshot{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Payload:        payload,
		CreatedBy:      actingUser,
	}
	if err := m.backups.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	m.logger.Info("captured backup snapshot",
		"backup_id", snapshot.ID.String(),
		"organization_id", orgID.String(),
		"facilities", len(facilities),
		"services", len(services))
	return snapshot, nil
}

// Restore wipes the organization's current entities and recreates the
// captured set exactly, natural keys and ids included.
func (m *BackupManager) Restore(ctx context.Context, backupID uuid.UUID) error {
	snapshot, err := m.backups.Get(ctx, backupID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", backupID, err)
	}

	var payload model.BackupPayload
	if err := json.Unmarshal(snapshot.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", backupID, err)
	}

	if err := m.backups.RestoreEntities(ctx, snapshot.OrganizationID, &payload); err != nil {
		return err
	}

	m.logger.Info("restored backup snapshot",
		"backup_id", backupID.String(),
		"organization_id", snapshot.OrganizationID.String())
	return nil
}
