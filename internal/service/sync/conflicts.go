package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/reps"
	"github.com/regsalud/reps-sync/internal/repository"
	"github.com/regsalud/reps-sync/pkg/logger"
)

// ConflictPreprocessor purges tombstoned records whose natural key
// collides with an incoming batch row. Uniqueness in storage is keyed on
// the natural key regardless of tombstone state, so a stale soft-deleted
// record would otherwise fail the creation of its replacement. Tombstones
// whose key is not in the batch are never touched.
type ConflictPreprocessor struct {
	facilities repository.FacilityRepository
	services   repository.EnabledServiceRepository
	logger     *logger.Logger
}

func NewConflictPreprocessor(
	facilities repository.FacilityRepository,
	services repository.EnabledServiceRepository,
	l *logger.Logger,
) *ConflictPreprocessor {
	return &ConflictPreprocessor{
		facilities: facilities,
		services:   services,
		logger:     l.WithComponent("conflicts"),
	}
}

// PurgeFacilityConflicts removes tombstoned facilities keyed like any
// incoming facility row.
func (p *ConflictPreprocessor) PurgeFacilityConflicts(ctx context.Context, orgID uuid.UUID, rows []reps.Row) error {
	keySet := make(map[model.NaturalKey]struct{}, len(rows))
	keys := make([]model.NaturalKey, 0, len(rows))
	for _, row := range rows {
		key := model.NaturalKey{
			RegistryCode: reps.NormalizeText(row[reps.ColRegistryCode]),
			SedeNumber:   reps.NormalizeText(row[reps.ColSedeNumber]),
		}
		if key.RegistryCode == "" || key.SedeNumber == "" {
			continue
		}
		if _, seen := keySet[key]; seen {
			continue
		}
		keySet[key] = struct{}{}
		keys = append(keys, key)
	}

	purged, err := p.facilities.PurgeTombstonedByKeys(ctx, orgID, keys)
	if err != nil {
		return fmt.Errorf("failed to purge conflicting facility tombstones: %w", err)
	}
	if purged > 0 {
		p.logger.Info("purged conflicting facility tombstones",
			"organization_id", orgID.String(), "purged", purged)
	}
	return nil
}

// PurgeServiceConflicts removes tombstoned services keyed like any
// incoming service row.
func (p *ConflictPreprocessor) PurgeServiceConflicts(ctx context.Context, orgID uuid.UUID, rows []reps.Row) error {
	keySet := make(map[repository.ServiceKey]struct{}, len(rows))
	keys := make([]repository.ServiceKey, 0, len(rows))
	for _, row := range rows {
		key := repository.ServiceKey{
			RegistryCode: reps.NormalizeText(row[reps.ColRegistryCode]),
			SedeNumber:   reps.NormalizeText(row[reps.ColSedeNumber]),
			ServiceCode:  reps.NormalizeText(row[reps.ColServiceCode]),
		}
		if key.RegistryCode == "" || key.SedeNumber == "" || key.ServiceCode == "" {
			continue
		}
		if _, seen := keySet[key]; seen {
			continue
		}
		keySet[key] = struct{}{}
		keys = append(keys, key)
	}

	purged, err := p.services.PurgeTombstonedByKeys(ctx, orgID, keys)
	if err != nil {
		return fmt.Errorf("failed to purge conflicting service tombstones: %w", err)
	}
	if purged > 0 {
		p.logger.Info("purged conflicting service tombstones",
			"organization_id", orgID.String(), "purged", purged)
	}
	return nil
}
