package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
)

// ServiceKey identifies an enabled service by the parent facility's
// natural key plus the service code.
type ServiceKey struct {
	RegistryCode string
	SedeNumber   string
	ServiceCode  string
}

// All repository interfaces in one file
type (
	// FacilityRepository handles facility location storage scoped by
	// organization. "Active" means records without a soft-delete tombstone.
	FacilityRepository interface {
		Create(ctx context.Context, facility *model.FacilityLocation) error
		Update(ctx context.Context, facility *model.FacilityLocation) error
		Get(ctx context.Context, id uuid.UUID) (*model.FacilityLocation, error)
		GetByNaturalKey(ctx context.Context, orgID uuid.UUID, key model.NaturalKey) (*model.FacilityLocation, error)
		FindByNameAddress(ctx context.Context, orgID uuid.UUID, name, address string) (*model.FacilityLocation, error)
		ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.FacilityLocation, error)
		// ListAll includes tombstoned records; used by backup capture so
		// a restore reproduces the exact pre-run state.
		ListAll(ctx context.Context, orgID uuid.UUID) ([]*model.FacilityLocation, error)
		CountActive(ctx context.Context, orgID uuid.UUID) (int, error)
		HasMainFacility(ctx context.Context, orgID uuid.UUID) (bool, error)
		SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error
		PurgeTombstonedByKeys(ctx context.Context, orgID uuid.UUID, keys []model.NaturalKey) (int, error)
		DeleteAll(ctx context.Context, orgID uuid.UUID) error
	}

	// EnabledServiceRepository handles enabled service storage.
	EnabledServiceRepository interface {
		Create(ctx context.Context, svc *model.EnabledService) error
		Update(ctx context.Context, svc *model.EnabledService) error
		GetByCode(ctx context.Context, facilityID uuid.UUID, serviceCode string) (*model.EnabledService, error)
		ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.EnabledService, error)
		ListAll(ctx context.Context, orgID uuid.UUID) ([]*model.EnabledService, error)
		CountActive(ctx context.Context, orgID uuid.UUID) (int, error)
		CountOrphans(ctx context.Context, orgID uuid.UUID) (int, error)
		PurgeTombstonedByKeys(ctx context.Context, orgID uuid.UUID, keys []ServiceKey) (int, error)
		DeleteAll(ctx context.Context, orgID uuid.UUID) error
	}

	// BackupRepository stores organization snapshots. Snapshots are
	// retained after successful runs for audit.
	BackupRepository interface {
		Create(ctx context.Context, snapshot *model.BackupSnapshot) error
		Get(ctx context.Context, id uuid.UUID) (*model.BackupSnapshot, error)
		// RestoreEntities replaces the organization's entire entity set
		// with the snapshot payload, atomically. Destructive and total.
		RestoreEntities(ctx context.Context, orgID uuid.UUID, payload *model.BackupPayload) error
	}

	// AuditRepository persists attribution entries.
	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
	}
)
