package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/repository"
	apperrors "github.com/regsalud/reps-sync/pkg/errors"
)

type backupRepository struct {
	BaseRepository
}

func NewBackupRepository(base BaseRepository) repository.BackupRepository {
	return &backupRepository{base}
}

func (r *backupRepository) Create(ctx context.Context, snapshot *model.BackupSnapshot) error {
	query := `
		INSERT INTO backup_snapshots (id, organization_id, payload, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	snapshot.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.OrganizationID,
		snapshot.Payload,
		snapshot.CreatedBy,
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create backup snapshot: %w", err)
	}
	return nil
}

// RestoreEntities deletes the organization's current facilities and
// services and recreates them exactly as captured, ids and tombstones
// included, in one transaction.
func (r *backupRepository) RestoreEntities(ctx context.Context, orgID uuid.UUID, payload *model.BackupPayload) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM enabled_services WHERE organization_id = $1`, orgID); err != nil {
			return fmt.Errorf("failed to clear enabled services: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM facility_locations WHERE organization_id = $1`, orgID); err != nil {
			return fmt.Errorf("failed to clear facility locations: %w", err)
		}

		facilityInsert := `
			INSERT INTO facility_locations (
				id, organization_id, registry_code, sede_number, name, sede_type,
				department_code, department_name, municipality_code, municipality_name,
				address, phone, email, habilitation_status, is_main_facility,
				last_sync_status, last_sync_at, created_by, updated_by,
				created_at, updated_at, deleted_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
				$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
			)
		`
		for _, f := range payload.Facilities {
			if _, err := tx.ExecContext(ctx, facilityInsert,
				f.ID, f.OrganizationID, f.RegistryCode, f.SedeNumber, f.Name, f.SedeType,
				f.DepartmentCode, f.DepartmentName, f.MunicipalityCode, f.MunicipalityName,
				f.Address, f.Phone, f.Email, f.HabilitationStatus, f.IsMainFacility,
				f.LastSyncStatus, f.LastSyncAt, f.CreatedBy, f.UpdatedBy,
				f.CreatedAt, f.UpdatedAt, f.DeletedAt,
			); err != nil {
				return fmt.Errorf("failed to restore facility %s: %w", f.ID, err)
			}
		}

		serviceInsert := `
			INSERT INTO enabled_services (
				id, facility_id, organization_id, service_code, service_name,
				service_group, complexity, ambulatory, hospital, mobile_unit,
				domiciliary, telemedicine, habilitation_date, capacity,
				created_by, updated_by, created_at, updated_at, deleted_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19
			)
		`
		for _, s := range payload.Services {
			if _, err := tx.ExecContext(ctx, serviceInsert,
				s.ID, s.FacilityID, s.OrganizationID, s.ServiceCode, s.ServiceName,
				s.ServiceGroup, s.Complexity, s.Ambulatory, s.Hospital, s.MobileUnit,
				s.Domiciliary, s.Telemedicine, s.HabilitationDate, s.Capacity,
				s.CreatedBy, s.UpdatedBy, s.CreatedAt, s.UpdatedAt, s.DeletedAt,
			); err != nil {
				return fmt.Errorf("failed to restore service %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

func (r *backupRepository) Get(ctx context.Context, id uuid.UUID) (*model.BackupSnapshot, error) {
	query := `
		SELECT id, organization_id, payload, created_by, created_at
		FROM backup_snapshots
		WHERE id = $1
	`
	var snapshot model.BackupSnapshot
	err := r.db.GetContext(ctx, &snapshot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("backup snapshot", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backup snapshot: %w", err)
	}
	return &snapshot, nil
}
