package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/repository"
	apperrors "github.com/regsalud/reps-sync/pkg/errors"
)

const facilityColumns = `
	id, organization_id, registry_code, sede_number, name, sede_type,
	department_code, department_name, municipality_code, municipality_name,
	address, phone, email, habilitation_status, is_main_facility,
	last_sync_status, last_sync_at, created_by, updated_by,
	created_at, updated_at, deleted_at`

type facilityRepository struct {
	BaseRepository
}

func NewFacilityRepository(base BaseRepository) repository.FacilityRepository {
	return &facilityRepository{base}
}

func (r *facilityRepository) Create(ctx context.Context, facility *model.FacilityLocation) error {
	query := `
		INSERT INTO facility_locations (
			id, organization_id, registry_code, sede_number, name, sede_type,
			department_code, department_name, municipality_code, municipality_name,
			address, phone, email, habilitation_status, is_main_facility,
			last_sync_status, last_sync_at, created_by, updated_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
	`
	if facility.ID == uuid.Nil {
		facility.ID = uuid.New()
	}
	facility.CreatedAt = time.Now()
	facility.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		facility.ID,
		facility.OrganizationID,
		facility.RegistryCode,
		facility.SedeNumber,
		facility.Name,
		facility.SedeType,
		facility.DepartmentCode,
		facility.DepartmentName,
		facility.MunicipalityCode,
		facility.MunicipalityName,
		facility.Address,
		facility.Phone,
		facility.Email,
		facility.HabilitationStatus,
		facility.IsMainFacility,
		facility.LastSyncStatus,
		facility.LastSyncAt,
		facility.CreatedBy,
		facility.UpdatedBy,
		facility.CreatedAt,
		facility.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create facility: %w", err)
	}
	return nil
}

func (r *facilityRepository) Update(ctx context.Context, facility *model.FacilityLocation) error {
	query := `
		UPDATE facility_locations
		SET name = $1, sede_type = $2, department_code = $3, department_name = $4,
			municipality_code = $5, municipality_name = $6, address = $7,
			phone = $8, email = $9, habilitation_status = $10,
			is_main_facility = $11, last_sync_status = $12, last_sync_at = $13,
			updated_by = $14, updated_at = $15
		WHERE id = $16 AND deleted_at IS NULL
	`
	facility.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		facility.Name,
		facility.SedeType,
		facility.DepartmentCode,
		facility.DepartmentName,
		facility.MunicipalityCode,
		facility.MunicipalityName,
		facility.Address,
		facility.Phone,
		facility.Email,
		facility.HabilitationStatus,
		facility.IsMainFacility,
		facility.LastSyncStatus,
		facility.LastSyncAt,
		facility.UpdatedBy,
		facility.UpdatedAt,
		facility.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update facility: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("facility", nil)
	}
	return nil
}

func (r *facilityRepository) Get(ctx context.Context, id uuid.UUID) (*model.FacilityLocation, error) {
	query := `SELECT ` + facilityColumns + ` FROM facility_locations WHERE id = $1`

	var facility model.FacilityLocation
	err := r.db.GetContext(ctx, &facility, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("facility", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	return &facility, nil
}

// GetByNaturalKey looks up an active facility by the portal-issued key.
// Tombstoned records are invisible here; they are handled by the conflict
// pre-processor.
func (r *facilityRepository) GetByNaturalKey(ctx context.Context, orgID uuid.UUID, key model.NaturalKey) (*model.FacilityLocation, error) {
	query := `
		SELECT ` + facilityColumns + `
		FROM facility_locations
		WHERE organization_id = $1 AND registry_code = $2 AND sede_number = $3
		AND deleted_at IS NULL
	`
	var facility model.FacilityLocation
	err := r.db.GetContext(ctx, &facility, query, orgID, key.RegistryCode, key.SedeNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("facility", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get facility by natural key: %w", err)
	}
	return &facility, nil
}

func (r *facilityRepository) FindByNameAddress(ctx context.Context, orgID uuid.UUID, name, address string) (*model.FacilityLocation, error) {
	query := `
		SELECT ` + facilityColumns + `
		FROM facility_locations
		WHERE organization_id = $1 AND name = $2 AND address = $3
		AND deleted_at IS NULL
		LIMIT 1
	`
	var facility model.FacilityLocation
	err := r.db.GetContext(ctx, &facility, query, orgID, name, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("facility", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find facility by name and address: %w", err)
	}
	return &facility, nil
}

func (r *facilityRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.FacilityLocation, error) {
	query := `
		SELECT ` + facilityColumns + `
		FROM facility_locations
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY registry_code, sede_number
	`
	var facilities []*model.FacilityLocation
	if err := r.db.SelectContext(ctx, &facilities, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	return facilities, nil
}

func (r *facilityRepository) ListAll(ctx context.Context, orgID uuid.UUID) ([]*model.FacilityLocation, error) {
	query := `
		SELECT ` + facilityColumns + `
		FROM facility_locations
		WHERE organization_id = $1
		ORDER BY registry_code, sede_number
	`
	var facilities []*model.FacilityLocation
	if err := r.db.SelectContext(ctx, &facilities, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	return facilities, nil
}

func (r *facilityRepository) CountActive(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM facility_locations WHERE organization_id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &count, query, orgID); err != nil {
		return 0, fmt.Errorf("failed to count facilities: %w", err)
	}
	return count, nil
}

func (r *facilityRepository) HasMainFacility(ctx context.Context, orgID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM facility_locations
			WHERE organization_id = $1 AND is_main_facility AND deleted_at IS NULL
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, orgID); err != nil {
		return false, fmt.Errorf("failed to check main facility: %w", err)
	}
	return exists, nil
}

func (r *facilityRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	query := `
		UPDATE facility_locations
		SET deleted_at = $1, updated_by = $2, updated_at = $1
		WHERE id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), deletedBy, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete facility: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("facility", nil)
	}
	return nil
}

// PurgeTombstonedByKeys permanently removes tombstoned facilities whose
// natural key is in the incoming batch, so that re-creation does not trip
// the uniqueness constraint. Unrelated tombstones are left untouched.
func (r *facilityRepository) PurgeTombstonedByKeys(ctx context.Context, orgID uuid.UUID, keys []model.NaturalKey) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)*2+1)
	args = append(args, orgID)
	for i, key := range keys {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", i*2+2, i*2+3))
		args = append(args, key.RegistryCode, key.SedeNumber)
	}

	query := fmt.Sprintf(`
		DELETE FROM facility_locations
		WHERE organization_id = $1 AND deleted_at IS NOT NULL
		AND (registry_code, sede_number) IN (%s)
	`, strings.Join(placeholders, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstoned facilities: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

func (r *facilityRepository) DeleteAll(ctx context.Context, orgID uuid.UUID) error {
	query := `DELETE FROM facility_locations WHERE organization_id = $1`
	if _, err := r.db.ExecContext(ctx, query, orgID); err != nil {
		return fmt.Errorf("failed to delete facilities: %w", err)
	}
	return nil
}
