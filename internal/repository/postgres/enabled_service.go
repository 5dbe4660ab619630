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

const serviceColumns = `
	id, facility_id, organization_id, service_code, service_name,
	service_group, complexity, ambulatory, hospital, mobile_unit,
	domiciliary, telemedicine, habilitation_date, capacity,
	created_by, updated_by, created_at, updated_at, deleted_at`

type enabledServiceRepository struct {
	BaseRepository
}

func NewEnabledServiceRepository(base BaseRepository) repository.EnabledServiceRepository {
	return &enabledServiceRepository{base}
}

func (r *enabledServiceRepository) Create(ctx context.Context, svc *model.EnabledService) error {
	query := `
		INSERT INTO enabled_services (
			id, facility_id, organization_id, service_code, service_name,
			service_group, complexity, ambulatory, hospital, mobile_unit,
			domiciliary, telemedicine, habilitation_date, capacity,
			created_by, updated_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18
		)
	`
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		svc.ID,
		svc.FacilityID,
		svc.OrganizationID,
		svc.ServiceCode,
		svc.ServiceName,
		svc.ServiceGroup,
		svc.Complexity,
		svc.Ambulatory,
		svc.Hospital,
		svc.MobileUnit,
		svc.Domiciliary,
		svc.Telemedicine,
		svc.HabilitationDate,
		svc.Capacity,
		svc.CreatedBy,
		svc.UpdatedBy,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create enabled service: %w", err)
	}
	return nil
}

func (r *enabledServiceRepository) Update(ctx context.Context, svc *model.EnabledService) error {
	query := `
		UPDATE enabled_services
		SET service_name = $1, service_group = $2, complexity = $3,
			ambulatory = $4, hospital = $5, mobile_unit = $6,
			domiciliary = $7, telemedicine = $8, habilitation_date = $9,
			capacity = $10, updated_by = $11, updated_at = $12
		WHERE id = $13 AND deleted_at IS NULL
	`
	svc.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		svc.ServiceName,
		svc.ServiceGroup,
		svc.Complexity,
		svc.Ambulatory,
		svc.Hospital,
		svc.MobileUnit,
		svc.Domiciliary,
		svc.Telemedicine,
		svc.HabilitationDate,
		svc.Capacity,
		svc.UpdatedBy,
		svc.UpdatedAt,
		svc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update enabled service: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("enabled service", nil)
	}
	return nil
}

func (r *enabledServiceRepository) GetByCode(ctx context.Context, facilityID uuid.UUID, serviceCode string) (*model.EnabledService, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM enabled_services
		WHERE facility_id = $1 AND service_code = $2 AND deleted_at IS NULL
	`
	var svc model.EnabledService
	err := r.db.GetContext(ctx, &svc, query, facilityID, serviceCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("enabled service", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled service: %w", err)
	}
	return &svc, nil
}

func (r *enabledServiceRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.EnabledService, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM enabled_services
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY service_code
	`
	var services []*model.EnabledService
	if err := r.db.SelectContext(ctx, &services, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list enabled services: %w", err)
	}
	return services, nil
}

func (r *enabledServiceRepository) ListAll(ctx context.Context, orgID uuid.UUID) ([]*model.EnabledService, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM enabled_services
		WHERE organization_id = $1
		ORDER BY service_code
	`
	var services []*model.EnabledService
	if err := r.db.SelectContext(ctx, &services, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list enabled services: %w", err)
	}
	return services, nil
}

func (r *enabledServiceRepository) CountActive(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM enabled_services WHERE organization_id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &count, query, orgID); err != nil {
		return 0, fmt.Errorf("failed to count enabled services: %w", err)
	}
	return count, nil
}

// CountOrphans counts active services whose parent facility is missing,
// tombstoned, or belongs to a different organization. Any non-zero result
// fails the post-merge integrity check.
func (r *enabledServiceRepository) CountOrphans(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM enabled_services s
		LEFT JOIN facility_locations f
			ON f.id = s.facility_id AND f.deleted_at IS NULL
		WHERE s.organization_id = $1 AND s.deleted_at IS NULL
		AND (f.id IS NULL OR f.organization_id <> s.organization_id)
	`
	if err := r.db.GetContext(ctx, &count, query, orgID); err != nil {
		return 0, fmt.Errorf("failed to count orphaned services: %w", err)
	}
	return count, nil
}

func (r *enabledServiceRepository) PurgeTombstonedByKeys(ctx context.Context, orgID uuid.UUID, keys []repository.ServiceKey) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)*3+1)
	args = append(args, orgID)
	for i, key := range keys {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", i*3+2, i*3+3, i*3+4))
		args = append(args, key.RegistryCode, key.SedeNumber, key.ServiceCode)
	}

	query := fmt.Sprintf(`
		DELETE FROM enabled_services s
		USING facility_locations f
		WHERE f.id = s.facility_id
		AND s.organization_id = $1 AND s.deleted_at IS NOT NULL
		AND (f.registry_code, f.sede_number, s.service_code) IN (%s)
	`, strings.Join(placeholders, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstoned services: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

func (r *enabledServiceRepository) DeleteAll(ctx context.Context, orgID uuid.UUID) error {
	query := `DELETE FROM enabled_services WHERE organization_id = $1`
	if _, err := r.db.ExecContext(ctx, query, orgID); err != nil {
		return fmt.Errorf("failed to delete enabled services: %w", err)
	}
	return nil
}
