package model

import (
	"time"

	"github.com/google/uuid"
)

// SedeType classifies a facility location within its organization.
type SedeType string

const (
	SedeTypePrincipal    SedeType = "principal"
	SedeTypeSatellite    SedeType = "satellite"
	SedeTypeMobile       SedeType = "mobile"
	SedeTypeDomiciliary  SedeType = "domiciliary"
	SedeTypeTelemedicine SedeType = "telemedicine"
)

// Sync outcome recorded on the entity after each run that touched it.
const (
	SyncStatusImported = "imported"
	SyncStatusUpdated  = "updated"
	SyncStatusSkipped  = "skipped"
	SyncStatusError    = "error"
)

// FacilityLocation is a physical site ("sede") of a healthcare provider
// organization. RegistryCode plus SedeNumber form the natural key issued
// by the REPS portal; it is unique per organization among active records.
type FacilityLocation struct {
	Base
	Audit
	OrganizationID     uuid.UUID  `json:"organization_id" db:"organization_id"`
	RegistryCode       string     `json:"registry_code" db:"registry_code"`
	SedeNumber         string     `json:"sede_number" db:"sede_number"`
	Name               string     `json:"name" db:"name"`
	SedeType           SedeType   `json:"sede_type" db:"sede_type"`
	DepartmentCode     string     `json:"department_code" db:"department_code"`
	DepartmentName     string     `json:"department_name" db:"department_name"`
	MunicipalityCode   string     `json:"municipality_code" db:"municipality_code"`
	MunicipalityName   string     `json:"municipality_name" db:"municipality_name"`
	Address            string     `json:"address" db:"address"`
	Phone              string     `json:"phone" db:"phone"`
	Email              string     `json:"email" db:"email"`
	HabilitationStatus string     `json:"habilitation_status" db:"habilitation_status"`
	IsMainFacility     bool       `json:"is_main_facility" db:"is_main_facility"`
	LastSyncStatus     string     `json:"last_sync_status" db:"last_sync_status"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
}

// NaturalKey identifies a facility independently of its internal id.
type NaturalKey struct {
	RegistryCode string
	SedeNumber   string
}

func (f *FacilityLocation) NaturalKey() NaturalKey {
	return NaturalKey{RegistryCode: f.RegistryCode, SedeNumber: f.SedeNumber}
}
