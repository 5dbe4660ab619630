package model

import (
	"time"

	"github.com/google/uuid"
)

// Complexity is the canonical habilitation complexity level of a service.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// EnabledService is a healthcare service authorized at a facility location.
// The parent facility must belong to the same organization.
type EnabledService struct {
	Base
	Audit
	FacilityID       uuid.UUID  `json:"facility_id" db:"facility_id"`
	OrganizationID   uuid.UUID  `json:"organization_id" db:"organization_id"`
	ServiceCode      string     `json:"service_code" db:"service_code"`
	ServiceName      string     `json:"service_name" db:"service_name"`
	ServiceGroup     string     `json:"service_group" db:"service_group"`
	Complexity       Complexity `json:"complexity" db:"complexity"`
	Ambulatory       TriState   `json:"ambulatory" db:"ambulatory"`
	Hospital         TriState   `json:"hospital" db:"hospital"`
	MobileUnit       TriState   `json:"mobile_unit" db:"mobile_unit"`
	Domiciliary      TriState   `json:"domiciliary" db:"domiciliary"`
	Telemedicine     TriState   `json:"telemedicine" db:"telemedicine"`
	HabilitationDate *time.Time `json:"habilitation_date,omitempty" db:"habilitation_date"`
	Capacity         int        `json:"capacity" db:"capacity"`
}
