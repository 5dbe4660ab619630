package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all persisted models
type Base struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the record carries a soft-delete tombstone.
func (b *Base) IsDeleted() bool {
	return b.DeletedAt != nil
}

// Audit carries acting-user attribution for create/update operations.
type Audit struct {
	CreatedBy string `json:"created_by" db:"created_by"`
	UpdatedBy string `json:"updated_by" db:"updated_by"`
}

// TriState is the canonical form of the portal's free-text yes/no fields.
type TriState string

const (
	TriStateYes     TriState = "yes"
	TriStateNo      TriState = "no"
	TriStateUnknown TriState = "unknown"
)

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
