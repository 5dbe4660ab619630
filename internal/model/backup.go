package model

import (
	"time"

	"github.com/google/uuid"
)

// BackupSnapshot is an immutable serialization of one organization's full
// facility and service sets, captured before a synchronization run mutates
// anything. Consumed destructively on rollback.
type BackupSnapshot struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Payload        []byte    `json:"-" db:"payload"`
	CreatedBy      string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// BackupPayload is the JSON body stored inside a snapshot.
type BackupPayload struct {
	Facilities []*FacilityLocation `json:"facilities"`
	Services   []*EnabledService   `json:"services"`
}
