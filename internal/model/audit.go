package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	ActingUser     string          `json:"acting_user" db:"acting_user"`
	Action         string          `json:"action" db:"action"`
	EntityType     string          `json:"entity_type" db:"entity_type"`
	EntityID       uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes        json.RawMessage `json:"changes" db:"changes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionPurge    = "purge"
	AuditActionSync     = "sync"
	AuditActionRollback = "rollback"

	// Entity types
	AuditEntityFacility = "facility_location"
	AuditEntityService  = "enabled_service"
	AuditEntityBackup   = "backup_snapshot"
	AuditEntitySyncRun  = "sync_run"
)
