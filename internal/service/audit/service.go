package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/repository"
	"github.com/regsalud/reps-sync/pkg/logger"
)

// Service records attribution entries for pipeline mutations. Audit
// failures are logged but never fail the calling operation.
type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, l *logger.Logger) *Service {
	return &Service{repo: repo, logger: l.WithComponent("audit")}
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, orgID uuid.UUID, actingUser, action, entityType string, entityID uuid.UUID, changes interface{}) {
	var raw json.RawMessage
	if changes != nil {
		b, err := json.Marshal(changes)
		if err != nil {
			s.logger.Error(err, "failed to marshal audit changes")
		} else {
			raw = b
		}
	}

	entry := &model.AuditLog{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ActingUser:     actingUser,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		Changes:        raw,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit log",
			"action", action, "entity_type", entityType)
	}
}
