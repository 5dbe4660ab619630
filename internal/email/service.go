package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/regsalud/reps-sync/internal/config"
	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/pkg/logger"
)

// Service delivers operator alerts over SMTP. It implements the sync
// package's Notifier interface.
type Service struct {
	dialer *gomail.Dialer
	from   string
	to     []string
	logger *logger.Logger
}

func NewService(cfg config.SMTPConfig, l *logger.Logger) *Service {
	return &Service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		to:     cfg.AlertsTo,
		logger: l.WithComponent("email"),
	}
}

// NotifyCriticalFailure alerts the on-call operator that a rollback failed
// and the organization's catalog may be partially mutated.
func (s *Service) NotifyCriticalFailure(_ context.Context, run *model.SyncRun) error {
	if len(s.to) == 0 {
		s.logger.Warn("no alert recipients configured, skipping critical failure email",
			"run_id", run.ID.String())
		return nil
	}

	subject := fmt.Sprintf("[reps-sync] CRITICAL: rollback failed for organization %s", run.OrganizationID)

	var body strings.Builder
	fmt.Fprintf(&body, "Synchronization run %s ended in status %s.\n\n", run.ID, run.Status)
	fmt.Fprintf(&body, "Organization: %s\n", run.OrganizationID)
	if run.BackupID != nil {
		fmt.Fprintf(&body, "Backup snapshot: %s\n", run.BackupID)
	}
	fmt.Fprintf(&body, "Started: %s\nEnded: %s\n\n", run.StartTime, run.EndTime)
	body.WriteString("The backup restore did not complete; the organization's catalog may be\n")
	body.WriteString("partially mutated and requires a manual data audit.\n\nErrors:\n")
	for _, e := range run.Errors {
		fmt.Fprintf(&body, "  - %s\n", e)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send critical failure alert: %w", err)
	}
	return nil
}
