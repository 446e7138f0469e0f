package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/audit"
)

// Service handles audit log operations
type Service struct {
	repo    audit.Repository
	logger  zerolog.Logger
	signKey []byte
}

// NewService creates a new audit service
func NewService(repo audit.Repository, logger zerolog.Logger, signKey []byte) *Service {
	return &Service{
		repo:    repo,
		signKey: signKey,
		logger:  logger.With().Str("service", "audit").Logger(),
	}
}

// Log creates a new audit log entry asynchronously
func (s *Service) Log(ctx context.Context, entry *audit.AuditEntry) {
	go func() {
		if err := s.LogSync(context.WithoutCancel(ctx), entry); err != nil {
			s.logger.Error().Err(err).
				Str("entityType", string(entry.EntityType)).
				Str("entityId", entry.EntityID).
				Str("action", string(entry.Action)).
				Msg("failed to create audit log")
		}
	}()
}

// LogSync creates a new audit log entry synchronously
func (s *Service) LogSync(ctx context.Context, entry *audit.AuditEntry) error {
	auditLog, err := audit.NewAuditLog(entry)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	if len(s.signKey) > 0 {
		sig, err := audit.SignAuditLog(auditLog, s.signKey)
		if err != nil {
			return fmt.Errorf("failed to sign audit log: %w", err)
		}
		auditLog.Signature = sig
	}

	if err := s.repo.Create(ctx, auditLog); err != nil {
		return fmt.Errorf("failed to save audit log: %w", err)
	}

	s.logger.Debug().
		Str("auditId", auditLog.AuditID.String()).
		Str("entityType", string(auditLog.EntityType)).
		Str("entityId", auditLog.EntityID).
		Str("action", string(auditLog.Action)).
		Str("event", auditLog.Event).
		Str("actor", auditLog.Actor).
		Msg("audit log created")

	if auditLog.RiskLevel == audit.RiskLevelHigh {
		s.logger.Warn().
			Str("auditId", auditLog.AuditID.String()).
			Str("entityType", string(auditLog.EntityType)).
			Str("entityId", auditLog.EntityID).
			Str("action", string(auditLog.Action)).
			Str("actor", auditLog.Actor).
			Msg("high-risk operation recorded")
	}

	return nil
}

// GetEntityHistory retrieves the complete audit history for an entity
func (s *Service) GetEntityHistory(ctx context.Context, entityType audit.EntityType, entityID string) ([]*audit.AuditLog, error) {
	logs, err := s.repo.GetByEntityID(ctx, entityType, entityID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("entityType", string(entityType)).
			Str("entityId", entityID).
			Msg("failed to get entity history")
		return nil, fmt.Errorf("failed to get entity history: %w", err)
	}
	if len(s.signKey) > 0 {
		for _, l := range logs {
			if len(l.Signature) == 0 {
				continue
			}
			if ok, err := audit.VerifyAuditLogSignature(l, s.signKey); err != nil || !ok {
				s.logger.Warn().
					Str("auditId", l.AuditID.String()).
					Msg("audit log signature mismatch")
			}
		}
	}
	return logs, nil
}
