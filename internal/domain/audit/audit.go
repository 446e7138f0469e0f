package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityType represents the type of entity being audited
type EntityType string

const (
	EntityTypeTransaction  EntityType = "TRANSACTION"
	EntityTypeConversation EntityType = "CONVERSATION"
	EntityTypeUser         EntityType = "USER"
)

// Action represents the type of action being audited
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionTransition Action = "TRANSITION"
	ActionResolve    Action = "RESOLVE"
	ActionReopen     Action = "REOPEN"
	ActionRegister   Action = "REGISTER"
	ActionLogin      Action = "LOGIN"
	ActionLogout     Action = "LOGOUT"
)

// RiskLevel represents the risk classification of an operation
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID         int64           `json:"id"`
	AuditID    uuid.UUID       `json:"auditId"`
	EntityType EntityType      `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     Action          `json:"action"`
	Event      string          `json:"event,omitempty"`
	Actor      string          `json:"actor"`
	ActorRoles []string        `json:"actorRoles,omitempty"`
	OldValues  json.RawMessage `json:"oldValues,omitempty"`
	NewValues  json.RawMessage `json:"newValues,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	RiskLevel  RiskLevel       `json:"riskLevel"`
	Signature  []byte          `json:"signature,omitempty"`
	TraceID    string          `json:"traceId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// AuditEntry is the input for creating an audit log.
type AuditEntry struct {
	EntityType EntityType
	EntityID   string
	Action     Action
	Event      string
	Actor      string
	ActorRoles []string
	OldValues  interface{}
	NewValues  interface{}
	Reason     string
	TraceID    string
}

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, entry *AuditLog) error
	// GetByEntityID returns the entity's history, newest first.
	GetByEntityID(ctx context.Context, entityType EntityType, entityID string) ([]*AuditLog, error)
}

// DetermineRiskLevel classifies an operation.
func DetermineRiskLevel(entityType EntityType, action Action) RiskLevel {
	switch {
	case action == ActionResolve:
		return RiskLevelHigh
	case entityType == EntityTypeUser:
		return RiskLevelMedium
	case action == ActionReopen:
		return RiskLevelMedium
	}
	return RiskLevelLow
}

// NewAuditLog creates a new AuditLog from an AuditEntry.
// CreatedAt is truncated to the microsecond precision Postgres stores so the
// signature still verifies after a round trip.
func NewAuditLog(entry *AuditEntry) (*AuditLog, error) {
	log := &AuditLog{
		AuditID:    uuid.New(),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		Event:      entry.Event,
		Actor:      entry.Actor,
		ActorRoles: entry.ActorRoles,
		Reason:     entry.Reason,
		TraceID:    entry.TraceID,
		RiskLevel:  DetermineRiskLevel(entry.EntityType, entry.Action),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	if entry.OldValues != nil {
		data, err := json.Marshal(entry.OldValues)
		if err != nil {
			return nil, err
		}
		log.OldValues = data
	}
	if entry.NewValues != nil {
		data, err := json.Marshal(entry.NewValues)
		if err != nil {
			return nil, err
		}
		log.NewValues = data
	}

	return log, nil
}
