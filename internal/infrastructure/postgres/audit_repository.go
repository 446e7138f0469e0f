package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-market/meetup-hub/internal/domain/audit"
)

// AuditRepository implements audit.Repository.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, entry *audit.AuditLog) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs
		(audit_id, entity_type, entity_id, action, event, actor, actor_roles, old_values, new_values, reason, risk_level, signature, trace_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id
	`, entry.AuditID, entry.EntityType, entry.EntityID, entry.Action, entry.Event, entry.Actor, entry.ActorRoles,
		nullJSON(entry.OldValues), nullJSON(entry.NewValues), entry.Reason, entry.RiskLevel, entry.Signature, entry.TraceID, entry.CreatedAt).Scan(&entry.ID)
}

func (r *AuditRepository) GetByEntityID(ctx context.Context, entityType audit.EntityType, entityID string) ([]*audit.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, audit_id, entity_type, entity_id, action, event, actor, actor_roles, old_values, new_values, reason, risk_level, signature, trace_id, created_at
		FROM audit_logs WHERE entity_type=$1 AND entity_id=$2
		ORDER BY created_at DESC, id DESC
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*audit.AuditLog, 0)
	for rows.Next() {
		var l audit.AuditLog
		var oldValues, newValues []byte
		if err := rows.Scan(&l.ID, &l.AuditID, &l.EntityType, &l.EntityID, &l.Action, &l.Event, &l.Actor, &l.ActorRoles,
			&oldValues, &newValues, &l.Reason, &l.RiskLevel, &l.Signature, &l.TraceID, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.OldValues = oldValues
		l.NewValues = newValues
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
