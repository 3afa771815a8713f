package relstore

import (
	"context"
	"encoding/json"
	"log/slog"
)

// writeAudit logs a mutation. Grounded on original_source's
// log_code_version best-effort pattern: a failure here is logged and
// swallowed so it never fails the triggering operation.
func (s *Store) writeAudit(ctx context.Context, projectID, actor, action, entity, entityID string, before, after any) error {
	var beforeRaw, afterRaw []byte
	var err error
	if before != nil {
		if beforeRaw, err = json.Marshal(before); err != nil {
			slog.Warn("failed to marshal audit 'before' payload", "error", err)
			beforeRaw = nil
		}
	}
	if after != nil {
		if afterRaw, err = json.Marshal(after); err != nil {
			slog.Warn("failed to marshal audit 'after' payload", "error", err)
			afterRaw = nil
		}
	}

	_, execErr := s.Pool.Exec(ctx, `
		INSERT INTO audit_log (project_id, actor, action, entity, entity_id, before, after)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, projectID, actor, action, entity, entityID, beforeRaw, afterRaw)
	if execErr != nil {
		slog.Warn("failed to write audit log entry, continuing", "entity", entity, "action", action, "error", execErr)
		return nil
	}
	return nil
}

// AuditEntry is a row returned by ListAudit, used by the reports
// surface and by tests asserting on the audit trail.
type AuditEntry struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
}

// ListAudit returns the most recent audit entries for a project,
// newest first.
func (s *Store) ListAudit(ctx context.Context, projectID string, limit int) ([]AuditEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT actor, action, entity, COALESCE(entity_id, '')
		FROM audit_log WHERE project_id = $1 ORDER BY ts DESC LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.Actor, &e.Action, &e.Entity, &e.EntityID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
