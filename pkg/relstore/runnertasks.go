package relstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/qualcode/nucleus/pkg/domain"
)

// UpsertRunnerTask mirrors the full task (including its nested
// input/cursor/counters) into the relational store as the queue-claim
// anchor; the tenant artifact store separately holds the JSON
// checkpoint used for resume.
func (s *Store) UpsertRunnerTask(ctx context.Context, t domain.RunnerTask) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO runner_tasks (task_id, project_id, resumed_from, owner_user, owner_org, status, payload, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		ON CONFLICT (task_id) DO UPDATE SET
			status = EXCLUDED.status, payload = EXCLUDED.payload, updated_at = now()
	`, t.TaskID, t.Input.Project, nullIfEmpty(t.ResumedFrom), t.OwnerUser, t.OwnerOrg, t.Status, payload)
	return err
}

// FetchRunnerTask loads a task by id.
func (s *Store) FetchRunnerTask(ctx context.Context, taskID string) (*domain.RunnerTask, error) {
	var payload []byte
	err := s.Pool.QueryRow(ctx, `SELECT payload FROM runner_tasks WHERE task_id = $1`, taskID).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var t domain.RunnerTask
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ClaimPendingTask atomically claims the oldest pending task across all
// projects using FOR UPDATE SKIP LOCKED, mirroring the teacher's
// worker-pool claim query so multiple runner workers never race on the
// same task.
func (s *Store) ClaimPendingTask(ctx context.Context) (*domain.RunnerTask, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var taskID string
	var payload []byte
	err = tx.QueryRow(ctx, `
		SELECT task_id, payload FROM runner_tasks
		WHERE status = 'pending'
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&taskID, &payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var t domain.RunnerTask
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, err
	}
	t.Status = domain.RunnerRunning

	newPayload, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE runner_tasks SET status = 'running', payload = $2, updated_at = now() WHERE task_id = $1
	`, taskID, newPayload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &t, nil
}
