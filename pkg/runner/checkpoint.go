package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/tenantstore"
)

func checkpointLogicalPath(taskID string) string {
	return fmt.Sprintf("logs/runner_checkpoints/%s.json", taskID)
}

func reportLogicalPath(taskID string) string {
	return fmt.Sprintf("reports/runner/%s.json", taskID)
}

// buildCheckpoint snapshots the in-memory run state into the durable
// checkpoint contract.
func buildCheckpoint(st *runState) domain.Checkpoint {
	unions := make([]domain.UnionEntry, 0, len(st.unionGlobal))
	for _, u := range st.unionGlobal {
		unions = append(unions, u)
	}
	visitedIDs := make([]string, 0, len(st.visitedGlobal))
	for id := range st.visitedGlobal {
		visitedIDs = append(visitedIDs, id)
	}

	return domain.Checkpoint{
		Auth:              domain.CheckpointAuth{User: st.task.OwnerUser, Org: st.org},
		Status:            st.task.Status,
		Req:               st.task.Input,
		Archivos:          st.interviews,
		VisitedSeedsGlobal: domain.CapVisited(visitedIDs),
		VisitedSeedIDs:     domain.CapVisited(visitedIDs),
		UnionByIDGlobal:    unions,
		Iterations:        st.task.Counters.CurrentStep,
		CandidatesTotal:   st.task.Counters.CandidatesSubmitted,
		MemosSaved:        st.task.Counters.MemosSaved,
		LLMCalls:          st.task.Counters.LLMCalls,
		LLMFailures:       st.task.Counters.LLMFailures,
		QdrantFailures:    st.task.Counters.QdrantFailures,
		QdrantRetries:     st.task.Counters.QdrantRetries,
		LastSuggestedCode: st.task.LastSuggestedCode,
		Saturated:         st.task.Counters.Saturated,
		Cursor:            st.task.Cursor,
	}
}

// checkpoint persists both the queryable relational task row (C2) and
// the full resumable checkpoint blob (C1), best-effort on the blob
// write — a dropped checkpoint write degrades resume fidelity, it
// does not corrupt the task's own status.
func (e *Engine) checkpoint(ctx context.Context, st *runState) {
	st.task.UpdatedAt = time.Now()
	if err := e.rel.UpsertRunnerTask(ctx, *st.task); err != nil {
		e.log.Warn("runner: task upsert failed", "task_id", st.task.TaskID, "error", err)
	}

	cp := buildCheckpoint(st)
	data, err := json.Marshal(cp)
	if err != nil {
		e.log.Warn("runner: checkpoint marshal failed", "task_id", st.task.TaskID, "error", err)
		return
	}
	if _, err := e.artifacts.Put(ctx, st.org, st.task.Input.Project, checkpointLogicalPath(st.task.TaskID), data, "application/json", false); err != nil {
		e.log.Warn("runner: checkpoint write failed", "task_id", st.task.TaskID, "error", err)
	}
}

// loadCheckpoint restores a resumed task's in-memory state from the
// prior task id's checkpoint blob.
func (e *Engine) loadCheckpoint(ctx context.Context, st *runState) error {
	key := tenantstore.ProjectPrefix(st.org, st.task.Input.Project) + checkpointLogicalPath(st.task.ResumedFrom)
	data, err := e.artifacts.Get(ctx, key)
	if err != nil {
		return err
	}
	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return err
	}

	for _, u := range cp.UnionByIDGlobal {
		st.unionGlobal[u.FragmentID] = u
	}
	for _, id := range cp.VisitedSeedIDs {
		st.visitedGlobal[id] = true
	}
	st.task.Cursor = cp.Cursor
	st.task.Counters.CurrentStep = cp.Iterations
	st.task.Counters.CandidatesSubmitted = cp.CandidatesTotal
	st.task.Counters.MemosSaved = cp.MemosSaved
	st.task.Counters.LLMCalls = cp.LLMCalls
	st.task.Counters.LLMFailures = cp.LLMFailures
	st.task.Counters.QdrantFailures = cp.QdrantFailures
	st.task.Counters.QdrantRetries = cp.QdrantRetries
	st.task.Counters.VisitedSeeds = len(st.visitedGlobal)
	st.task.Counters.UniqueSuggestions = len(st.unionGlobal)
	st.task.LastSuggestedCode = cp.LastSuggestedCode
	return nil
}

// postMortem is the post-run report artifact written under C1's
// reports prefix, read back by C11.
type postMortem struct {
	TaskID         string               `json:"task_id"`
	Status         domain.RunnerStatus  `json:"status"`
	PendingBefore  int                  `json:"pending_before"`
	PendingAfter   int                  `json:"pending_after"`
	Counters       domain.RunnerCounters `json:"counters"`
	Errors         []string             `json:"errors,omitempty"`
	CheckpointPath string               `json:"checkpoint_path"`
}

func (e *Engine) writePostMortem(ctx context.Context, st *runState, pendingBefore, pendingAfter int) {
	report := postMortem{
		TaskID:         st.task.TaskID,
		Status:         st.task.Status,
		PendingBefore:  pendingBefore,
		PendingAfter:   pendingAfter,
		Counters:       st.task.Counters,
		Errors:         st.task.Errors,
		CheckpointPath: checkpointLogicalPath(st.task.TaskID),
	}
	data, err := json.Marshal(report)
	if err != nil {
		e.log.Warn("runner: post-mortem marshal failed", "task_id", st.task.TaskID, "error", err)
		return
	}
	if _, err := e.artifacts.Put(ctx, st.org, st.task.Input.Project, reportLogicalPath(st.task.TaskID), data, "application/json", false); err != nil {
		e.log.Warn("runner: post-mortem write failed", "task_id", st.task.TaskID, "error", err)
	}
}
