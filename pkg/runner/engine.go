// Package runner is the Semantic-Runner (C9): a resumable, checkpointed
// walk over a project's interviews that suggests and submits candidate
// codes, tracking saturation.
//
// Grounded on the platform queue package's poll/claim/heartbeat worker
// loop (pkg/queue/{pool,worker}.go: FOR UPDATE SKIP LOCKED claim,
// cancel-function registry, jittered poll interval, graceful shutdown)
// generalized from session execution to runner-task execution, and on
// original_source backend/routers/coding.py's checkpoint/resume/
// saturation algorithm (lines ~635-900).
package runner

import (
	"context"
	"log/slog"

	"github.com/qualcode/nucleus/pkg/config"
	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/ledger"
	"github.com/qualcode/nucleus/pkg/llmgateway"
	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/pkg/tenantstore"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

// Engine executes one runner task at a time, single-threaded within
// the task, driving C3/C4(via ledger)/C7(via ledger)/C10 and
// persisting through C1/C2.
type Engine struct {
	rel       *relstore.Store
	vec       *vectorstore.Store
	ledger    *ledger.Ledger
	llm       *llmgateway.Gateway
	artifacts *tenantstore.Store
	defaults  config.RunnerDefaults
	log       *slog.Logger
}

// NewEngine builds an Engine over already-constructed store clients.
func NewEngine(rel *relstore.Store, vec *vectorstore.Store, led *ledger.Ledger, llm *llmgateway.Gateway, artifacts *tenantstore.Store, defaults config.RunnerDefaults, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{rel: rel, vec: vec, ledger: led, llm: llm, artifacts: artifacts, defaults: defaults, log: log}
}

// runState is the full resumable state threaded through one RunTask
// call — the in-memory mirror of what gets serialised into a
// domain.Checkpoint after every successful step.
type runState struct {
	task           *domain.RunnerTask
	org            string
	unionGlobal    map[string]domain.UnionEntry
	visitedGlobal  map[string]bool
	knownCodes     map[string]bool
	interviews     []string
}

// RunTask drives one task from its current cursor to completion,
// saturation, or a fatal error, checkpointing after every step.
// Cancellation is cooperative: the caller's ctx is checked between
// steps, never interrupted mid-step.
func (e *Engine) RunTask(ctx context.Context, task *domain.RunnerTask, org string) error {
	st := &runState{
		task:          task,
		org:           org,
		unionGlobal:   make(map[string]domain.UnionEntry),
		knownCodes:    make(map[string]bool),
		visitedGlobal: make(map[string]bool),
	}

	if task.ResumedFrom != "" {
		if err := e.loadCheckpoint(ctx, st); err != nil {
			e.log.Warn("runner: could not load prior checkpoint, starting fresh", "task_id", task.TaskID, "resumed_from", task.ResumedFrom, "error", err)
		}
	}

	pendingBefore, _ := e.rel.CountPending(ctx, task.Input.Project)

	interviews, err := e.resolveInterviews(ctx, st)
	if err != nil {
		task.Status = domain.RunnerError
		task.Errors = append(task.Errors, err.Error())
		e.checkpoint(ctx, st)
		return err
	}
	st.interviews = interviews
	task.Counters.TotalSteps = task.Input.StepsPerInterview * len(interviews)

	e.checkpoint(ctx, st) // startup checkpoint

	startIdx := task.Cursor.InterviewIndex
	for idx := startIdx; idx < len(interviews); idx++ {
		if ctx.Err() != nil {
			task.Message = "cancelled"
			e.checkpoint(ctx, st)
			return ctx.Err()
		}

		archivo := interviews[idx]
		saturated, err := e.runInterview(ctx, st, idx, archivo)
		if err != nil {
			task.Status = domain.RunnerError
			task.Errors = append(task.Errors, err.Error())
			e.checkpoint(ctx, st)
			return err
		}
		if saturated {
			task.Status = domain.RunnerSaturated
			task.Counters.Saturated = true
			task.Message = "Saturación detectada"
			break
		}
	}

	if task.Status != domain.RunnerSaturated {
		task.Status = domain.RunnerCompleted
	}

	pendingAfter, _ := e.rel.CountPending(ctx, task.Input.Project)
	e.writePostMortem(ctx, st, pendingBefore, pendingAfter)
	e.checkpoint(ctx, st)
	return nil
}

// resolveInterviews orders the project's interviews per the requested
// policy, optionally rotating a requested/resumed archivo to the
// front, and bounds the list to max_interviews.
func (e *Engine) resolveInterviews(ctx context.Context, st *runState) ([]string, error) {
	order := ledger.SamplingOrder(st.task.Input.InterviewOrder)
	if order == "" {
		order = ledger.OrderIngestDesc
	}

	rankings, err := e.ledger.ListAvailableInterviews(ctx, st.task.Input.Project, order, ledger.DefaultSamplingWeights)
	if err != nil {
		return nil, err
	}

	archivos := make([]string, len(rankings))
	for i, r := range rankings {
		archivos[i] = r.Archivo
	}

	startArchivo := st.task.Cursor.Archivo
	if startArchivo == "" {
		if v, ok := st.task.Input.Filters["start_archivo"].(string); ok {
			startArchivo = v
		}
	}
	if startArchivo != "" {
		archivos = rotateToFront(archivos, startArchivo)
	}

	if st.task.Input.MaxInterviews > 0 && len(archivos) > st.task.Input.MaxInterviews {
		archivos = archivos[:st.task.Input.MaxInterviews]
	}
	return archivos, nil
}

func rotateToFront(items []string, target string) []string {
	idx := -1
	for i, v := range items {
		if v == target {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return items
	}
	return append(append([]string{}, items[idx:]...), items[:idx]...)
}
