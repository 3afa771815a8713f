package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/qualcode/nucleus/pkg/config"
)

// Pool manages a pool of Semantic-Runner workers on one process,
// grounded on the platform queue package's WorkerPool: fixed worker
// count, idempotent Start, graceful Stop, and a shared cancel
// registry reachable from outside the pool (task-cancellation API).
type Pool struct {
	podID    string
	engine   *Engine
	defaults config.RunnerDefaults
	log      *slog.Logger

	workers  []*Worker
	registry *taskRegistry

	started bool
	mu      sync.Mutex
}

// NewPool builds a Pool bound to the given Engine.
func NewPool(podID string, engine *Engine, defaults config.RunnerDefaults, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if defaults.WorkerCount <= 0 {
		defaults.WorkerCount = 1
	}
	return &Pool{
		podID:    podID,
		engine:   engine,
		defaults: defaults,
		log:      log,
		registry: newTaskRegistry(),
	}
}

// Start spawns the configured number of worker goroutines. Safe to
// call more than once; later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		p.log.Warn("runner pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return
	}
	p.started = true

	p.log.Info("starting semantic-runner pool", "pod_id", p.podID, "worker_count", p.defaults.WorkerCount)
	for i := 0; i < p.defaults.WorkerCount; i++ {
		w := newWorker(fmt.Sprintf("%s-runner-%d", p.podID, i), p.podID, p.engine, p.registry, p.log)
		p.workers = append(p.workers, w)
		w.start(ctx)
	}
}

// Stop signals every worker to finish its current task and return,
// then waits for all of them.
func (p *Pool) Stop() {
	active := p.registry.activeIDs()
	if len(active) > 0 {
		p.log.Info("waiting for active runner tasks to complete", "count", len(active), "task_ids", active)
	}
	for _, w := range p.workers {
		w.stop()
	}
}

// Cancel requests cooperative cancellation of a task running on this
// pod. Returns false if the task isn't owned by this pod's registry
// (it may be running on another pod, or already finished).
func (p *Pool) Cancel(taskID string) bool {
	return p.registry.Cancel(taskID)
}
