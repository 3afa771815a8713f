package runner

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/qualcode/nucleus/pkg/domain"
)

const (
	pollBase   = 3 * time.Second
	pollJitter = 1 * time.Second
	errorSleep = 1 * time.Second
)

var errNoTaskAvailable = errors.New("no pending runner task available")

// Worker polls for a claimable runner task and drives it to
// completion, grounded on the platform queue package's poll/claim/
// heartbeat worker loop generalized from sessions to runner tasks.
type Worker struct {
	id     string
	podID  string
	engine *Engine
	pool   *taskRegistry
	log    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newWorker(id, podID string, engine *Engine, pool *taskRegistry, log *slog.Logger) *Worker {
	return &Worker{id: id, podID: podID, engine: engine, pool: pool, log: log, stopCh: make(chan struct{})}
}

func (w *Worker) start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Worker) stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := w.log.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("runner worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("runner worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, runner worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, errNoTaskAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing runner task", "error", err)
				w.sleep(errorSleep)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollInterval() time.Duration {
	jitter := time.Duration(rand.Int64N(int64(2 * pollJitter)))
	return pollBase - pollJitter + jitter
}

// pollAndProcess claims one pending task (FOR UPDATE SKIP LOCKED via
// relstore), registers its cancel function, and runs it to a terminal
// status.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	task, err := w.engine.rel.ClaimPendingTask(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errNoTaskAvailable
		}
		return err
	}
	if task == nil {
		return errNoTaskAvailable
	}

	log := w.log.With("task_id", task.TaskID, "worker_id", w.id)
	log.Info("runner task claimed")

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.pool.register(task.TaskID, cancel)
	defer w.pool.unregister(task.TaskID)

	task.Status = domain.RunnerRunning
	if err := w.engine.RunTask(taskCtx, task, task.OwnerOrg); err != nil {
		log.Error("runner task ended with error", "error", err)
	} else {
		log.Info("runner task finished", "status", task.Status)
	}
	return nil
}
