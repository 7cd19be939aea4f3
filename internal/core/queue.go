package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconcile is the function the Worker drains the queue into. Reconciler.Run
// satisfies this signature.
type Reconcile func(ctx context.Context, packageName string) error

// Worker is the single-consumer FIFO queue with set semantics (§4.H): a
// background task processes one package name at a time, and enqueueing a
// name already queued is a no-op.
type Worker struct {
	mu             sync.Mutex
	cond           *sync.Cond
	queue          []string
	queued         map[string]bool
	currentPackage string
	running        bool

	reconcile Reconcile
	log       *zap.Logger
}

// NewWorker constructs a Worker that runs reconcile for each dequeued
// package name. log defaults to a no-op logger if nil.
func NewWorker(reconcile Reconcile, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Worker{
		queued:    make(map[string]bool),
		reconcile: reconcile,
		log:       log,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// TriggerUpdate enqueues name if it isn't already waiting in the queue (a
// name that is currently being reconciled is queued again), and
// (re)spawns the background worker task if it isn't currently running
// (§4.H, §5).
func (w *Worker) TriggerUpdate(ctx context.Context, name string) {
	w.mu.Lock()
	if !w.queued[name] {
		w.queue = append(w.queue, name)
		w.queued[name] = true
	}
	spawn := !w.running
	if spawn {
		w.running = true
	}
	w.cond.Signal()
	w.mu.Unlock()

	if spawn {
		go w.loop(ctx)
	}
}

// IsScheduledForUpdate reports whether name is currently being reconciled or
// is waiting in the queue (§4.H).
func (w *Worker) IsScheduledForUpdate(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentPackage == name || w.queued[name]
}

// CheckAllForNewVersions enqueues every known package name (§4.H). Intended
// to be invoked by an external periodic timer; RunPeriodicSweep below is a
// convenience helper for hosts that want the engine to own that timer.
func (w *Worker) CheckAllForNewVersions(ctx context.Context, names []string) {
	for _, name := range names {
		w.TriggerUpdate(ctx, name)
	}
}

// RunPeriodicSweep calls CheckAllForNewVersions every interval until ctx is
// canceled. listNames is typically DbController.GetAllPackageNames.
func (w *Worker) RunPeriodicSweep(ctx context.Context, interval time.Duration, listNames func(ctx context.Context) ([]string, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			names, err := listNames(ctx)
			if err != nil {
				w.log.Warn("periodic sweep: failed to list package names", zap.Error(err))
				continue
			}
			w.CheckAllForNewVersions(ctx, names)
		}
	}
}

// loop is the worker's only consumer goroutine: pop front, reconcile,
// repeat, blocking on the condition variable while the queue is empty
// (§4.H, §5).
func (w *Worker) loop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	for {
		w.mu.Lock()
		for len(w.queue) == 0 {
			w.cond.Wait()
		}
		name := w.queue[0]
		w.queue = w.queue[1:]
		delete(w.queued, name)
		w.currentPackage = name
		w.mu.Unlock()

		w.runOne(ctx, name)

		w.mu.Lock()
		w.currentPackage = ""
		w.mu.Unlock()
	}
}

// runOne invokes the Reconciler for name, logging and swallowing any error
// that escapes so the worker never dies (§4.H step 2, §7).
func (w *Worker) runOne(ctx context.Context, name string) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Warn("reconciler panicked", zap.String("package", name), zap.Any("recover", r))
		}
	}()

	if err := w.reconcile(ctx, name); err != nil {
		w.log.Warn("reconciler run failed", zap.String("package", name), zap.Error(err))
	}
}
