// Package taskpool provides a priority worker pool: the external collaborator
// the rest of the core submits async work to. The reference implementation
// hosts its workers as supervised goakt actors, mirroring the actor-per-unit-
// of-work style the rest of this repository's actor system uses.
package taskpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tochemey/goakt/v3/actor"
	"go.uber.org/zap"
)

// Priority is one of the four tiers callers may submit work at.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

var priorities = [...]Priority{Critical, High, Normal, Low}

// Task is a unit of work submitted to the pool. It must not panic; the pool
// does not recover worker goroutines on its behalf beyond what the actor
// supervision strategy already provides.
type Task func()

// WorkerPool is the interface the core consumes; everything in this repo
// that submits work depends on this, never on ActorPool directly, so tests
// can supply a synchronous fake.
type WorkerPool interface {
	Enqueue(task Task, priority Priority, label string)
	EnqueueWithResult(ctx context.Context, task Task, priority Priority, label string) <-chan struct{}
	GetOptimalWorkers(systemKind string, workload int) int
	GetBatchStrategy(systemKind string, workload, workerCount int) (batchCount, batchSize int)
	Shutdown(ctx context.Context) error
}

// defaultWorkerRate mirrors the scaling idiom used to size worker fan-out
// from pending workload: divide workload by this constant, floor at one.
const defaultWorkerRate = 4

// DefaultWorkerCounts returns a reasonable worker allocation per tier for a
// small-to-medium game world: Critical and High get dedicated workers so
// urgent agent queries are never queued behind background rebuilds.
func DefaultWorkerCounts() map[Priority]int {
	return map[Priority]int{
		Critical: 2,
		High:     2,
		Normal:   3,
		Low:      1,
	}
}

type tier struct {
	workers []*actor.PID
	next    atomic.Uint64
}

func (t *tier) pick() *actor.PID {
	n := len(t.workers)
	if n == 0 {
		return nil
	}
	idx := t.next.Add(1) % uint64(n)
	return t.workers[idx]
}

// ActorPool is the goakt-backed reference WorkerPool implementation.
type ActorPool struct {
	system  actor.ActorSystem
	logger  *zap.SugaredLogger
	tiers   map[Priority]*tier
	mu      sync.RWMutex
	closed  atomic.Bool
	maxKind map[string]int
}

// NewActorPool spawns workersPerTier workers per priority under system and
// returns a pool ready to accept work. Workers are named "pf-worker-<tier>-N"
// so they show up distinctly in goakt's own supervision logs.
func NewActorPool(ctx context.Context, system actor.ActorSystem, logger *zap.SugaredLogger, workersPerTier map[Priority]int) (*ActorPool, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p := &ActorPool{
		system: system,
		logger: logger,
		tiers:  make(map[Priority]*tier, len(priorities)),
		maxKind: map[string]int{
			"rebuild": 8,
			"search":  16,
			"prewarm": 4,
			"":        8,
		},
	}
	for _, pr := range priorities {
		count := workersPerTier[pr]
		if count < 1 {
			count = 1
		}
		t := &tier{workers: make([]*actor.PID, 0, count)}
		for i := 0; i < count; i++ {
			name := fmt.Sprintf("pf-worker-%s-%d", pr, i)
			pid, err := system.Spawn(ctx, name, newWorkerActor())
			if err != nil {
				return nil, fmt.Errorf("taskpool: spawn worker %s: %w", name, err)
			}
			t.workers = append(t.workers, pid)
		}
		p.tiers[pr] = t
	}
	return p, nil
}

func (p *ActorPool) Enqueue(task Task, priority Priority, label string) {
	if p.closed.Load() || task == nil {
		return
	}
	pid := p.tiers[priority].pick()
	if pid == nil {
		return
	}
	sig := newTaskSignal(task, nil)
	if err := actor.Tell(context.Background(), pid, sig); err != nil {
		p.logger.Warnw("taskpool: enqueue failed", "label", label, "priority", priority.String(), "error", err)
	}
}

func (p *ActorPool) EnqueueWithResult(ctx context.Context, task Task, priority Priority, label string) <-chan struct{} {
	done := make(chan struct{})
	if p.closed.Load() || task == nil {
		close(done)
		return done
	}
	pid := p.tiers[priority].pick()
	if pid == nil {
		close(done)
		return done
	}
	sig := newTaskSignal(task, done)
	if err := actor.Tell(ctx, pid, sig); err != nil {
		p.logger.Warnw("taskpool: enqueueWithResult failed", "label", label, "priority", priority.String(), "error", err)
		close(done)
	}
	return done
}

// GetOptimalWorkers estimates a worker count for a batch of workload items
// by dividing pending jobs by a fixed rate and clamping to a per-kind
// ceiling.
func (p *ActorPool) GetOptimalWorkers(systemKind string, workload int) int {
	if workload <= 0 {
		return 1
	}
	workers := workload / defaultWorkerRate
	if workers < 1 {
		workers = 1
	}
	p.mu.RLock()
	ceiling, ok := p.maxKind[systemKind]
	p.mu.RUnlock()
	if !ok {
		ceiling = p.maxKind[""]
	}
	if workers > ceiling {
		workers = ceiling
	}
	return workers
}

// GetBatchStrategy splits workload into workerCount (or fewer, if workload
// is smaller) batches of roughly equal size. A workerCount of 1 signals the
// caller should run the workload sequentially in a single task.
func (p *ActorPool) GetBatchStrategy(systemKind string, workload, workerCount int) (batchCount, batchSize int) {
	if workerCount < 1 {
		workerCount = 1
	}
	batchCount = workerCount
	if batchCount > workload {
		batchCount = workload
	}
	if batchCount < 1 {
		batchCount = 1
	}
	batchSize = (workload + batchCount - 1) / batchCount
	return batchCount, batchSize
}

// Shutdown stops accepting new work and tears down every worker actor.
// In-flight tasks already delivered to a worker's mailbox are allowed to
// finish; goakt drains a mailbox before honoring Stop.
func (p *ActorPool) Shutdown(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	var firstErr error
	for _, t := range p.tiers {
		for _, pid := range t.workers {
			if err := pid.Shutdown(ctx); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("taskpool: stop worker %s: %w", pid.Name(), err)
			}
		}
	}
	return firstErr
}
