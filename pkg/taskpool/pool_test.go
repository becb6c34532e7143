package taskpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tochemey/goakt/v3/actor"
)

// newTestActorPool spins up a throwaway goakt actor system, the same way
// cmd/pathsim/run.go does, so ActorPool's Tell-based Enqueue/EnqueueWithResult
// plumbing actually runs against real actors instead of only SyncPool's
// inline stand-in.
func newTestActorPool(t *testing.T) (context.Context, *ActorPool) {
	t.Helper()
	ctx := context.Background()
	system, err := actor.NewActorSystem("taskpool-test")
	if err != nil {
		t.Fatalf("new actor system: %v", err)
	}
	if err := system.Start(ctx); err != nil {
		t.Fatalf("start actor system: %v", err)
	}
	t.Cleanup(func() { system.Stop(ctx) })

	pool, err := NewActorPool(ctx, system, nil, map[Priority]int{
		Critical: 1, High: 1, Normal: 1, Low: 1,
	})
	if err != nil {
		t.Fatalf("new actor pool: %v", err)
	}
	t.Cleanup(func() { pool.Shutdown(ctx) })
	return ctx, pool
}

func TestActorPool_EnqueueRunsOnWorker(t *testing.T) {
	_, pool := newTestActorPool(t)

	var mu sync.Mutex
	ran := false
	done := make(chan struct{})
	pool.Enqueue(func() {
		mu.Lock()
		ran = true
		mu.Unlock()
		close(done)
	}, Normal, "test")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Fatal("expected task to run")
	}
}

func TestActorPool_EnqueueWithResultClosesDone(t *testing.T) {
	ctx, pool := newTestActorPool(t)

	var mu sync.Mutex
	ran := false
	done := pool.EnqueueWithResult(ctx, func() {
		mu.Lock()
		ran = true
		mu.Unlock()
	}, Critical, "test")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("done channel never closed")
	}
	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Fatal("expected task to run")
	}
}

func TestActorPool_EnqueueAfterShutdownIsNoop(t *testing.T) {
	ctx, pool := newTestActorPool(t)
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	ran := false
	pool.Enqueue(func() { ran = true }, Low, "after-shutdown")
	time.Sleep(50 * time.Millisecond)
	if ran {
		t.Fatal("expected enqueue after shutdown to be a no-op")
	}
}

func TestSyncPool_EnqueueRunsImmediately(t *testing.T) {
	pool := NewSyncPool()
	ran := false
	pool.Enqueue(func() { ran = true }, Normal, "test")
	if !ran {
		t.Fatal("expected task to run synchronously")
	}
}

func TestSyncPool_EnqueueWithResultClosesDone(t *testing.T) {
	pool := NewSyncPool()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var ran bool
	done := pool.EnqueueWithResult(ctx, func() { ran = true }, Critical, "test")

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("done channel never closed")
	}
	if !ran {
		t.Fatal("expected task to run")
	}
}

func TestGetBatchStrategy(t *testing.T) {
	tests := []struct {
		name                string
		workload, workers   int
		wantCount, wantSize int
	}{
		{"single worker", 100, 1, 1, 100},
		{"even split", 100, 4, 4, 25},
		{"more workers than workload", 3, 8, 3, 1},
		{"zero workers clamps to one", 10, 0, 1, 10},
	}

	pool := NewSyncPool()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, size := pool.GetBatchStrategy("rebuild", tt.workload, tt.workers)
			if count != tt.wantCount || size != tt.wantSize {
				t.Errorf("GetBatchStrategy(%d, %d) = (%d, %d), want (%d, %d)",
					tt.workload, tt.workers, count, size, tt.wantCount, tt.wantSize)
			}
		})
	}
}

func TestGetOptimalWorkers(t *testing.T) {
	pool := NewSyncPool()
	if got := pool.GetOptimalWorkers("search", 0); got != 1 {
		t.Errorf("zero workload: got %d, want 1", got)
	}
	if got := pool.GetOptimalWorkers("search", 400); got != 100 {
		t.Errorf("workload 400: got %d, want 100", got)
	}
}

func TestPriorityString(t *testing.T) {
	want := map[Priority]string{Critical: "critical", High: "high", Normal: "normal", Low: "low"}
	for p, s := range want {
		if p.String() != s {
			t.Errorf("Priority(%d).String() = %q, want %q", p, p.String(), s)
		}
	}
}
