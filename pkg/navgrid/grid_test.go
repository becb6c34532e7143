package navgrid

import (
	"context"
	"testing"

	"github.com/kestrelgames/pathkeeper/pkg/taskpool"
)

func testParams() Params {
	return Params{AllowDiagonal: true, MaxIterations: DefaultMaxIterations, CostStraight: DefaultCostStraight, CostDiagonal: DefaultCostDiagonal}
}

func TestWorldToGrid_GridToWorld_RoundTrip(t *testing.T) {
	g := NewGrid(20, 20, 64, 0, 0, testParams())
	for gy := 0; gy < 20; gy++ {
		for gx := 0; gx < 20; gx++ {
			world := g.GridToWorld(gx, gy)
			rgx, rgy := g.WorldToGrid(world)
			if rgx != gx || rgy != gy {
				t.Fatalf("round-trip failed for (%d,%d): got (%d,%d)", gx, gy, rgx, rgy)
			}
		}
	}
}

func TestResetWeights_Idempotence(t *testing.T) {
	g := NewGrid(10, 10, 64, 0, 0, testParams())
	g.ResetWeights(3.5)
	for gy := 0; gy < 10; gy++ {
		for gx := 0; gx < 10; gx++ {
			if w := g.GetWeight(gx, gy); w != 3.5 {
				t.Fatalf("weight at (%d,%d) = %f, want 3.5", gx, gy, w)
			}
		}
	}
}

func TestResetWeights_ClampsToFloor(t *testing.T) {
	g := NewGrid(5, 5, 64, 0, 0, testParams())
	g.ResetWeights(0.2)
	if w := g.GetWeight(0, 0); w != 1.0 {
		t.Fatalf("weight floor not enforced: got %f", w)
	}
}

func TestMarkDirtyRegion_RebuildClearsIt(t *testing.T) {
	g := NewGrid(10, 10, 64, 0, 0, testParams())
	source := navgridTestSource()
	g.MarkDirtyRegion(0, 0, 3, 3)
	if !g.HasDirtyRegions() {
		t.Fatal("expected dirty regions after marking")
	}
	g.RebuildDirtyRegions(source)
	if g.HasDirtyRegions() {
		t.Fatal("expected no dirty regions after rebuild")
	}
}

func TestAddWeightCircle_NoOpBelowOne(t *testing.T) {
	g := NewGrid(10, 10, 64, 0, 0, testParams())
	center := g.GridToWorld(5, 5)
	g.AddWeightCircle(center, 128, 0.5)
	if w := g.GetWeight(5, 5); w != 1.0 {
		t.Fatalf("multiplier <= 1 should be a no-op, got weight %f", w)
	}
}

func TestAddWeightCircle_RaisesToMax(t *testing.T) {
	g := NewGrid(10, 10, 64, 0, 0, testParams())
	g.SetWeight(5, 5, 4.0)
	center := g.GridToWorld(5, 5)
	g.AddWeightCircle(center, 128, 2.0)
	if w := g.GetWeight(5, 5); w != 4.0 {
		t.Fatalf("weight should stay at existing max 4.0, got %f", w)
	}
	g.AddWeightCircle(center, 128, 10.0)
	if w := g.GetWeight(5, 5); w != 10.0 {
		t.Fatalf("weight should raise to 10.0, got %f", w)
	}
}

func TestSnapToNearestOpen(t *testing.T) {
	g := NewGrid(10, 10, 64, 0, 0, testParams())
	g.SetBlocked(5, 5, true)
	g.SetBlocked(4, 5, true)
	g.SetBlocked(6, 5, true)
	g.SetBlocked(5, 4, true)
	g.SetBlocked(5, 6, true)

	pos := g.GridToWorld(5, 5)
	snapped, ok := g.SnapToNearestOpen(pos, 3)
	if !ok {
		t.Fatal("expected to find an open cell")
	}
	sgx, sgy := g.WorldToGrid(snapped)
	if g.IsBlocked(sgx, sgy) {
		t.Fatalf("snapped cell (%d,%d) is still blocked", sgx, sgy)
	}
}

func TestSnapToNearestOpen_NoneFound(t *testing.T) {
	g := NewGrid(1, 1, 64, 0, 0, testParams())
	g.SetBlocked(0, 0, true)
	_, ok := g.SnapToNearestOpen(g.GridToWorld(0, 0), 0)
	if ok {
		t.Fatal("expected no open cell when the only cell is blocked and radius is 0")
	}
}

func TestCoarseOverlay_Dimensions(t *testing.T) {
	g := NewGrid(20, 20, 64, 0, 0, testParams())
	g.UpdateCoarseOverlay()
	coarse := g.Coarse()
	if coarse.Width() != 5 || coarse.Height() != 5 {
		t.Fatalf("coarse overlay dims = (%d,%d), want (5,5)", coarse.Width(), coarse.Height())
	}
}

func TestCoarseOverlay_WalkableIfAnyFineOpen(t *testing.T) {
	g := NewGrid(8, 8, 64, 0, 0, testParams())
	// Block every fine cell in the first coarse block except one.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			g.SetBlocked(x, y, true)
		}
	}
	g.SetBlocked(0, 0, false)
	g.UpdateCoarseOverlay()
	if g.Coarse().IsBlocked(0, 0) {
		t.Fatal("coarse cell should be walkable since one fine cell is open")
	}
}

func TestRebuildFromWorld_SequentialAndParallelAgree(t *testing.T) {
	source := navgridTestSource()

	seq := NewGrid(20, 20, 64, 0, 0, testParams())
	if err := seq.RebuildFromWorld(context.Background(), taskpool.NewSyncPool(), source); err != nil {
		t.Fatalf("sequential rebuild failed: %v", err)
	}

	par := NewGrid(20, 20, 64, 0, 0, testParams())
	forcedParallel := forcingBatchPool{SyncPool: taskpool.NewSyncPool()}
	if err := par.RebuildFromWorld(context.Background(), forcedParallel, source); err != nil {
		t.Fatalf("parallel rebuild failed: %v", err)
	}

	for gy := 0; gy < 20; gy++ {
		for gx := 0; gx < 20; gx++ {
			if seq.IsBlocked(gx, gy) != par.IsBlocked(gx, gy) {
				t.Fatalf("blocked mismatch at (%d,%d)", gx, gy)
			}
		}
	}
}

// forcingBatchPool wraps SyncPool but always advises more than one batch, to
// exercise RebuildFromWorld's parallel path in tests without a real actor
// system.
type forcingBatchPool struct {
	*taskpool.SyncPool
}

func (forcingBatchPool) GetBatchStrategy(_ string, workload, _ int) (int, int) {
	batchCount := 4
	if batchCount > workload {
		batchCount = workload
	}
	if batchCount < 1 {
		batchCount = 1
	}
	batchSize := (workload + batchCount - 1) / batchCount
	return batchCount, batchSize
}

func navgridTestSource() *StaticTileSource {
	source := NewStaticTileSource(20, 20, 64)
	source.BlockRect(10, 5, 10, 15)
	return source
}
