package pathfinder

import (
	"testing"

	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
)

func openTestGrid(t *testing.T, width, height int) *navgrid.Grid {
	t.Helper()
	return navgrid.NewGrid(width, height, defaultCellSize, 0, 0, navgrid.Params{
		AllowDiagonal: true,
		MaxIterations: 12000,
		CostStraight:  1.0,
		CostDiagonal:  1.41421356,
	})
}

func TestCacheKey_StableAcrossNearbyPositions(t *testing.T) {
	grid := openTestGrid(t, 40, 40)
	quant := 128.0
	start := geometry.Vector2D{X: 100, Y: 100}
	goal := geometry.Vector2D{X: 900, Y: 900}

	k1 := cacheKey(grid, start, goal, quant)

	nearbyStart := geometry.Vector2D{X: 103, Y: 97}
	nearbyGoal := geometry.Vector2D{X: 905, Y: 898}
	k2 := cacheKey(grid, nearbyStart, nearbyGoal, quant)

	if k1 != k2 {
		t.Fatalf("nearby requests should bucket to the same cache key: %x vs %x", k1, k2)
	}
}

func TestCacheKey_DiffersAcrossDistantPositions(t *testing.T) {
	grid := openTestGrid(t, 40, 40)
	quant := 128.0
	k1 := cacheKey(grid, geometry.Vector2D{X: 100, Y: 100}, geometry.Vector2D{X: 900, Y: 900}, quant)
	k2 := cacheKey(grid, geometry.Vector2D{X: 100, Y: 100}, geometry.Vector2D{X: 2000, Y: 2000}, quant)
	if k1 == k2 {
		t.Fatalf("distant goals should not collide on the same cache key")
	}
}

func TestCacheKey_IgnoresWalkability(t *testing.T) {
	grid := openTestGrid(t, 40, 40)
	quant := 128.0
	start := geometry.Vector2D{X: 100, Y: 100}
	goal := geometry.Vector2D{X: 900, Y: 900}
	before := cacheKey(grid, start, goal, quant)

	gx, gy := grid.WorldToGrid(goal)
	grid.SetBlocked(gx, gy, true)
	after := cacheKey(grid, start, goal, quant)

	if before != after {
		t.Fatalf("cache key must be stable regardless of walkability changes")
	}
}

func TestNormalizeEndpoints_IsAFixpoint(t *testing.T) {
	grid := openTestGrid(t, 40, 40)
	quant := 128.0
	start := geometry.Vector2D{X: 37, Y: 812}
	goal := geometry.Vector2D{X: 1900, Y: 55}

	ns1, ng1 := normalizeEndpoints(grid, start, goal, quant)
	ns2, ng2 := normalizeEndpoints(grid, ns1, ng1, quant)

	if ns1 != ns2 || ng1 != ng2 {
		t.Fatalf("normalizeEndpoints must be idempotent: first=(%v,%v) second=(%v,%v)", ns1, ng1, ns2, ng2)
	}
}

func TestNormalizeEndpoints_ClampsIntoWorldMargin(t *testing.T) {
	grid := openTestGrid(t, 40, 40)
	quant := 128.0
	ns, _ := normalizeEndpoints(grid, geometry.Vector2D{X: -500, Y: -500}, geometry.Vector2D{X: 100, Y: 100}, quant)

	minX, minY, maxX, maxY := worldBounds(grid)
	if ns.X < minX || ns.Y < minY || ns.X > maxX || ns.Y > maxY {
		t.Fatalf("normalized start %v escaped world bounds [%v,%v]-[%v,%v]", ns, minX, minY, maxX, maxY)
	}
}

func TestNormalizeEndpoints_SnapsAwayFromBlockedCell(t *testing.T) {
	grid := openTestGrid(t, 40, 40)
	gx, gy := 20, 20
	grid.SetBlocked(gx, gy, true)
	center := grid.GridToWorld(gx, gy)

	_, ng := normalizeEndpoints(grid, geometry.Vector2D{X: 50, Y: 50}, center, minEndpointQuantization)
	ngx, ngy := grid.WorldToGrid(ng)
	if grid.IsBlocked(ngx, ngy) {
		t.Fatalf("normalized goal %v still resolves to the blocked cell", ng)
	}
}

func TestQuantizeRound(t *testing.T) {
	cases := []struct {
		v, q, want float64
	}{
		{100, 128, 128},
		{0, 128, 0},
		{63, 128, 0},
		{65, 128, 128},
	}
	for _, c := range cases {
		if got := quantizeRound(c.v, c.q); got != c.want {
			t.Fatalf("quantizeRound(%v,%v) = %v, want %v", c.v, c.q, got, c.want)
		}
	}
}

func TestPrewarmSectorCount_Tiers(t *testing.T) {
	if n := prewarmSectorCount(2000, 2000); n != 4 {
		t.Fatalf("small world: N = %d, want 4", n)
	}
	if n := prewarmSectorCount(10000, 2000); n != 8 {
		t.Fatalf("medium world: N = %d, want 8", n)
	}
	if n := prewarmSectorCount(20000, 2000); n != 16 {
		t.Fatalf("large world: N = %d, want 16", n)
	}
}

func TestPrewarmEdges_CountMatches8ConnectedFormula(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8, 16} {
		want := 2*n*(n-1) + 2*(n-1)*(n-1)
		if got := len(prewarmEdges(n)); got != want {
			t.Fatalf("prewarmEdges(%d) = %d edges, want %d", n, got, want)
		}
	}
}

func TestAutoTune_DerivesFromGridDimensions(t *testing.T) {
	grid := openTestGrid(t, 40, 40) // 40*64 = 2560 world units wide
	tuned := autoTune(grid)
	if tuned.prewarmN != 4 {
		t.Fatalf("prewarmN = %d, want 4 for a 2560-unit world", tuned.prewarmN)
	}
	if tuned.endpointQuantization < minEndpointQuantization || tuned.endpointQuantization > maxEndpointQuantization {
		t.Fatalf("endpointQuantization = %v out of bounds", tuned.endpointQuantization)
	}
	if tuned.connectivityProbeCells < 1 {
		t.Fatalf("connectivityProbeCells must be positive, got %d", tuned.connectivityProbeCells)
	}
}
