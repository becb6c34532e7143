package navsearch

import (
	"testing"

	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
)

func openGrid(w, h int, cellSize float64) *navgrid.Grid {
	return navgrid.NewGrid(w, h, cellSize, 0, 0, navgrid.Params{
		AllowDiagonal: true,
		MaxIterations: navgrid.DefaultMaxIterations,
		CostStraight:  navgrid.DefaultCostStraight,
		CostDiagonal:  navgrid.DefaultCostDiagonal,
	})
}

func TestFindPath_OpenGrid_LineOfSightShortcut(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(20, 20, 32)
	start := g.GridToWorld(0, 0)
	goal := g.GridToWorld(10, 0)

	result, path := e.FindPath(g, start, goal)
	if result != Success {
		t.Fatalf("result = %v, want Success", result)
	}
	if len(path) != 2 {
		t.Fatalf("expected a 2-point direct path, got %d points", len(path))
	}
}

func TestFindPath_CoincidentEndpoints(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	p := g.GridToWorld(4, 4)

	result, path := e.FindPath(g, p, p)
	if result != Success || len(path) != 1 {
		t.Fatalf("result=%v path=%v, want Success with single point", result, path)
	}
}

func TestFindPath_InvalidStart(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	outside := geometry.Vector2D{X: -1000, Y: -1000}
	goal := g.GridToWorld(5, 5)

	result, _ := e.FindPath(g, outside, goal)
	if result != InvalidStart {
		t.Fatalf("result = %v, want InvalidStart", result)
	}
}

func TestFindPath_InvalidGoal(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	start := g.GridToWorld(5, 5)
	outside := geometry.Vector2D{X: 100000, Y: 100000}

	result, _ := e.FindPath(g, start, outside)
	if result != InvalidGoal {
		t.Fatalf("result = %v, want InvalidGoal", result)
	}
}

// TestFindPath_WallDetour: a vertical wall spanning rows 5-15 at column 10
// on a 20x20 grid forces a detour around one end rather than a straight
// line through it.
func TestFindPath_WallDetour(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(20, 20, 32)
	for y := 5; y <= 15; y++ {
		g.SetBlocked(10, y, true)
	}

	start := g.GridToWorld(2, 10)
	goal := g.GridToWorld(18, 10)

	result, path := e.FindPath(g, start, goal)
	if result != Success {
		t.Fatalf("result = %v, want Success", result)
	}
	for _, p := range path {
		gx, gy := g.WorldToGrid(p)
		if gx == 10 && gy >= 5 && gy <= 15 {
			t.Fatalf("path passes through the wall at (%d,%d)", gx, gy)
		}
	}
	if len(path) < 3 {
		t.Fatal("expected a detour path with more than the two endpoints")
	}
}

func TestFindPath_FullyEnclosedGoal_NoPathFound(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	cx, cy := 5, 5
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			g.SetBlocked(cx+dx, cy+dy, true)
		}
	}
	start := g.GridToWorld(0, 0)
	goal := g.GridToWorld(cx, cy)

	result, _ := e.FindPath(g, start, goal)
	if result != NoPathFound {
		t.Fatalf("result = %v, want NoPathFound", result)
	}
}

func TestFindPath_BlockedGoalSnapsToNearestOpen(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	g.SetBlocked(7, 7, true)

	start := g.GridToWorld(0, 0)
	goal := g.GridToWorld(7, 7)

	result, path := e.FindPath(g, start, goal)
	if result != Success {
		t.Fatalf("result = %v, want Success after snap", result)
	}
	last := path[len(path)-1]
	lgx, lgy := g.WorldToGrid(last)
	if lgx == 7 && lgy == 7 {
		t.Fatal("expected the final waypoint to have snapped off the blocked cell")
	}
}

func TestFindPath_DiagonalBetweenBlockedCells_AvoidsThem(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	// Block the two orthogonal neighbors of a diagonal step, leaving only
	// the diagonal itself open. The Bresenham walk from (4,4) to (5,5) visits
	// only those two cells, so the line-of-sight fast path returns the direct
	// diagonal; no waypoint may land on either blocked cell.
	g.SetBlocked(5, 4, true)
	g.SetBlocked(4, 5, true)

	start := g.GridToWorld(4, 4)
	goal := g.GridToWorld(5, 5)

	result, path := e.FindPath(g, start, goal)
	if result != Success {
		t.Fatalf("result = %v, want Success", result)
	}
	for _, p := range path {
		gx, gy := g.WorldToGrid(p)
		if (gx == 5 && gy == 4) || (gx == 4 && gy == 5) {
			t.Fatal("path passes through a blocked corner-cut cell")
		}
	}
}

func TestHasLineOfSight_BlockedBetween(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	g.SetBlocked(5, 0, true)

	a := g.GridToWorld(0, 0)
	b := g.GridToWorld(9, 0)
	if e.HasLineOfSight(g, a, b) {
		t.Fatal("expected line of sight to be blocked")
	}
}

func TestHasLineOfSight_OpenStraightLine(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(10, 10, 32)
	a := g.GridToWorld(0, 0)
	b := g.GridToWorld(9, 0)
	if !e.HasLineOfSight(g, a, b) {
		t.Fatal("expected line of sight over an open row")
	}
}

// TestHasLineOfSight_ShallowDiagonalVisitsEveryCell pins down the integer
// Bresenham walk against a shallow-angle segment where a world-space sampler
// at fixed physical intervals could step clean over a blocked cell that the
// cell-by-cell walk must visit.
func TestHasLineOfSight_ShallowDiagonalVisitsEveryCell(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(5, 3, 64)
	g.SetBlocked(2, 1, true)

	a := geometry.Vector2D{X: 0, Y: 100}
	b := geometry.Vector2D{X: 256, Y: 30}
	if e.HasLineOfSight(g, a, b) {
		t.Fatal("expected line of sight to be blocked by cell (2,1)")
	}
}

func TestFindPathHierarchical_LongQuery(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(200, 200, 32)
	g.UpdateCoarseOverlay()

	start := g.GridToWorld(0, 0)
	goal := g.GridToWorld(199, 199)

	if !e.ShouldUseHierarchical(g, start, goal) {
		t.Fatal("expected a near-diagonal query on a 200x200 grid to prefer hierarchical search")
	}

	result, path := e.FindPathHierarchical(g, start, goal)
	if result != Success {
		t.Fatalf("result = %v, want Success", result)
	}
	if len(path) < 2 {
		t.Fatal("expected at least start and goal in the hierarchical path")
	}
}

func TestShouldUseHierarchical_ShortQueryFalse(t *testing.T) {
	e := NewSearchEngine()
	g := openGrid(200, 200, 32)
	g.UpdateCoarseOverlay()
	start := g.GridToWorld(0, 0)
	goal := g.GridToWorld(2, 0)
	if e.ShouldUseHierarchical(g, start, goal) {
		t.Fatal("expected a short query to not prefer hierarchical search")
	}
}

func TestResultString(t *testing.T) {
	cases := map[Result]string{
		Success:      "SUCCESS",
		NoPathFound:  "NO_PATH_FOUND",
		InvalidStart: "INVALID_START",
		InvalidGoal:  "INVALID_GOAL",
		Timeout:      "TIMEOUT",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Fatalf("Result(%d).String() = %q, want %q", r, got, want)
		}
	}
}
