package navsearch

import (
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
)

// hierarchicalThresholdFraction is the fraction of the world diagonal beyond
// which a query prefers coarse-then-fine decomposition over a direct fine
// search.
const hierarchicalThresholdFraction = 0.05

// ShouldUseHierarchical reports whether start-to-goal distance, relative to
// the grid's world diagonal, crosses the threshold where decomposing through
// the coarse overlay is worth its extra bookkeeping.
func (e *SearchEngine) ShouldUseHierarchical(grid *navgrid.Grid, start, goal geometry.Vector2D) bool {
	if grid.Coarse() == nil {
		return false
	}
	threshold := grid.Params().HierarchicalThresholdWorld
	if threshold <= 0 {
		worldW := float64(grid.Width()) * grid.CellSize()
		worldH := float64(grid.Height()) * grid.CellSize()
		diagonal := geometry.Vector2D{X: worldW, Y: worldH}.Len()
		if diagonal <= 0 {
			return false
		}
		threshold = diagonal * hierarchicalThresholdFraction
	}
	return start.DistanceTo(goal) >= threshold
}

// FindPathHierarchical finds a coarse path across the coarse overlay, then
// refines each consecutive coarse waypoint pair with a fine search bounded to
// that segment's neighborhood. Any segment whose fine refinement fails falls
// back to a single direct fine search over the whole query.
func (e *SearchEngine) FindPathHierarchical(grid *navgrid.Grid, start, goal geometry.Vector2D) (Result, []geometry.Vector2D) {
	coarse := grid.Coarse()
	if coarse == nil {
		return e.findPath(grid, start, goal)
	}

	coarseResult, coarsePath := e.findPath(coarse, start, goal)
	if coarseResult != Success || len(coarsePath) < 2 {
		return e.findPath(grid, start, goal)
	}

	full := make([]geometry.Vector2D, 0, len(coarsePath)*2)
	full = append(full, start)

	anchor := start
	for i := 1; i < len(coarsePath); i++ {
		segGoal := coarsePath[i]
		if i == len(coarsePath)-1 {
			segGoal = goal
		}
		result, segment := e.findPath(grid, anchor, segGoal)
		if result != Success || len(segment) == 0 {
			return e.findPath(grid, start, goal)
		}
		full = append(full, segment[1:]...)
		anchor = segGoal
	}

	return Success, full
}
