// Package navsearch implements the A* search engine: octile-heuristic
// search with thread-local memory pools, corner-cutting prevention,
// line-of-sight smoothing, and hierarchical coarse-to-fine decomposition.
// It operates on a Grid snapshot handed to it by the caller; it never holds
// a reference to a mutable live Grid.
package navsearch

import (
	"container/heap"
	"math"
	"sync"

	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
)

// connectivityProbeChebyshev is the Chebyshev cell distance beyond which the
// preflight connectivity probe runs before committing to a full A*.
const connectivityProbeChebyshev = 75

// SearchEngine runs A* over Grid snapshots. It is safe for concurrent use
// by multiple worker goroutines; each call borrows its own scratch buffers
// from an internal sync.Pool instead of sharing state.
type SearchEngine struct {
	pool sync.Pool
}

// NewSearchEngine returns a ready-to-use SearchEngine.
func NewSearchEngine() *SearchEngine {
	e := &SearchEngine{}
	e.pool.New = func() interface{} { return newScratch() }
	return e
}

// FindPath runs fine-grid A* between start and goal, both in world space.
func (e *SearchEngine) FindPath(grid *navgrid.Grid, start, goal geometry.Vector2D) (Result, []geometry.Vector2D) {
	return e.findPath(grid, start, goal)
}

func (e *SearchEngine) findPath(grid *navgrid.Grid, start, goal geometry.Vector2D) (Result, []geometry.Vector2D) {
	sgx, sgy := grid.WorldToGrid(start)
	ggx, ggy := grid.WorldToGrid(goal)

	if !grid.InBounds(sgx, sgy) {
		return InvalidStart, nil
	}
	if !grid.InBounds(ggx, ggy) {
		return InvalidGoal, nil
	}

	// Preflight 2: blocked goal snaps to a nearby walkable cell.
	if grid.IsBlocked(ggx, ggy) {
		snapped, ok := grid.SnapToNearestOpen(goal, 3)
		if !ok {
			return InvalidGoal, nil
		}
		goal = snapped
		ggx, ggy = grid.WorldToGrid(goal)
	}

	// Preflight 3: coincident endpoints.
	if sgx == ggx && sgy == ggy {
		return Success, []geometry.Vector2D{grid.GridToWorld(sgx, sgy)}
	}

	// Preflight 4: line-of-sight fast path.
	if e.HasLineOfSight(grid, start, goal) {
		return Success, []geometry.Vector2D{grid.GridToWorld(sgx, sgy), grid.GridToWorld(ggx, ggy)}
	}

	// Preflight 5: connectivity probe for long queries.
	chebyshev := maxInt(absInt(ggx-sgx), absInt(ggy-sgy))
	probeThreshold := grid.Params().ConnectivityProbeCells
	if probeThreshold <= 0 {
		probeThreshold = connectivityProbeChebyshev
	}
	if chebyshev > probeThreshold {
		if !e.connectivityProbe(grid, sgx, sgy, ggx, ggy) {
			return NoPathFound, nil
		}
	}

	// Preflight 6: blocked start snaps to a nearby walkable cell.
	if grid.IsBlocked(sgx, sgy) {
		snapped, ok := grid.SnapToNearestOpen(start, 4)
		if !ok {
			return NoPathFound, nil
		}
		start = snapped
		sgx, sgy = grid.WorldToGrid(start)
	}

	return e.runAStar(grid, sgx, sgy, ggx, ggy)
}

// connectivityProbe samples up to 8 intermediate cells along the straight
// line between start and goal; a cell is "open-adjacent" if any of its 8
// neighbors is walkable. More than half of the samples failing that test
// rejects the query before A* ever runs.
func (e *SearchEngine) connectivityProbe(grid *navgrid.Grid, sgx, sgy, ggx, ggy int) bool {
	const samples = 8
	failures := 0
	for i := 1; i <= samples; i++ {
		t := float64(i) / float64(samples+1)
		gx := sgx + int(math.Round(float64(ggx-sgx)*t))
		gy := sgy + int(math.Round(float64(ggy-sgy)*t))
		if !isOpenAdjacent(grid, gx, gy) {
			failures++
		}
	}
	return failures*2 <= samples
}

func isOpenAdjacent(grid *navgrid.Grid, gx, gy int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if grid.InBounds(gx+dx, gy+dy) && !grid.IsBlocked(gx+dx, gy+dy) {
				return true
			}
		}
	}
	return false
}

// neighborOffsets lists the 8-connected neighbor deltas; the first four are
// the orthogonal (straight) moves, the last four diagonal.
var neighborOffsets = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

func (e *SearchEngine) heuristic(params navgrid.Params, dx, dy int) float64 {
	adx, ady := float64(absInt(dx)), float64(absInt(dy))
	if !params.AllowDiagonal {
		return params.CostStraight * (adx + ady)
	}
	lo, hi := adx, ady
	if lo > hi {
		lo, hi = hi, lo
	}
	return params.CostDiagonal*lo + params.CostStraight*(hi-lo)
}

// iterationCap returns the dynamic, distance-tiered hard cap on A* pops.
func iterationCap(configured int, chebyshevDistance int) int {
	var hardCap int
	switch {
	case chebyshevDistance <= 20:
		hardCap = 1000
	case chebyshevDistance <= 60:
		hardCap = 2500
	default:
		hardCap = 5000
	}
	if configured > 0 && configured < hardCap {
		return configured
	}
	return hardCap
}

// regionOfInterest returns the cell-coordinate rectangle A* is allowed to
// expand into: the bounding box of start and goal, padded by a margin
// proportional to their Chebyshev distance and capped for long queries.
func regionOfInterest(sgx, sgy, ggx, ggy, width, height int) (minX, minY, maxX, maxY int) {
	minX, maxX = sgx, ggx
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY = sgy, ggy
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	chebyshev := maxInt(maxX-minX, maxY-minY)
	margin := chebyshev / 4
	if margin < 8 {
		margin = 8
	}
	if margin > 64 {
		margin = 64
	}
	minX -= margin
	minY -= margin
	maxX += margin
	maxY += margin
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= width {
		maxX = width - 1
	}
	if maxY >= height {
		maxY = height - 1
	}
	return
}

func (e *SearchEngine) runAStar(grid *navgrid.Grid, sgx, sgy, ggx, ggy int) (Result, []geometry.Vector2D) {
	width, height := grid.Width(), grid.Height()
	n := width * height
	params := grid.Params()

	s := e.pool.Get().(*scratch)
	defer e.pool.Put(s)
	s.reset(n)

	roiMinX, roiMinY, roiMaxX, roiMaxY := regionOfInterest(sgx, sgy, ggx, ggy, width, height)
	chebyshevDist := maxInt(absInt(ggx-sgx), absInt(ggy-sgy))
	cap := iterationCap(params.MaxIterations, chebyshevDist)
	maxOpenSize := cap * 2

	startIdx := sgy*width + sgx
	goalIdx := ggy*width + ggx

	s.g[startIdx] = 0
	s.f[startIdx] = e.heuristic(params, ggx-sgx, ggy-sgy)
	heap.Push(&s.open, openNode{index: startIdx, f: s.f[startIdx]})

	iterations := 0
	for s.open.Len() > 0 {
		if iterations >= cap {
			return Timeout, nil
		}
		if s.open.Len() > maxOpenSize {
			return Timeout, nil
		}
		iterations++

		current := heap.Pop(&s.open).(openNode)
		if s.closed[current.index] {
			continue
		}
		if current.index == goalIdx {
			return Success, e.reconstruct(grid, s, startIdx, goalIdx)
		}
		s.closed[current.index] = true

		cgx, cgy := current.index%width, current.index/width

		for i, off := range neighborOffsets {
			ngx, ngy := cgx+off[0], cgy+off[1]
			if ngx < roiMinX || ngx > roiMaxX || ngy < roiMinY || ngy > roiMaxY {
				continue
			}
			if !params.AllowDiagonal && i >= 4 {
				continue
			}
			if !grid.InBounds(ngx, ngy) || grid.IsBlocked(ngx, ngy) {
				continue
			}
			if i >= 4 {
				// Corner-cutting prevention: both orthogonal neighbors of
				// the source cell must be walkable for a diagonal move.
				if grid.IsBlocked(cgx+off[0], cgy) || grid.IsBlocked(cgx, cgy+off[1]) {
					continue
				}
			}

			neighborIdx := ngy*width + ngx
			if s.closed[neighborIdx] {
				continue
			}

			step := params.CostStraight
			if i >= 4 {
				step = params.CostDiagonal
			}
			tentativeG := s.g[current.index] + step*grid.GetWeight(ngx, ngy)

			if tentativeG >= s.g[neighborIdx] {
				continue
			}

			s.parent[neighborIdx] = current.index
			s.g[neighborIdx] = tentativeG
			s.f[neighborIdx] = tentativeG + e.heuristic(params, ggx-ngx, ggy-ngy)
			heap.Push(&s.open, openNode{index: neighborIdx, f: s.f[neighborIdx]})
		}
	}

	return NoPathFound, nil
}

func (e *SearchEngine) reconstruct(grid *navgrid.Grid, s *scratch, startIdx, goalIdx int) []geometry.Vector2D {
	width := grid.Width()
	var cellIdx []int
	for at := goalIdx; at != startIdx; at = s.parent[at] {
		cellIdx = append(cellIdx, at)
		if s.parent[at] == -1 {
			break
		}
	}
	cellIdx = append(cellIdx, startIdx)

	path := make([]geometry.Vector2D, len(cellIdx))
	for i, idx := range cellIdx {
		gx, gy := idx%width, idx/width
		path[len(cellIdx)-1-i] = grid.GridToWorld(gx, gy)
	}
	return e.smooth(grid, path)
}

// smooth walks from the start, repeatedly jumping to the farthest later
// waypoint still in line-of-sight, discarding everything in between. Start
// and goal are always preserved exactly.
func (e *SearchEngine) smooth(grid *navgrid.Grid, path []geometry.Vector2D) []geometry.Vector2D {
	if len(path) <= 2 {
		return path
	}
	out := make([]geometry.Vector2D, 0, len(path))
	out = append(out, path[0])
	anchor := 0
	for anchor < len(path)-1 {
		farthest := anchor + 1
		for j := anchor + 2; j < len(path); j++ {
			if e.HasLineOfSight(grid, path[anchor], path[j]) {
				farthest = j
			}
		}
		out = append(out, path[farthest])
		anchor = farthest
	}
	return out
}

// HasLineOfSight walks the integer Bresenham line between the grid cells
// containing a and b, returning false the instant a blocked (or
// out-of-bounds) cell is encountered. The walk is cell-by-cell rather than
// sampling world-space points along the Euclidean direction vector, which
// can step clean over a cell on a shallow-angle segment.
func (e *SearchEngine) HasLineOfSight(grid *navgrid.Grid, a, b geometry.Vector2D) bool {
	sx, sy := grid.WorldToGrid(a)
	ex, ey := grid.WorldToGrid(b)

	dx, dy := absInt(ex-sx), absInt(ey-sy)
	x, y := sx, sy
	xStep, yStep := 1, -1
	if ex > sx {
		xStep = 1
	} else {
		xStep = -1
	}
	if ey > sy {
		yStep = 1
	} else {
		yStep = -1
	}

	if dx > dy {
		err := dx / 2
		for x != ex {
			if !grid.InBounds(x, y) || grid.IsBlocked(x, y) {
				return false
			}
			err -= dy
			if err < 0 {
				y += yStep
				err += dx
			}
			x += xStep
		}
	} else {
		err := dy / 2
		for y != ey {
			if !grid.InBounds(x, y) || grid.IsBlocked(x, y) {
				return false
			}
			err -= dx
			if err < 0 {
				x += xStep
				err += dy
			}
			y += yStep
		}
	}

	return grid.InBounds(ex, ey) && !grid.IsBlocked(ex, ey)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
