// Package navgrid implements the navigation grid: per-cell walkability and
// movement weight, incremental dirty-region tracking, and a coarse overlay
// used by hierarchical search. It is the leaf-most component of the
// pathfinding core — it depends only on the external tile source and worker
// pool collaborators, never on the search engine or dispatcher above it.
package navgrid

import (
	"math"
	"sync"

	"github.com/kestrelgames/pathkeeper/pkg/geometry"
)

// CoarseMultiplier is the cell-size ratio between a Grid and its coarse
// overlay: each coarse cell covers a 4x4 block of fine cells.
const CoarseMultiplier = 4.0

const (
	DefaultMaxIterations = 12000
	DefaultCostStraight  = 1.0
	DefaultCostDiagonal  = 1.41421356
	// DirtyRebuildThreshold is the fraction of dirty cells above which an
	// incremental rebuild is abandoned in favor of a full rebuild.
	DirtyRebuildThreshold = 0.25
)

// DirtyRegion is a cell-coordinate rectangle accumulated by invalidation and
// consumed by an incremental rebuild.
type DirtyRegion struct {
	X, Y, W, H int
}

// Params bundles the algorithm tunables a search reads. Passed by value into
// search calls per the "explicit parameter struct, not mutable members"
// guidance, rather than letting a search read Grid fields concurrently with
// a weight mutation.
type Params struct {
	AllowDiagonal bool
	MaxIterations int
	CostStraight  float64
	CostDiagonal  float64

	// ConnectivityProbeCells is the Chebyshev cell distance beyond which the
	// preflight connectivity probe runs before committing to a full A*. Zero
	// means "use the engine's built-in default" (navsearch's constant);
	// the Dispatcher auto-tunes this to ~25% of world width on each rebuild
	// so the probe scales with world size instead of a fixed constant.
	ConnectivityProbeCells int
	// HierarchicalThresholdWorld is the world-unit start-goal distance
	// beyond which hierarchical (coarse-then-fine) search is preferred over
	// a direct fine search. Zero means "use the engine's built-in default"
	// (5% of the world diagonal).
	HierarchicalThresholdWorld float64
}

// Grid is a rectangular array of cells. Cell buffers are immutable between
// rebuilds except for weight-field mutators (caller-serialized, see
// AddWeightCircle) and dirty-region marking (mutex-guarded, since it is
// touched by both event callbacks and rebuild tasks).
type Grid struct {
	width, height int
	cellSize      float64
	offsetX       float64
	offsetY       float64

	blocked []bool
	weight  []float64

	params Params

	dirtyMu sync.Mutex
	dirty   []DirtyRegion

	coarse *Grid
}

// NewGrid allocates a width x height grid with the given cell size and
// world-space origin offset. Cell buffers start fully walkable at weight 1.
func NewGrid(width, height int, cellSize, offsetX, offsetY float64, params Params) *Grid {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = DefaultMaxIterations
	}
	if params.CostStraight <= 0 {
		params.CostStraight = DefaultCostStraight
	}
	if params.CostDiagonal <= 0 {
		params.CostDiagonal = DefaultCostDiagonal
	}
	g := &Grid{
		width:    width,
		height:   height,
		cellSize: cellSize,
		offsetX:  offsetX,
		offsetY:  offsetY,
		params:   params,
	}
	g.InitializeArrays()
	return g
}

func (g *Grid) Width() int           { return g.width }
func (g *Grid) Height() int          { return g.height }
func (g *Grid) CellSize() float64    { return g.cellSize }
func (g *Grid) Params() Params       { return g.params }
func (g *Grid) SetParams(p Params)   { g.params = p }
func (g *Grid) Coarse() *Grid        { return g.coarse }

// InitializeArrays allocates (or resets, reusing capacity) the cell buffers
// without reading the tile source. All cells start walkable at weight 1.0.
func (g *Grid) InitializeArrays() {
	n := g.width * g.height
	if cap(g.blocked) >= n {
		g.blocked = g.blocked[:n]
		for i := range g.blocked {
			g.blocked[i] = false
		}
	} else {
		g.blocked = make([]bool, n)
	}
	if cap(g.weight) >= n {
		g.weight = g.weight[:n]
		for i := range g.weight {
			g.weight[i] = 1.0
		}
	} else {
		g.weight = make([]float64, n)
		for i := range g.weight {
			g.weight[i] = 1.0
		}
	}
}

func (g *Grid) index(gx, gy int) int { return gy*g.width + gx }

// WorldToGrid converts a world-space position to the cell containing it.
func (g *Grid) WorldToGrid(pos geometry.Vector2D) (int, int) {
	gx := int(math.Floor((pos.X - g.offsetX) / g.cellSize))
	gy := int(math.Floor((pos.Y - g.offsetY) / g.cellSize))
	return gx, gy
}

// GridToWorld returns the world-space center of cell (gx, gy).
func (g *Grid) GridToWorld(gx, gy int) geometry.Vector2D {
	return geometry.Vector2D{
		X: g.offsetX + (float64(gx)+0.5)*g.cellSize,
		Y: g.offsetY + (float64(gy)+0.5)*g.cellSize,
	}
}

func (g *Grid) InBounds(gx, gy int) bool {
	return gx >= 0 && gy >= 0 && gx < g.width && gy < g.height
}

// IsBlocked reports true for out-of-bounds cells as well as blocked ones;
// callers that need to distinguish should check InBounds first.
func (g *Grid) IsBlocked(gx, gy int) bool {
	if !g.InBounds(gx, gy) {
		return true
	}
	return g.blocked[g.index(gx, gy)]
}

func (g *Grid) IsWorldBlocked(pos geometry.Vector2D) bool {
	gx, gy := g.WorldToGrid(pos)
	return g.IsBlocked(gx, gy)
}

func (g *Grid) SetBlocked(gx, gy int, blocked bool) {
	if !g.InBounds(gx, gy) {
		return
	}
	g.blocked[g.index(gx, gy)] = blocked
}

// GetWeight returns the movement weight of (gx, gy), or 1.0 if out of
// bounds.
func (g *Grid) GetWeight(gx, gy int) float64 {
	if !g.InBounds(gx, gy) {
		return 1.0
	}
	return g.weight[g.index(gx, gy)]
}

// SetWeight sets a cell's movement weight directly; values below 1.0 are
// clamped, preserving the "weight >= 1.0 for every cell" invariant.
func (g *Grid) SetWeight(gx, gy int, w float64) {
	if !g.InBounds(gx, gy) {
		return
	}
	if w < 1.0 {
		w = 1.0
	}
	g.weight[g.index(gx, gy)] = w
}

// ResetWeights sets every cell's weight to w (clamped to >= 1.0). This and
// AddWeightCircle are the weight-field mutators: they take no lock and the
// caller is responsible for serializing them with respect to concurrent
// searches over this Grid.
func (g *Grid) ResetWeights(w float64) {
	if w < 1.0 {
		w = 1.0
	}
	for i := range g.weight {
		g.weight[i] = w
	}
}

// AddWeightCircle raises the weight of every cell within radius of center to
// max(current, multiplier). Multipliers <= 1 are no-ops, since they could
// only lower weight below the existing value or below the 1.0 floor.
func (g *Grid) AddWeightCircle(center geometry.Vector2D, radius, multiplier float64) {
	if multiplier <= 1.0 || radius <= 0 {
		return
	}
	cellRadius := int(math.Ceil(radius/g.cellSize)) + 1
	cgx, cgy := g.WorldToGrid(center)
	radiusSq := radius * radius
	for gy := cgy - cellRadius; gy <= cgy+cellRadius; gy++ {
		for gx := cgx - cellRadius; gx <= cgx+cellRadius; gx++ {
			if !g.InBounds(gx, gy) {
				continue
			}
			cellCenter := g.GridToWorld(gx, gy)
			if cellCenter.DistanceSquaredTo(center) > radiusSq {
				continue
			}
			idx := g.index(gx, gy)
			if multiplier > g.weight[idx] {
				g.weight[idx] = multiplier
			}
		}
	}
}

// SnapToNearestOpen ring-searches outward from pos for the nearest walkable
// cell, up to maxRadius cells. Returns the cell's world-space center and
// whether a walkable cell was found.
func (g *Grid) SnapToNearestOpen(pos geometry.Vector2D, maxRadius int) (geometry.Vector2D, bool) {
	gx, gy := g.WorldToGrid(pos)
	if !g.IsBlocked(gx, gy) {
		return g.GridToWorld(gx, gy), true
	}
	for radius := 1; radius <= maxRadius; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if abs(dx) != radius && abs(dy) != radius {
					continue // only the ring at exactly this radius
				}
				ngx, ngy := gx+dx, gy+dy
				if g.InBounds(ngx, ngy) && !g.IsBlocked(ngx, ngy) {
					return g.GridToWorld(ngx, ngy), true
				}
			}
		}
	}
	return geometry.Vector2D{}, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MarkDirtyRegion appends a dirty rectangle, guarded by the dirty-region
// mutex since it may be called from both an event handler and a rebuild
// task.
func (g *Grid) MarkDirtyRegion(x, y, w, h int) {
	g.dirtyMu.Lock()
	g.dirty = append(g.dirty, DirtyRegion{X: x, Y: y, W: w, H: h})
	g.dirtyMu.Unlock()
}

func (g *Grid) HasDirtyRegions() bool {
	g.dirtyMu.Lock()
	defer g.dirtyMu.Unlock()
	return len(g.dirty) > 0
}

// DirtyPercent returns the fraction, in [0, 1], of the grid's cells covered
// by the union-counted (overlap not deduplicated, a conservative
// over-estimate) dirty regions.
func (g *Grid) DirtyPercent() float64 {
	g.dirtyMu.Lock()
	defer g.dirtyMu.Unlock()
	if len(g.dirty) == 0 {
		return 0
	}
	dirtyCells := 0
	for _, r := range g.dirty {
		dirtyCells += r.W * r.H
	}
	total := g.width * g.height
	if total == 0 {
		return 0
	}
	pct := float64(dirtyCells) / float64(total)
	if pct > 1.0 {
		pct = 1.0
	}
	return pct
}

func (g *Grid) ClearDirtyRegions() {
	g.dirtyMu.Lock()
	g.dirty = g.dirty[:0]
	g.dirtyMu.Unlock()
}

// DirtyRegionsSnapshot returns a copy of the current dirty set for a rebuild
// task to consume without holding the lock across tile-source reads.
func (g *Grid) DirtyRegionsSnapshot() []DirtyRegion {
	g.dirtyMu.Lock()
	defer g.dirtyMu.Unlock()
	out := make([]DirtyRegion, len(g.dirty))
	copy(out, g.dirty)
	return out
}
