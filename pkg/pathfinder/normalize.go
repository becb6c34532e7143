package pathfinder

import (
	"math"

	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
)

// edgeMargin is the world-unit margin both the cache key and the endpoint
// normalization pipeline clamp into, keeping endpoints off the exact world
// border.
const edgeMargin = 96.0

// snapRadiusCells is the cell radius endpoint normalization snaps an
// endpoint to the nearest walkable cell within (2*cellSize world units).
const snapRadiusCells = 2

func worldBounds(grid *navgrid.Grid) (minX, minY, maxX, maxY float64) {
	maxX = float64(grid.Width()) * grid.CellSize()
	maxY = float64(grid.Height()) * grid.CellSize()
	return 0, 0, maxX, maxY
}

// clampToWorld clamps pos into the world rectangle with edgeMargin inset on
// each side. If the world is narrower than 2*margin on an axis, it clamps to
// the midpoint instead of producing an inverted range.
func clampToWorld(grid *navgrid.Grid, pos geometry.Vector2D) geometry.Vector2D {
	minX, minY, maxX, maxY := worldBounds(grid)
	return geometry.Vector2D{X: clampAxis(pos.X, minX, maxX), Y: clampAxis(pos.Y, minY, maxY)}
}

func clampAxis(v, lo, hi float64) float64 {
	lo, hi = lo+edgeMargin, hi-edgeMargin
	if lo > hi {
		mid := (lo + hi) / 2
		return mid
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// quantizeRound buckets v to the nearest multiple of q.
func quantizeRound(v, q float64) float64 {
	if q <= 0 {
		return v
	}
	return math.Round(v/q) * q
}

// quantizeBucket returns the floor bucket index of v at granularity q, used
// to build the cache key's 16-bit lanes.
func quantizeBucket(v, q float64) int64 {
	if q <= 0 {
		q = 1
	}
	return int64(math.Floor(v / q))
}

// packCacheKey packs four bucket indices into a 64-bit key as four 16-bit
// lanes (sx, sy, gx, gy). Bucket indices
// are truncated to 16 bits via two's-complement wraparound, which is safe
// because a world's bucket range at any sane cacheKeyQuantization never
// approaches 2^15 buckets per axis.
func packCacheKey(sx, sy, gx, gy int64) uint64 {
	return uint64(uint16(sx))<<48 | uint64(uint16(sy))<<32 | uint64(uint16(gx))<<16 | uint64(uint16(gy))
}

// cacheKey computes the stable cache key for raw (unnormalized) endpoints:
// clamp into the world margin, then quantize at the coarser cacheKeyQuantization
// granularity. Two requests whose raw endpoints clamp into the same bucket
// always produce the same key, regardless of the walkability of surrounding
// cells (the cache key never consults the grid's blocked/weight arrays).
func cacheKey(grid *navgrid.Grid, start, goal geometry.Vector2D, quant float64) uint64 {
	cs := clampToWorld(grid, start)
	cg := clampToWorld(grid, goal)
	return packCacheKey(
		quantizeBucket(cs.X, quant), quantizeBucket(cs.Y, quant),
		quantizeBucket(cg.X, quant), quantizeBucket(cg.Y, quant),
	)
}

// normalizeEndpoints runs the stricter, search-facing pipeline: clamp,
// snap-to-walkable, quantize at the finer endpointQuantization granularity,
// then re-clamp to undo any overshoot quantization introduced. It is a
// fixpoint after one application: re-running it on already-normalized
// endpoints reproduces the same result, since clamping, snapping an
// already-open cell's center, and quantizing an already-quantized value are
// each individually idempotent.
func normalizeEndpoints(grid *navgrid.Grid, start, goal geometry.Vector2D, quant float64) (geometry.Vector2D, geometry.Vector2D) {
	return normalizeOne(grid, start, quant), normalizeOne(grid, goal, quant)
}

func normalizeOne(grid *navgrid.Grid, pos geometry.Vector2D, quant float64) geometry.Vector2D {
	pos = clampToWorld(grid, pos)
	if snapped, ok := grid.SnapToNearestOpen(pos, snapRadiusCells); ok {
		pos = snapped
	}
	pos = geometry.Vector2D{X: quantizeRound(pos.X, quant), Y: quantizeRound(pos.Y, quant)}
	pos = clampToWorld(grid, pos)
	return pos
}

const (
	minEndpointQuantization = 128.0
	maxEndpointQuantization = 256.0
)

// tunedParams is the set of values the Dispatcher recomputes on every Grid
// rebuild.
type tunedParams struct {
	endpointQuantization       float64
	cacheKeyQuantization       float64
	hierarchicalThresholdWorld float64
	connectivityProbeCells     int
	prewarmN                   int
}

// autoTune derives every tunable from the rebuilt grid's dimensions. The
// pre-warm sector count N scales with world size, then cacheKeyQuantization
// is set to half a sector's width (worldW / 2N). Along x, each pre-warmed
// sector center then lies exactly on the lower edge of a cache bucket: a
// request from the center up to one bucket width past it shares the seeded
// key, while one just below the center falls into the neighboring bucket.
func autoTune(grid *navgrid.Grid) tunedParams {
	worldW := float64(grid.Width()) * grid.CellSize()
	worldH := float64(grid.Height()) * grid.CellSize()
	diagonal := math.Hypot(worldW, worldH)

	epq := worldW * 0.005
	if epq < minEndpointQuantization {
		epq = minEndpointQuantization
	}
	if epq > maxEndpointQuantization {
		epq = maxEndpointQuantization
	}

	n := prewarmSectorCount(worldW, worldH)
	ckq := worldW / (2 * float64(n))
	if ckq <= 0 {
		ckq = epq
	}

	connCells := int(math.Ceil(0.25 * float64(grid.Width())))
	if connCells < 1 {
		connCells = 1
	}

	return tunedParams{
		endpointQuantization:       epq,
		cacheKeyQuantization:       ckq,
		hierarchicalThresholdWorld: diagonal * 0.05,
		connectivityProbeCells:     connCells,
		prewarmN:                   n,
	}
}

// prewarmSectorCount tiers N by world size: 4 for small worlds, 8 for
// medium, 16 for large.
func prewarmSectorCount(worldW, worldH float64) int {
	largest := math.Max(worldW, worldH)
	switch {
	case largest <= 4096:
		return 4
	case largest <= 16384:
		return 8
	default:
		return 16
	}
}
