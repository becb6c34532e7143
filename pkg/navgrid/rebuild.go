package navgrid

import (
	"context"
	"fmt"
	"math"

	"github.com/kestrelgames/pathkeeper/pkg/taskpool"
	"golang.org/x/sync/errgroup"
)

// RebuildFromWorldRange rebuilds rows [rowStart, rowEnd) from source. Both
// bounds are clamped to the grid's height. It never touches dirty regions or
// the coarse overlay; callers orchestrate those separately.
func (g *Grid) RebuildFromWorldRange(source TileSource, rowStart, rowEnd int) {
	if rowStart < 0 {
		rowStart = 0
	}
	if rowEnd > g.height {
		rowEnd = g.height
	}
	tileSize := source.TileWorldSize()
	for gy := rowStart; gy < rowEnd; gy++ {
		worldY := g.offsetY + (float64(gy)+0.5)*g.cellSize
		for gx := 0; gx < g.width; gx++ {
			worldX := g.offsetX + (float64(gx)+0.5)*g.cellSize
			tileX := int(math.Floor(worldX / tileSize))
			tileY := int(math.Floor(worldY / tileSize))
			idx := g.index(gx, gy)
			g.blocked[idx] = !source.IsWalkable(tileX, tileY)
			w := source.Weight(tileX, tileY)
			if w < 1.0 {
				w = 1.0
			}
			g.weight[idx] = w
		}
	}
}

// RebuildFromWorld performs the full, three-phase rebuild: allocate fresh
// buffers, partition rows across the worker pool using its own batching
// advice (running sequentially if only one strip is advised), then rebuild
// the coarse overlay. It does not publish itself anywhere; the caller (the
// Dispatcher) owns atomically swapping the live Grid handle.
func (g *Grid) RebuildFromWorld(ctx context.Context, pool taskpool.WorkerPool, source TileSource) error {
	if !source.HasActiveWorld() {
		return fmt.Errorf("navgrid: rebuild requested with no active world")
	}
	g.InitializeArrays()

	workers := pool.GetOptimalWorkers("rebuild", g.height)
	batchCount, batchSize := pool.GetBatchStrategy("rebuild", g.height, workers)

	if batchCount <= 1 {
		g.RebuildFromWorldRange(source, 0, g.height)
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		for b := 0; b < batchCount; b++ {
			rowStart := b * batchSize
			rowEnd := rowStart + batchSize
			if rowEnd > g.height {
				rowEnd = g.height
			}
			if rowStart >= rowEnd {
				continue
			}
			start, end := rowStart, rowEnd
			eg.Go(func() error {
				select {
				case <-egCtx.Done():
					return egCtx.Err()
				default:
				}
				done := pool.EnqueueWithResult(egCtx, func() {
					g.RebuildFromWorldRange(source, start, end)
				}, taskpool.Normal, fmt.Sprintf("grid-rebuild-rows-%d-%d", start, end))
				select {
				case <-done:
					return nil
				case <-egCtx.Done():
					return egCtx.Err()
				}
			})
		}
		if err := eg.Wait(); err != nil {
			return fmt.Errorf("navgrid: parallel rebuild: %w", err)
		}
	}

	g.UpdateCoarseOverlay()
	g.ClearDirtyRegions()
	return nil
}

// RebuildDirtyRegions re-reads each accumulated dirty region from source in
// place, then clears the dirty set. Callers should only invoke this when
// DirtyPercent() is within the incremental-rebuild threshold; above that, a
// full RebuildFromWorld is cheaper and simpler to reason about.
func (g *Grid) RebuildDirtyRegions(source TileSource) {
	regions := g.DirtyRegionsSnapshot()
	for _, r := range regions {
		rowEnd := r.Y + r.H
		if rowEnd > g.height {
			rowEnd = g.height
		}
		colEnd := r.X + r.W
		if colEnd > g.width {
			colEnd = g.width
		}
		tileSize := source.TileWorldSize()
		for gy := r.Y; gy < rowEnd; gy++ {
			if gy < 0 {
				continue
			}
			worldY := g.offsetY + (float64(gy)+0.5)*g.cellSize
			for gx := r.X; gx < colEnd; gx++ {
				if gx < 0 {
					continue
				}
				worldX := g.offsetX + (float64(gx)+0.5)*g.cellSize
				tileX := int(math.Floor(worldX / tileSize))
				tileY := int(math.Floor(worldY / tileSize))
				idx := g.index(gx, gy)
				g.blocked[idx] = !source.IsWalkable(tileX, tileY)
				w := source.Weight(tileX, tileY)
				if w < 1.0 {
					w = 1.0
				}
				g.weight[idx] = w
			}
		}
	}
	g.ClearDirtyRegions()
	g.UpdateCoarseOverlay()
}

// UpdateCoarseOverlay recomputes the coarse grid from the current fine grid.
// A coarse cell is walkable iff any fine cell in its 4x4 block is walkable;
// its weight is the mean of the walkable fine cells' weights, or 1.0 if the
// whole block is blocked.
func (g *Grid) UpdateCoarseOverlay() {
	coarseW := int(math.Ceil(float64(g.width) / CoarseMultiplier))
	coarseH := int(math.Ceil(float64(g.height) / CoarseMultiplier))
	if coarseW < 1 {
		coarseW = 1
	}
	if coarseH < 1 {
		coarseH = 1
	}
	params := g.params
	params.CostStraight = g.params.CostStraight * CoarseMultiplier
	params.CostDiagonal = g.params.CostDiagonal * CoarseMultiplier

	coarse := NewGrid(coarseW, coarseH, g.cellSize*CoarseMultiplier, g.offsetX, g.offsetY, params)

	for cy := 0; cy < coarseH; cy++ {
		for cx := 0; cx < coarseW; cx++ {
			anyOpen := false
			sum := 0.0
			count := 0
			for dy := 0; dy < int(CoarseMultiplier); dy++ {
				for dx := 0; dx < int(CoarseMultiplier); dx++ {
					fx := cx*int(CoarseMultiplier) + dx
					fy := cy*int(CoarseMultiplier) + dy
					if !g.InBounds(fx, fy) {
						continue
					}
					if !g.IsBlocked(fx, fy) {
						anyOpen = true
						sum += g.GetWeight(fx, fy)
						count++
					}
				}
			}
			coarse.SetBlocked(cx, cy, !anyOpen)
			if anyOpen && count > 0 {
				coarse.SetWeight(cx, cy, sum/float64(count))
			} else {
				coarse.SetWeight(cx, cy, 1.0)
			}
		}
	}
	g.coarse = coarse
}
