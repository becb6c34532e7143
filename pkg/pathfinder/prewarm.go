package pathfinder

import (
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
)

// prewarmDirections lists the 4 "forward" directions of an 8-connected
// sector grid: right, down, down-right, down-left. Walking only these from
// every sector visits each undirected edge exactly once, so pre-warming
// never submits both (a,b) and (b,a).
var prewarmDirections = [4][2]int{
	{1, 0}, {0, 1}, {1, 1}, {-1, 1},
}

// sectorCenter returns the world-space center of sector (ix, iy) out of an
// N x N division of grid's world extent.
func sectorCenter(grid *navgrid.Grid, ix, iy, n int) geometry.Vector2D {
	_, _, maxX, maxY := worldBounds(grid)
	sw, sh := maxX/float64(n), maxY/float64(n)
	return geometry.Vector2D{X: (float64(ix) + 0.5) * sw, Y: (float64(iy) + 0.5) * sh}
}

// prewarmEdges enumerates every forward-direction sector-to-sector pair for
// an N x N sector grid with 8-connectivity. Its length is exactly
// 2*N*(N-1) + 2*(N-1)^2 for N >= 1.
func prewarmEdges(n int) [][2][2]int {
	var edges [][2][2]int
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			for _, d := range prewarmDirections {
				jx, jy := ix+d[0], iy+d[1]
				if jx < 0 || jx >= n || jy < 0 || jy >= n {
					continue
				}
				edges = append(edges, [2][2]int{{ix, iy}, {jx, jy}})
			}
		}
	}
	return edges
}
