package navgrid

// TileSource is the external, authoritative world/tile system the Grid reads
// from on rebuild. The core never owns tile data; it only consumes this
// surface, exactly as an out-of-scope collaborator.
type TileSource interface {
	HasActiveWorld() bool
	WorldDimensions() (width, height int, ok bool)
	WorldBounds() (minX, minY, maxX, maxY float64, ok bool)
	// IsWalkable reports whether the tile at (tileX, tileY) can be entered.
	IsWalkable(tileX, tileY int) bool
	// Weight returns the per-tile traversal multiplier (e.g. 2.0 for water,
	// 1.0 for ordinary terrain). Blocked tiles may return any value; it is
	// never consulted.
	Weight(tileX, tileY int) float64
	// TileWorldSize is the world-unit size of one tile. It is independent
	// of the Grid's own cellSize (the Grid may quantize at a coarser or
	// finer granularity than the raw tile grid).
	TileWorldSize() float64
}

// StaticTileSource is an in-memory reference TileSource used by tests and
// the demo command. Tiles default to walkable with weight 1.0.
type StaticTileSource struct {
	width, height int
	tileSize      float64
	blocked       map[[2]int]bool
	weights       map[[2]int]float64
}

// NewStaticTileSource builds a width x height tile world with the given
// per-tile world size. Every tile starts walkable with weight 1.0.
func NewStaticTileSource(width, height int, tileSize float64) *StaticTileSource {
	return &StaticTileSource{
		width:    width,
		height:   height,
		tileSize: tileSize,
		blocked:  make(map[[2]int]bool),
		weights:  make(map[[2]int]float64),
	}
}

func (s *StaticTileSource) HasActiveWorld() bool { return s.width > 0 && s.height > 0 }

func (s *StaticTileSource) WorldDimensions() (int, int, bool) {
	if !s.HasActiveWorld() {
		return 0, 0, false
	}
	return s.width, s.height, true
}

func (s *StaticTileSource) WorldBounds() (minX, minY, maxX, maxY float64, ok bool) {
	if !s.HasActiveWorld() {
		return 0, 0, 0, 0, false
	}
	return 0, 0, float64(s.width) * s.tileSize, float64(s.height) * s.tileSize, true
}

func (s *StaticTileSource) IsWalkable(tileX, tileY int) bool {
	if tileX < 0 || tileY < 0 || tileX >= s.width || tileY >= s.height {
		return false
	}
	return !s.blocked[[2]int{tileX, tileY}]
}

func (s *StaticTileSource) Weight(tileX, tileY int) float64 {
	if w, ok := s.weights[[2]int{tileX, tileY}]; ok {
		return w
	}
	return 1.0
}

func (s *StaticTileSource) TileWorldSize() float64 { return s.tileSize }

// SetBlocked marks a tile impassable (or clears it).
func (s *StaticTileSource) SetBlocked(tileX, tileY int, blocked bool) {
	key := [2]int{tileX, tileY}
	if blocked {
		s.blocked[key] = true
	} else {
		delete(s.blocked, key)
	}
}

// SetWeight sets a tile's traversal multiplier.
func (s *StaticTileSource) SetWeight(tileX, tileY int, weight float64) {
	s.weights[[2]int{tileX, tileY}] = weight
}

// BlockRect blocks every tile in [x0, x1] x [y0, y1], inclusive.
func (s *StaticTileSource) BlockRect(x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			s.SetBlocked(x, y, true)
		}
	}
}
