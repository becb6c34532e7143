package pathfinder

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/kestrelgames/pathkeeper/pkg/events"
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
	"go.uber.org/zap"
)

// InvalidationListener subscribes to collision and world-mutation events and
// translates them into Grid dirty marks and cache evictions. It refers to
// its owning Dispatcher through a plain (non-owning) pointer, valid only
// while that Dispatcher is alive; the Dispatcher subscribes it on Init and
// unsubscribes it on Clean, never the reverse.
type InvalidationListener struct {
	dispatcher *Dispatcher
	bus        events.Bus
	source     navgrid.TileSource
	logger     *zap.SugaredLogger

	collisionVersion atomic.Uint64
	unsubs           []func()
}

func newInvalidationListener(d *Dispatcher, bus events.Bus, source navgrid.TileSource, logger *zap.SugaredLogger) *InvalidationListener {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &InvalidationListener{dispatcher: d, bus: bus, source: source, logger: logger}
}

// Subscribe registers every handler with the bus. Safe to call once; a
// second call before Unsubscribe would double-subscribe.
func (l *InvalidationListener) Subscribe() {
	if l.bus == nil {
		return
	}
	l.unsubs = []func(){
		l.bus.Subscribe((events.CollisionObstacleChanged{}).Topic(), l.onCollision),
		l.bus.Subscribe((events.WorldLoaded{}).Topic(), l.onWorldLoaded),
		l.bus.Subscribe((events.WorldUnloaded{}).Topic(), l.onWorldUnloaded),
		l.bus.Subscribe((events.TileChanged{}).Topic(), l.onTileChanged),
	}
}

// Unsubscribe removes every handler registered by Subscribe.
func (l *InvalidationListener) Unsubscribe() {
	for _, u := range l.unsubs {
		u()
	}
	l.unsubs = nil
}

// CollisionVersion is a monotonic counter bumped on every collision
// invalidation, carried for future invalidation-aware logic.
func (l *InvalidationListener) CollisionVersion() uint64 { return l.collisionVersion.Load() }

func (l *InvalidationListener) onCollision(e events.Event) {
	if l.dispatcher == nil || !l.dispatcher.initialized.Load() {
		return
	}
	ev, ok := e.(events.CollisionObstacleChanged)
	if !ok {
		return
	}
	if grid := l.dispatcher.grid.Load(); grid != nil {
		cellRadius := int(math.Ceil(ev.Radius/grid.CellSize())) + 1
		gx, gy := grid.WorldToGrid(ev.Position)
		side := cellRadius*2 + 1
		grid.MarkDirtyRegion(gx-cellRadius, gy-cellRadius, side, side)
	}
	removed := l.dispatcher.cache.evictIntersecting(func(path []geometry.Vector2D) bool {
		return pathNear(path, ev.Position, ev.Radius)
	})
	l.collisionVersion.Add(1)
	if removed > 0 {
		l.logger.Infow("invalidation: collision evicted cached paths",
			"count", removed, "emitter", ev.EmitterID, "description", ev.Description)
	}
}

func (l *InvalidationListener) onWorldLoaded(e events.Event) {
	if l.dispatcher == nil || !l.dispatcher.initialized.Load() {
		return
	}
	if _, ok := e.(events.WorldLoaded); !ok {
		return
	}
	l.dispatcher.cache.clear()
	// Non-incremental: discard whatever dirty state exists and rebuild from
	// scratch. Auto-tuning and pre-warming follow automatically inside
	// fullRebuildNow.
	if err := l.dispatcher.fullRebuildNow(context.Background()); err != nil {
		l.logger.Warnw("invalidation: world-loaded rebuild failed", "error", err)
	}
}

// onWorldUnloaded is acknowledged but takes no direct action: by the time
// WorldUnloaded is published, the caller has already invoked
// PrepareForStateTransition, which cleared the cache and live grid.
func (l *InvalidationListener) onWorldUnloaded(events.Event) {}

func (l *InvalidationListener) onTileChanged(e events.Event) {
	if l.dispatcher == nil || !l.dispatcher.initialized.Load() {
		return
	}
	ev, ok := e.(events.TileChanged)
	if !ok {
		return
	}
	tileSize := l.source.TileWorldSize()
	center := geometry.Vector2D{
		X: (float64(ev.TileX) + 0.5) * tileSize,
		Y: (float64(ev.TileY) + 0.5) * tileSize,
	}
	if grid := l.dispatcher.grid.Load(); grid != nil {
		gx, gy := grid.WorldToGrid(center)
		grid.MarkDirtyRegion(gx, gy, 1, 1)
	}
	radius := 1.5 * tileSize
	l.dispatcher.cache.evictIntersecting(func(path []geometry.Vector2D) bool {
		return pathNear(path, center, radius)
	})
}

func pathNear(path []geometry.Vector2D, center geometry.Vector2D, radius float64) bool {
	radiusSq := radius * radius
	for _, wp := range path {
		if wp.DistanceSquaredTo(center) <= radiusSq {
			return true
		}
	}
	return false
}
