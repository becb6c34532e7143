// Package pathfinder implements the request dispatcher: the component that
// serializes external callers' path requests into async tasks on a shared
// worker pool, maintains the coordinate-quantized result cache, and reacts
// to collision/world-mutation events by invalidating affected entries and
// scheduling grid rebuilds. It is the component the rest of the engine talks
// to; Grid and SearchEngine are its leaf collaborators.
package pathfinder

import (
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navsearch"
	"github.com/kestrelgames/pathkeeper/pkg/taskpool"
)

// OnComplete is invoked on the worker goroutine that finished the task; it
// is not serialized with respect to other callbacks.
type OnComplete func(result navsearch.Result, path []geometry.Vector2D)

// PathRequest bundles the inputs of one async request as a value type. The
// Dispatcher does not build PathRequest values: its submit path captures the
// cache key, the normalized endpoints, the callback and the slot directly in
// the task closure.
type PathRequest struct {
	ID         uint64
	EntityID   string
	Start      geometry.Vector2D
	Goal       geometry.Vector2D
	Priority   taskpool.Priority
	OnComplete OnComplete
	SlotIndex  int // -1 when the request uses OnComplete instead of a slot
}

// WaypointSlots is the external per-entity output surface RequestPathToSlot
// writes into instead of invoking a callback. Implementations are expected
// to be safe for concurrent SetPath calls from arbitrary worker goroutines.
type WaypointSlots interface {
	SetPath(slot int, path []geometry.Vector2D)
}
