// Package events is a small in-process publish/subscribe bus connecting the
// world/collision systems to anything that needs to react to them, such as
// the pathfinding core's invalidation listener. It is intentionally generic:
// it knows nothing about pathfinding.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
)

// Event is the common interface every published value satisfies. Topic
// groups related events so a subscriber can filter without a type switch.
type Event interface {
	Topic() string
}

// CollisionObstacleChanged is raised when a dynamic obstacle appears, moves,
// or is removed from the collision system. EmitterID identifies the
// publishing collision source; when that source has no stable id of its
// own, callers should fill it with a fresh uuid (see NewCollisionEmitterID)
// so repeated invalidations from the same object are traceable in logs.
type CollisionObstacleChanged struct {
	Position    geometry.Vector2D
	Radius      float64
	Description string
	EmitterID   string
}

// NewCollisionEmitterID returns a fresh random id for a collision source
// that has no stable identity of its own.
func NewCollisionEmitterID() string {
	return uuid.NewString()
}

func (CollisionObstacleChanged) Topic() string { return "collision.obstacle_changed" }

// WorldLoaded is raised once a world/tile system finishes loading a map of
// the given dimensions, in tiles.
type WorldLoaded struct {
	Width, Height int
}

func (WorldLoaded) Topic() string { return "world.loaded" }

// WorldUnloaded is raised when the active world is torn down.
type WorldUnloaded struct{}

func (WorldUnloaded) Topic() string { return "world.unloaded" }

// TileChanged is raised when a single tile's walkability or cost changes.
type TileChanged struct {
	TileX, TileY int
}

func (TileChanged) Topic() string { return "world.tile_changed" }

// Handler receives a published event. Handlers run synchronously on the
// publishing goroutine; a handler that blocks blocks every other subscriber
// on the same topic, so subscribers that need to do real work should hand
// off to their own goroutine or worker pool.
type Handler func(Event)

// Bus is anything that can publish and subscribe. Defined as an interface so
// consumers (the invalidation listener in particular) can be tested against
// a fake without spinning up the real bus.
type Bus interface {
	Subscribe(topic string, h Handler) (unsubscribe func())
	Publish(e Event)
}

// SimpleBus is a mutex-guarded map of topic to subscriber list. It makes no
// delivery-order or concurrency guarantees beyond "every subscriber
// registered at the moment of Publish is invoked once, in registration
// order."
type SimpleBus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	nextID      uint64
}

type subscription struct {
	id uint64
	h  Handler
}

// NewSimpleBus returns a ready-to-use bus.
func NewSimpleBus() *SimpleBus {
	return &SimpleBus{subscribers: make(map[string][]*subscription)}
}

// Subscribe registers h for topic and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *SimpleBus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[topic] = append(b.subscribers[topic], &subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subscribers[topic]
			for i, s := range subs {
				if s.id == id {
					b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish invokes every current subscriber of e.Topic() with e, in
// registration order. It copies the subscriber list under a read lock and
// releases the lock before any handler runs, so a handler may subscribe or
// unsubscribe on the same bus; such a change applies from the next Publish.
func (b *SimpleBus) Publish(e Event) {
	b.mu.RLock()
	subs := b.subscribers[e.Topic()]
	handlers := make([]Handler, len(subs))
	for i, s := range subs {
		handlers[i] = s.h
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
