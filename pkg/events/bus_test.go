package events

import (
	"testing"

	"github.com/kestrelgames/pathkeeper/pkg/geometry"
)

func TestSimpleBus_PublishDeliversToSubscriber(t *testing.T) {
	b := NewSimpleBus()
	var got Event
	b.Subscribe("world.loaded", func(e Event) { got = e })

	b.Publish(WorldLoaded{Width: 100, Height: 80})

	wl, ok := got.(WorldLoaded)
	if !ok {
		t.Fatalf("got %T, want WorldLoaded", got)
	}
	if wl.Width != 100 || wl.Height != 80 {
		t.Fatalf("got %+v, want {100 80}", wl)
	}
}

func TestSimpleBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewSimpleBus()
	calls := 0
	unsub := b.Subscribe("world.unloaded", func(Event) { calls++ })

	b.Publish(WorldUnloaded{})
	unsub()
	b.Publish(WorldUnloaded{})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSimpleBus_UnsubscribeTwiceIsNoOp(t *testing.T) {
	b := NewSimpleBus()
	unsub := b.Subscribe("world.unloaded", func(Event) {})
	unsub()
	unsub() // must not panic
}

func TestSimpleBus_TopicIsolation(t *testing.T) {
	b := NewSimpleBus()
	tileCalls, worldCalls := 0, 0
	b.Subscribe("world.tile_changed", func(Event) { tileCalls++ })
	b.Subscribe("world.loaded", func(Event) { worldCalls++ })

	b.Publish(TileChanged{TileX: 1, TileY: 2})

	if tileCalls != 1 || worldCalls != 0 {
		t.Fatalf("tileCalls=%d worldCalls=%d, want 1,0", tileCalls, worldCalls)
	}
}

func TestSimpleBus_MultipleSubscribersSameTopic(t *testing.T) {
	b := NewSimpleBus()
	order := []int{}
	b.Subscribe("collision.obstacle_changed", func(Event) { order = append(order, 1) })
	b.Subscribe("collision.obstacle_changed", func(Event) { order = append(order, 2) })

	b.Publish(CollisionObstacleChanged{
		Position:    geometry.Vector2D{X: 1, Y: 1},
		Radius:      4,
		Description: "crate",
		EmitterID:   NewCollisionEmitterID(),
	})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2] (registration order)", order)
	}
}
