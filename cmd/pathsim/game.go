package main

import (
	"context"
	"fmt"
	"image/color"
	"math/rand"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/kestrelgames/pathkeeper/pkg/events"
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
	"github.com/kestrelgames/pathkeeper/pkg/pathfinder"
	"github.com/kestrelgames/pathkeeper/pkg/taskpool"
	"github.com/kestrelgames/pathkeeper/pkg/telemetry"
	"github.com/kestrelgames/pathkeeper/pkg/ui"
	"go.uber.org/zap"
)

const (
	numAgents   = 24
	agentSpeed  = 180.0 // world units per second
	tileSize    = 32.0
	worldTiles  = 40
	waypointEps = 4.0
)

// agentSlots adapts a fixed-size slice of per-agent waypoint paths to the
// Dispatcher's WaypointSlots interface: many search workers call SetPath
// concurrently, so each slot is guarded by its own mutex rather than one
// lock for the whole table.
type agentSlots struct {
	mu    []sync.Mutex
	paths [][]geometry.Vector2D
}

func newAgentSlots(n int) *agentSlots {
	return &agentSlots{mu: make([]sync.Mutex, n), paths: make([][]geometry.Vector2D, n)}
}

func (a *agentSlots) SetPath(slot int, path []geometry.Vector2D) {
	if slot < 0 || slot >= len(a.paths) {
		return
	}
	a.mu[slot].Lock()
	a.paths[slot] = path
	a.mu[slot].Unlock()
}

func (a *agentSlots) get(slot int) []geometry.Vector2D {
	a.mu[slot].Lock()
	defer a.mu[slot].Unlock()
	return a.paths[slot]
}

type agent struct {
	pos      geometry.Vector2D
	waypoint int
	color    color.RGBA
}

// Game is the ebiten demo: a tile grid rendered with its blocked cells, a
// handful of agents continuously requesting new paths to random goals
// through the Dispatcher, and a small HUD for toggling runtime tunables.
type Game struct {
	ctx        context.Context
	dispatcher *pathfinder.Dispatcher
	source     *navgrid.StaticTileSource
	bus        events.Bus
	slots      *agentSlots
	agents     []*agent
	telemetry  *telemetry.Server
	logger     *zap.SugaredLogger

	panel          *ui.UIPanel
	toggleDiagonal *ui.Checkbox
	reseedButton   *ui.Button
	paused         bool
	spaceHeld      bool

	rng *rand.Rand
}

func newGame(ctx context.Context, d *pathfinder.Dispatcher, source *navgrid.StaticTileSource, bus events.Bus, slots *agentSlots, tel *telemetry.Server, logger *zap.SugaredLogger) *Game {
	g := &Game{ctx: ctx, dispatcher: d, source: source, bus: bus, slots: slots, telemetry: tel, logger: logger,
		rng: rand.New(rand.NewSource(42))}

	worldSpan := float64(worldTiles) * tileSize
	g.agents = make([]*agent, numAgents)
	for i := range g.agents {
		g.agents[i] = &agent{
			pos:   geometry.Vector2D{X: g.rng.Float64() * worldSpan, Y: g.rng.Float64() * worldSpan},
			color: color.RGBA{R: uint8(64 + g.rng.Intn(192)), G: uint8(64 + g.rng.Intn(192)), B: uint8(64 + g.rng.Intn(192)), A: 255},
		}
		g.requestNewGoal(i)
	}

	g.panel = ui.NewUIPanel(10, 10, 220, 150)
	g.panel.Title = "Pathfinder Debug"
	g.panel.AddSection("Dispatcher")
	g.toggleDiagonal = g.panel.AddCheckbox("Allow diagonal moves", true)
	g.panel.EndSection()
	g.reseedButton = ui.NewButton(10, 170, 200, 28, "Reseed obstacles", func() {
		seedObstacles(source, worldTiles, 0.12)
		if g.bus != nil {
			g.bus.Publish(events.WorldLoaded{Width: worldTiles, Height: worldTiles})
		}
	})
	return g
}

// refreshStatsFooter pushes a snapshot of the dispatcher's counters into the
// panel's pinned footer so cache behavior is visible without a telemetry
// client attached.
func (g *Game) refreshStatsFooter() {
	snap := g.dispatcher.GetStats()
	g.panel.SetFooterLines([]string{
		fmt.Sprintf("cache: %d hits / %d miss", snap.CacheHits, snap.CacheMisses),
		fmt.Sprintf("paths: %d ok / %d fail / %d timeout", snap.Completed, snap.Failed, snap.Timeouts),
	})
}

func (g *Game) requestNewGoal(i int) {
	worldSpan := float64(worldTiles) * tileSize
	goal := geometry.Vector2D{X: g.rng.Float64() * worldSpan, Y: g.rng.Float64() * worldSpan}
	g.dispatcher.RequestPathToSlot(i, g.agents[i].pos, goal, taskpool.Normal)
	g.agents[i].waypoint = 0
}

func (g *Game) Update() error {
	// Edge-triggered, like the checkbox's click debounce: a held key must
	// not flip pause every frame.
	if ebiten.IsKeyPressed(ebiten.KeySpace) {
		if !g.spaceHeld {
			g.paused = !g.paused
			g.spaceHeld = true
		}
	} else {
		g.spaceHeld = false
	}
	g.panel.Update()
	g.reseedButton.Disabled = g.paused
	g.reseedButton.Update()
	g.toggleDiagonal.Disabled = g.dispatcher.IsRebuilding()
	g.dispatcher.SetAllowDiagonal(g.toggleDiagonal.Value)
	g.dispatcher.SetGlobalPause(g.paused)
	g.dispatcher.Update(g.ctx)
	g.refreshStatsFooter()

	if g.paused {
		return nil
	}
	const dt = 1.0 / 60.0
	for i, a := range g.agents {
		path := g.slots.get(i)
		if len(path) == 0 || a.waypoint >= len(path) {
			g.requestNewGoal(i)
			continue
		}
		target := path[a.waypoint]
		if target.DistanceTo(a.pos) <= waypointEps {
			a.waypoint++
			continue
		}
		a.pos = a.pos.MoveToward(target, agentSpeed*dt)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 18, G: 18, B: 24, A: 255})
	grid := g.dispatcher.Grid()
	if grid != nil {
		for y := 0; y < grid.Height(); y++ {
			for x := 0; x < grid.Width(); x++ {
				if !grid.IsBlocked(x, y) {
					continue
				}
				vector.FillRect(screen, float32(x)*tileSize, float32(y)*tileSize, tileSize, tileSize,
					color.RGBA{R: 90, G: 50, B: 50, A: 255}, true)
			}
		}
	}
	for _, a := range g.agents {
		vector.FillCircle(screen, float32(a.pos.X), float32(a.pos.Y), 5, a.color, true)
	}

	g.panel.Draw(screen)
	g.reseedButton.Draw(screen)

	snap := g.dispatcher.GetStats()
	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("completed=%d failed=%d timeouts=%d hits=%d misses=%d cacheSize=%d avgMs=%.2f rps=%.1f\nspace: pause",
			snap.Completed, snap.Failed, snap.Timeouts, snap.CacheHits, snap.CacheMisses, snap.CacheSize, snap.AvgProcessingMS, snap.RequestsPerSecond),
		10, 250)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return int(float64(worldTiles) * tileSize), int(float64(worldTiles) * tileSize)
}
