package pathfinder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelgames/pathkeeper/pkg/events"
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
	"github.com/kestrelgames/pathkeeper/pkg/navsearch"
	"github.com/kestrelgames/pathkeeper/pkg/taskpool"
	"go.uber.org/zap"
)

// DefaultCacheCapacity and DefaultReportIntervalFrames apply when the
// corresponding Options fields are zero.
const (
	DefaultCacheCapacity        = 4096
	DefaultReportIntervalFrames = 600
)

// Dispatcher is the request dispatcher: it owns the live Grid handle, the
// path cache, statistics, and the invalidation listener. Its public
// mutators may be called from any goroutine (typically the engine's main
// thread); search tasks it submits always run on worker goroutines.
type Dispatcher struct {
	logger *zap.SugaredLogger
	engine *navsearch.SearchEngine
	pool   taskpool.WorkerPool
	source navgrid.TileSource
	slots  WaypointSlots

	grid atomic.Pointer[navgrid.Grid]

	cache *pathCache
	Stats *Stats

	nextRequestID atomic.Uint64
	paused        atomic.Bool
	shutdown      atomic.Bool
	initialized   atomic.Bool
	rebuilding    atomic.Bool

	rebuildWG sync.WaitGroup

	// tunables, set at construction and by configuration setters / auto-tune.
	maxIterations    atomic.Int64
	allowDiagonal    atomic.Bool
	costStraight     atomic.Int64 // math.Float64bits
	costDiagonal     atomic.Int64 // math.Float64bits
	maxPathsPerFrame atomic.Int64

	endpointQuantization       atomic.Int64 // math.Float64bits
	cacheKeyQuantization       atomic.Int64 // math.Float64bits
	hierarchicalThresholdWorld atomic.Int64 // math.Float64bits
	connectivityProbeCells     atomic.Int64
	prewarmN                   atomic.Int64

	frameCounter         atomic.Uint64
	reportIntervalFrames atomic.Int64

	listener *InvalidationListener
}

// Options configure a new Dispatcher. Zero values fall back to sane
// defaults in NewDispatcher.
type Options struct {
	Logger               *zap.SugaredLogger
	Engine               *navsearch.SearchEngine
	Pool                 taskpool.WorkerPool
	Source               navgrid.TileSource
	Bus                  events.Bus
	Slots                WaypointSlots
	CacheCapacity        int
	ReportIntervalFrames int
	Params               navgrid.Params
}

// NewDispatcher builds a Dispatcher. Callers must still call Init to
// construct the first Grid and subscribe the invalidation listener.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	engine := opts.Engine
	if engine == nil {
		engine = navsearch.NewSearchEngine()
	}
	capacity := opts.CacheCapacity
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	reportInterval := opts.ReportIntervalFrames
	if reportInterval <= 0 {
		reportInterval = DefaultReportIntervalFrames
	}

	d := &Dispatcher{
		logger: logger,
		engine: engine,
		pool:   opts.Pool,
		source: opts.Source,
		slots:  opts.Slots,
		cache:  newPathCache(capacity),
		Stats:  NewStats(),
	}
	d.reportIntervalFrames.Store(int64(reportInterval))

	params := opts.Params
	if params.MaxIterations <= 0 {
		params.MaxIterations = navgrid.DefaultMaxIterations
	}
	if params.CostStraight <= 0 {
		params.CostStraight = navgrid.DefaultCostStraight
	}
	if params.CostDiagonal <= 0 {
		params.CostDiagonal = navgrid.DefaultCostDiagonal
	}
	d.maxIterations.Store(int64(params.MaxIterations))
	d.allowDiagonal.Store(params.AllowDiagonal)
	d.costStraight.Store(int64(math.Float64bits(params.CostStraight)))
	d.costDiagonal.Store(int64(math.Float64bits(params.CostDiagonal)))
	d.maxPathsPerFrame.Store(64)

	d.endpointQuantization.Store(int64(math.Float64bits(minEndpointQuantization)))
	d.cacheKeyQuantization.Store(int64(math.Float64bits(minEndpointQuantization)))

	if opts.Bus != nil {
		d.listener = newInvalidationListener(d, opts.Bus, opts.Source, logger)
	}
	return d
}

func (d *Dispatcher) loadFloat(a *atomic.Int64) float64 { return math.Float64frombits(uint64(a.Load())) }
func (d *Dispatcher) storeFloat(a *atomic.Int64, v float64) { a.Store(int64(math.Float64bits(v))) }

func (d *Dispatcher) currentParams() navgrid.Params {
	return navgrid.Params{
		AllowDiagonal:              d.allowDiagonal.Load(),
		MaxIterations:              int(d.maxIterations.Load()),
		CostStraight:               d.loadFloat(&d.costStraight),
		CostDiagonal:               d.loadFloat(&d.costDiagonal),
		ConnectivityProbeCells:     int(d.connectivityProbeCells.Load()),
		HierarchicalThresholdWorld: d.loadFloat(&d.hierarchicalThresholdWorld),
	}
}

// Init builds the first Grid from the tile source and subscribes the
// invalidation listener. It is a no-op if already initialized.
func (d *Dispatcher) Init(ctx context.Context) error {
	if d.initialized.Load() {
		return nil
	}
	// Set before the rebuild, not after: fullRebuildNow's prewarm pass submits
	// search requests through the same path RequestPath uses, and submit
	// refuses to enqueue anything until the Dispatcher is marked initialized.
	d.initialized.Store(true)
	if err := d.fullRebuildNow(ctx); err != nil {
		d.initialized.Store(false)
		return fmt.Errorf("pathfinder: init rebuild: %w", err)
	}
	if d.listener != nil {
		d.listener.Subscribe()
	}
	return nil
}

func (d *Dispatcher) IsInitialized() bool { return d.initialized.Load() }

// IsRebuilding reports whether a scheduled background Grid rebuild is
// currently in flight (see Update). Callers driving a debug HUD can use
// this to gray out controls whose effect only lands on the next rebuild.
func (d *Dispatcher) IsRebuilding() bool { return d.rebuilding.Load() }

// Clean permanently shuts the Dispatcher down: it waits for outstanding
// rebuild futures, unsubscribes the invalidation listener, and marks every
// later public call a no-op. In-flight search tasks are allowed to finish;
// they observe the shutdown flag at their own safe points and skip callback
// delivery/state mutation if it's already set by the time they check.
func (d *Dispatcher) Clean(ctx context.Context) {
	d.shutdown.Store(true)
	d.rebuildWG.Wait()
	if d.listener != nil {
		d.listener.Unsubscribe()
	}
	d.initialized.Store(false)
}

// PrepareForStateTransition clears transient state (cache, live grid) ahead
// of a world unload, without permanently shutting the Dispatcher down the
// way Clean does. It waits on outstanding rebuild futures first so a
// concurrent rebuild can't resurrect a grid after the clear.
func (d *Dispatcher) PrepareForStateTransition() {
	d.rebuildWG.Wait()
	d.cache.clear()
	d.grid.Store(nil)
	d.Stats.reset()
}

// SetGlobalPause toggles whether Update performs periodic work. In-flight
// tasks are unaffected; pausing only stops new per-frame bookkeeping.
func (d *Dispatcher) SetGlobalPause(v bool) { d.paused.Store(v) }
func (d *Dispatcher) IsGloballyPaused() bool { return d.paused.Load() }

// SetMaxIterations, SetAllowDiagonal, SetMaxPathsPerFrame, and SetCacheTTL
// adjust live tunables. SetCacheTTL applies to cache lookups immediately.
// SetMaxIterations and SetAllowDiagonal are copied into the Params of the
// next Grid built by a full rebuild; searches over the Grid already
// published keep that Grid's Params. SetMaxPathsPerFrame only stores the
// value; request submission is not limited per frame.
func (d *Dispatcher) SetMaxIterations(n int) {
	if n > 0 {
		d.maxIterations.Store(int64(n))
	}
}
func (d *Dispatcher) SetAllowDiagonal(v bool)    { d.allowDiagonal.Store(v) }
func (d *Dispatcher) SetMaxPathsPerFrame(n int)  { d.maxPathsPerFrame.Store(int64(n)) }
func (d *Dispatcher) SetCacheCapacity(n int)     { d.cache.setCapacity(n) }
func (d *Dispatcher) SetCacheTTL(ttl time.Duration) { d.cache.setTTL(ttl) }

// AddTemporaryWeightField and ClearWeightFields mutate the live Grid
// directly without triggering a rebuild. They take no lock; the caller is
// responsible for serializing them with respect to concurrent searches
// over this Grid.
func (d *Dispatcher) AddTemporaryWeightField(center geometry.Vector2D, radius, weight float64) {
	if grid := d.grid.Load(); grid != nil {
		grid.AddWeightCircle(center, radius, weight)
	}
}

func (d *Dispatcher) ClearWeightFields() {
	if grid := d.grid.Load(); grid != nil {
		grid.ResetWeights(1.0)
	}
}

// GetStats returns a snapshot of the current counters and derived rates.
func (d *Dispatcher) GetStats() StatsSnapshot { return d.Stats.snapshot(d.cache.size()) }

// ResetStats zeroes every counter and restarts the reporting window.
func (d *Dispatcher) ResetStats() { d.Stats.reset() }

// Update performs once-per-frame bookkeeping: periodic stats reporting and,
// if the live grid has accumulated dirty regions, scheduling a rebuild.
// When globally paused it returns immediately.
func (d *Dispatcher) Update(ctx context.Context) {
	if d.paused.Load() || d.shutdown.Load() {
		return
	}
	d.Stats.tickFrame()
	frame := d.frameCounter.Add(1)
	interval := d.reportIntervalFrames.Load()
	if interval > 0 && frame%uint64(interval) == 0 {
		d.reportStats()
	}

	grid := d.grid.Load()
	if grid == nil || !grid.HasDirtyRegions() {
		return
	}
	if !d.rebuilding.CompareAndSwap(false, true) {
		return // a rebuild is already in flight
	}
	d.rebuildWG.Add(1)
	task := func() {
		defer d.rebuildWG.Done()
		defer d.rebuilding.Store(false)
		d.runScheduledRebuild(ctx)
	}
	if d.pool == nil {
		task()
		return
	}
	d.pool.Enqueue(task, taskpool.Normal, "grid-scheduled-rebuild")
}

func (d *Dispatcher) reportStats() {
	snap := d.GetStats()
	d.logger.Infow("pathfinder stats",
		"enqueued", snap.Enqueued, "completed", snap.Completed, "failed", snap.Failed,
		"timeouts", snap.Timeouts, "cacheHits", snap.CacheHits, "cacheMisses", snap.CacheMisses,
		"cacheSize", snap.CacheSize, "avgMs", snap.AvgProcessingMS, "rps", snap.RequestsPerSecond,
	)
	d.Stats.reset()
}

func (d *Dispatcher) runScheduledRebuild(ctx context.Context) {
	grid := d.grid.Load()
	if grid == nil {
		return
	}
	if grid.DirtyPercent() <= navgrid.DirtyRebuildThreshold {
		grid.RebuildDirtyRegions(d.source)
		return
	}
	if err := d.fullRebuildNow(ctx); err != nil {
		d.logger.Warnw("pathfinder: scheduled full rebuild failed, keeping previous grid", "error", err)
	}
}

// fullRebuildNow runs the three-phase full rebuild and, on success,
// publishes the new grid, auto-tunes, prunes the cache, and pre-warms.
// On failure the previously-published grid is left intact.
func (d *Dispatcher) fullRebuildNow(ctx context.Context) error {
	if !d.source.HasActiveWorld() {
		return fmt.Errorf("pathfinder: no active world")
	}
	width, height, ok := d.source.WorldDimensions()
	if !ok || width <= 0 || height <= 0 {
		return fmt.Errorf("pathfinder: invalid world dimensions")
	}
	cellSize := d.gridCellSize()
	newGrid := navgrid.NewGrid(width, height, cellSize, 0, 0, d.currentParams())
	if d.pool != nil {
		if err := newGrid.RebuildFromWorld(ctx, d.pool, d.source); err != nil {
			return err
		}
	} else {
		newGrid.RebuildFromWorldRange(d.source, 0, newGrid.Height())
		newGrid.UpdateCoarseOverlay()
	}

	tuned := autoTune(newGrid)
	params := newGrid.Params()
	params.ConnectivityProbeCells = tuned.connectivityProbeCells
	params.HierarchicalThresholdWorld = tuned.hierarchicalThresholdWorld
	newGrid.SetParams(params)

	d.grid.Store(newGrid)
	d.storeFloat(&d.endpointQuantization, tuned.endpointQuantization)
	d.storeFloat(&d.cacheKeyQuantization, tuned.cacheKeyQuantization)
	d.storeFloat(&d.hierarchicalThresholdWorld, tuned.hierarchicalThresholdWorld)
	d.connectivityProbeCells.Store(int64(tuned.connectivityProbeCells))
	d.prewarmN.Store(int64(tuned.prewarmN))

	d.cache.evictFraction(0.5)
	d.prewarm(newGrid, tuned.prewarmN)
	return nil
}

// defaultCellSize is independent of the source's tile size: the grid may
// quantize the world coarser or finer than the raw tile granularity.
const defaultCellSize = 64.0

func (d *Dispatcher) gridCellSize() float64 {
	if grid := d.grid.Load(); grid != nil {
		return grid.CellSize()
	}
	return defaultCellSize
}

func (d *Dispatcher) prewarm(grid *navgrid.Grid, n int) {
	if n <= 0 || d.pool == nil {
		return
	}
	for _, edge := range prewarmEdges(n) {
		from := sectorCenter(grid, edge[0][0], edge[0][1], n)
		to := sectorCenter(grid, edge[1][0], edge[1][1], n)
		d.RequestPath("", from, to, taskpool.Low, nil)
	}
}

// RequestPath is the async path request API: it returns immediately with a
// monotonic request id and delivers its result via onComplete on whichever
// worker goroutine completes the task.
func (d *Dispatcher) RequestPath(entityID string, start, goal geometry.Vector2D, priority taskpool.Priority, onComplete OnComplete) uint64 {
	return d.submit(entityID, start, goal, priority, onComplete, -1)
}

// RequestPathToSlot is identical to RequestPath except the result is
// written into slots[slotIndex] instead of invoking a callback.
func (d *Dispatcher) RequestPathToSlot(slotIndex int, start, goal geometry.Vector2D, priority taskpool.Priority) uint64 {
	return d.submit("", start, goal, priority, nil, slotIndex)
}

func (d *Dispatcher) submit(entityID string, start, goal geometry.Vector2D, priority taskpool.Priority, onComplete OnComplete, slotIndex int) uint64 {
	id := d.nextRequestID.Add(1)
	if d.shutdown.Load() || !d.initialized.Load() {
		return id
	}
	grid := d.grid.Load()
	if grid == nil {
		d.Stats.incFailed()
		d.deliver(nil, navsearch.InvalidStart, onComplete, slotIndex)
		return id
	}

	quant := d.loadFloat(&d.cacheKeyQuantization)
	key := cacheKey(grid, start, goal, quant)
	epq := d.loadFloat(&d.endpointQuantization)
	ns, ng := normalizeEndpoints(grid, start, goal, epq)

	d.Stats.incEnqueued()
	label := fmt.Sprintf("pathreq-%d-%s", id, entityID)
	if d.pool == nil {
		d.runSearchTask(grid, key, ns, ng, onComplete, slotIndex)
	} else {
		d.pool.Enqueue(func() {
			d.runSearchTask(grid, key, ns, ng, onComplete, slotIndex)
		}, priority, label)
	}
	return id
}

func (d *Dispatcher) runSearchTask(grid *navgrid.Grid, key uint64, start, goal geometry.Vector2D, onComplete OnComplete, slotIndex int) {
	if d.shutdown.Load() {
		return
	}
	if path, ok := d.cache.get(key); ok {
		d.Stats.incCacheHit()
		if d.shutdown.Load() {
			return
		}
		d.deliver(path, navsearch.Success, onComplete, slotIndex)
		return
	}
	d.Stats.incCacheMiss()
	if d.shutdown.Load() {
		return
	}

	searchStart := time.Now()
	var result navsearch.Result
	var path []geometry.Vector2D
	if d.engine.ShouldUseHierarchical(grid, start, goal) {
		result, path = d.engine.FindPathHierarchical(grid, start, goal)
	} else {
		result, path = d.engine.FindPath(grid, start, goal)
	}
	d.Stats.addProcessingTime(time.Since(searchStart))

	switch result {
	case navsearch.Success:
		d.Stats.incCompleted()
		d.Stats.addPathLength(len(path))
		if len(path) > 0 {
			d.cache.tryPut(key, path)
		}
	case navsearch.Timeout:
		d.noteTimeout(start, goal)
	default:
		d.Stats.incFailed()
	}

	if d.shutdown.Load() {
		return
	}
	d.deliver(path, result, onComplete, slotIndex)
}

func (d *Dispatcher) deliver(path []geometry.Vector2D, result navsearch.Result, onComplete OnComplete, slotIndex int) {
	if onComplete != nil {
		onComplete(result, path)
		return
	}
	if slotIndex >= 0 && d.slots != nil {
		d.slots.SetPath(slotIndex, path)
	}
}

// FindPathImmediate runs synchronously on the calling goroutine: its own
// normalization (skippable when the caller already normalized) followed by
// direct or hierarchical search. It never touches the cache.
func (d *Dispatcher) FindPathImmediate(start, goal geometry.Vector2D, skipNormalize bool) (navsearch.Result, []geometry.Vector2D) {
	if d.shutdown.Load() || !d.initialized.Load() {
		return navsearch.InvalidStart, nil
	}
	grid := d.grid.Load()
	if grid == nil {
		return navsearch.InvalidStart, nil
	}
	s, g := start, goal
	if !skipNormalize {
		epq := d.loadFloat(&d.endpointQuantization)
		s, g = normalizeEndpoints(grid, start, goal, epq)
	}

	t0 := time.Now()
	var result navsearch.Result
	var path []geometry.Vector2D
	if d.engine.ShouldUseHierarchical(grid, s, g) {
		result, path = d.engine.FindPathHierarchical(grid, s, g)
	} else {
		result, path = d.engine.FindPath(grid, s, g)
	}
	d.Stats.addProcessingTime(time.Since(t0))

	switch result {
	case navsearch.Success:
		d.Stats.incCompleted()
		d.Stats.addPathLength(len(path))
	case navsearch.Timeout:
		d.noteTimeout(s, g)
	default:
		d.Stats.incFailed()
	}
	return result, path
}

// timeoutLogEvery throttles the per-timeout warning so a burst of capped
// searches doesn't flood the log; the first of every window is logged with
// its query signature.
const timeoutLogEvery = 32

func (d *Dispatcher) noteTimeout(start, goal geometry.Vector2D) {
	if n := d.Stats.incTimeout(); n%timeoutLogEvery == 1 {
		d.logger.Warnw("pathfinder: search hit iteration cap",
			"start", start, "goal", goal, "timeouts", n)
	}
}

// Grid returns the currently-published live grid, or nil if none has been
// built yet or the dispatcher is mid-transition.
func (d *Dispatcher) Grid() *navgrid.Grid { return d.grid.Load() }
