package pathfinder

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds the Dispatcher's monotonic counters plus the bookkeeping
// needed to derive a requests-per-second rate over the current reporting
// window. All counter fields are atomics so task goroutines never contend
// on a lock just to bump a counter.
type Stats struct {
	Enqueued     atomic.Uint64
	Completed    atomic.Uint64
	Failed       atomic.Uint64
	Timeouts     atomic.Uint64
	CacheHits    atomic.Uint64
	CacheMisses  atomic.Uint64
	ProcessingNS atomic.Uint64

	// Inputs for the snapshot's mean waypoints-per-successful-path figure.
	pathLenSum   atomic.Uint64 // sum of waypoint counts across successful paths
	pathLenCount atomic.Uint64

	windowMu    sync.Mutex
	windowStart time.Time
	framesSinceReset atomic.Uint64
}

// NewStats returns a zeroed Stats with its reporting window starting now.
func NewStats() *Stats {
	return &Stats{windowStart: time.Now()}
}

func (s *Stats) incEnqueued()            { s.Enqueued.Add(1) }
func (s *Stats) incCompleted()           { s.Completed.Add(1) }
func (s *Stats) incFailed()              { s.Failed.Add(1) }
func (s *Stats) incTimeout() uint64      { return s.Timeouts.Add(1) }
func (s *Stats) incCacheHit()            { s.CacheHits.Add(1) }
func (s *Stats) incCacheMiss()           { s.CacheMisses.Add(1) }
func (s *Stats) addProcessingTime(d time.Duration) {
	if d < 0 {
		return
	}
	s.ProcessingNS.Add(uint64(d.Nanoseconds()))
}

func (s *Stats) addPathLength(n int) {
	if n <= 0 {
		return
	}
	s.pathLenSum.Add(uint64(n))
	s.pathLenCount.Add(1)
}

func (s *Stats) tickFrame() { s.framesSinceReset.Add(1) }

// StatsSnapshot is the read-only view GetStats() returns; it is a plain
// value so callers can log or serialize it without touching the live
// counters again.
type StatsSnapshot struct {
	Enqueued          uint64
	Completed         uint64
	Failed            uint64
	Timeouts          uint64
	CacheHits         uint64
	CacheMisses       uint64
	CacheSize         int
	AvgProcessingMS   float64
	AvgPathLength     float64
	RequestsPerSecond float64
	FramesSinceReset  uint64
}

// snapshot builds a StatsSnapshot. cacheSize is passed in by the caller
// (the Dispatcher), since Stats has no reference to the cache itself.
func (s *Stats) snapshot(cacheSize int) StatsSnapshot {
	completed := s.Completed.Load()
	var avgMS float64
	if completed > 0 {
		avgMS = float64(s.ProcessingNS.Load()) / float64(completed) / float64(time.Millisecond)
	}
	var avgPathLen float64
	if n := s.pathLenCount.Load(); n > 0 {
		avgPathLen = float64(s.pathLenSum.Load()) / float64(n)
	}

	s.windowMu.Lock()
	elapsed := time.Since(s.windowStart).Seconds()
	s.windowMu.Unlock()
	var rps float64
	if elapsed > 0 {
		rps = float64(completed) / elapsed
	}

	return StatsSnapshot{
		Enqueued:          s.Enqueued.Load(),
		Completed:         completed,
		Failed:            s.Failed.Load(),
		Timeouts:          s.Timeouts.Load(),
		CacheHits:         s.CacheHits.Load(),
		CacheMisses:       s.CacheMisses.Load(),
		CacheSize:         cacheSize,
		AvgProcessingMS:   avgMS,
		AvgPathLength:     avgPathLen,
		RequestsPerSecond: rps,
		FramesSinceReset:  s.framesSinceReset.Load(),
	}
}

// reset zeroes every counter and restarts the reporting window. Called on
// clean/transition and after each periodic report.
func (s *Stats) reset() {
	s.Enqueued.Store(0)
	s.Completed.Store(0)
	s.Failed.Store(0)
	s.Timeouts.Store(0)
	s.CacheHits.Store(0)
	s.CacheMisses.Store(0)
	s.ProcessingNS.Store(0)
	s.pathLenSum.Store(0)
	s.pathLenCount.Store(0)
	s.framesSinceReset.Store(0)
	s.windowMu.Lock()
	s.windowStart = time.Now()
	s.windowMu.Unlock()
}
