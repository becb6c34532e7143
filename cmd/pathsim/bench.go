package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kestrelgames/pathkeeper/pkg/events"
	"github.com/kestrelgames/pathkeeper/pkg/geometry"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
	"github.com/kestrelgames/pathkeeper/pkg/navsearch"
	"github.com/kestrelgames/pathkeeper/pkg/pathfinder"
	"github.com/kestrelgames/pathkeeper/pkg/taskpool"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/actor"
)

func newBenchCmd() *cobra.Command {
	var requests int
	var worldTiles int
	var obstacleFraction float64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Submit a burst of random path requests and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pathfinder.LoadConfig(configFile, schemaFile)
			if err != nil {
				return fmt.Errorf("pathsim: load config: %w", err)
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("pathsim: build logger: %w", err)
			}
			defer logger.Sync()
			sugar := logger.Sugar()

			ctx := context.Background()
			system, err := actor.NewActorSystem("pathsim-bench", actor.WithLogger(&zapAdapter{SugaredLogger: sugar}))
			if err != nil {
				return fmt.Errorf("pathsim: new actor system: %w", err)
			}
			if err := system.Start(ctx); err != nil {
				return fmt.Errorf("pathsim: start actor system: %w", err)
			}
			defer system.Stop(ctx)

			pool, err := taskpool.NewActorPool(ctx, system, sugar, taskpool.DefaultWorkerCounts())
			if err != nil {
				return fmt.Errorf("pathsim: new actor pool: %w", err)
			}
			defer pool.Shutdown(ctx)

			source := navgrid.NewStaticTileSource(worldTiles, worldTiles, 32)
			seedObstacles(source, worldTiles, obstacleFraction)

			d := pathfinder.NewDispatcher(pathfinder.Options{
				Logger: sugar,
				Pool:   pool,
				Source: source,
				Bus:    events.NewSimpleBus(),
				Params: navgrid.Params{
					AllowDiagonal: cfg.AllowDiagonal,
					MaxIterations: cfg.MaxIterations,
					CostStraight:  cfg.CostStraight,
					CostDiagonal:  cfg.CostDiagonal,
				},
				CacheCapacity: cfg.CacheCapacity,
			})
			if err := d.Init(ctx); err != nil {
				return fmt.Errorf("pathsim: init dispatcher: %w", err)
			}
			defer d.Clean(ctx)
			d.ResetStats()

			worldSpan := float64(worldTiles) * d.Grid().CellSize()
			rng := rand.New(rand.NewSource(1))

			var wg sync.WaitGroup
			wg.Add(requests)
			start := time.Now()
			for i := 0; i < requests; i++ {
				s := geometry.Vector2D{X: rng.Float64() * worldSpan, Y: rng.Float64() * worldSpan}
				g := geometry.Vector2D{X: rng.Float64() * worldSpan, Y: rng.Float64() * worldSpan}
				d.RequestPath(fmt.Sprintf("bench-%d", i), s, g, taskpool.Normal,
					func(navsearch.Result, []geometry.Vector2D) { wg.Done() })
			}
			wg.Wait()
			elapsed := time.Since(start)

			snap := d.GetStats()
			fmt.Printf("submitted %d requests in %s\n", requests, elapsed)
			fmt.Printf("completed=%d failed=%d timeouts=%d cacheHits=%d cacheMisses=%d cacheSize=%d avgMs=%.3f rps=%.1f\n",
				snap.Completed, snap.Failed, snap.Timeouts, snap.CacheHits, snap.CacheMisses, snap.CacheSize, snap.AvgProcessingMS, snap.RequestsPerSecond)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&requests, "requests", 2000, "number of random path requests to submit")
	flags.IntVar(&worldTiles, "world-tiles", 128, "world width and height, in tiles")
	flags.Float64Var(&obstacleFraction, "obstacle-fraction", 0.15, "fraction of tiles seeded as blocking obstacles")
	return cmd
}

func seedObstacles(source *navgrid.StaticTileSource, worldTiles int, fraction float64) {
	if fraction <= 0 {
		return
	}
	rng := rand.New(rand.NewSource(2))
	for y := 0; y < worldTiles; y++ {
		for x := 0; x < worldTiles; x++ {
			if rng.Float64() < fraction {
				source.SetBlocked(x, y, true)
			}
		}
	}
}
