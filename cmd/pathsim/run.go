package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/kestrelgames/pathkeeper/pkg/events"
	"github.com/kestrelgames/pathkeeper/pkg/navgrid"
	"github.com/kestrelgames/pathkeeper/pkg/pathfinder"
	"github.com/kestrelgames/pathkeeper/pkg/taskpool"
	"github.com/kestrelgames/pathkeeper/pkg/telemetry"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/actor"
)

func newRunCmd() *cobra.Command {
	var telemetryAddr string
	var watchConfig bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interactive pathfinding demo",
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
			system, err := actor.NewActorSystem("pathsim", actor.WithLogger(&zapAdapter{SugaredLogger: sugar}))
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

			source := navgrid.NewStaticTileSource(worldTiles, worldTiles, tileSize)
			seedObstacles(source, worldTiles, 0.12)

			bus := events.NewSimpleBus()
			slots := newAgentSlots(numAgents)

			d := pathfinder.NewDispatcher(pathfinder.Options{
				Logger: sugar,
				Pool:   pool,
				Source: source,
				Bus:    bus,
				Slots:  slots,
				Params: navgrid.Params{
					AllowDiagonal: cfg.AllowDiagonal,
					MaxIterations: cfg.MaxIterations,
					CostStraight:  cfg.CostStraight,
					CostDiagonal:  cfg.CostDiagonal,
				},
				CacheCapacity:        cfg.CacheCapacity,
				ReportIntervalFrames: cfg.ReportIntervalFrames,
			})
			if err := d.Init(ctx); err != nil {
				return fmt.Errorf("pathsim: init dispatcher: %w", err)
			}
			defer d.Clean(ctx)
			d.Apply(cfg)

			if watchConfig {
				stop, err := d.WatchConfig(configFile, schemaFile, sugar)
				if err != nil {
					sugar.Warnw("pathsim: config watch disabled", "error", err)
				} else {
					defer stop()
				}
			}

			var telServer *telemetry.Server
			if telemetryAddr != "" {
				telServer = telemetry.NewServer(telemetryAddr, d, time.Second, sugar)
				telServer.Start()
				defer telServer.Shutdown(ctx)
			}

			g := newGame(ctx, d, source, bus, slots, telServer, sugar)

			ebiten.SetWindowTitle("pathsim")
			ebiten.SetWindowSize(int(float64(worldTiles)*tileSize), int(float64(worldTiles)*tileSize))
			return ebiten.RunGame(g)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&telemetryAddr, "telemetry-addr", "", "address to serve /stats and /ws on (empty disables telemetry)")
	flags.BoolVar(&watchConfig, "watch-config", true, "hot-reload the config file on change")
	return cmd
}
