package pathfinder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// Config is the hot-reloadable set of Dispatcher tunables, schema-validated
// against config_schema.json before use.
type Config struct {
	AllowDiagonal        bool    `json:"allowDiagonal"`
	MaxIterations        int     `json:"maxIterations"`
	CostStraight         float64 `json:"costStraight"`
	CostDiagonal         float64 `json:"costDiagonal"`
	MaxPathsPerFrame     int     `json:"maxPathsPerFrame"`
	CacheCapacity        int     `json:"cacheCapacity"`
	CacheTTLSeconds      float64 `json:"cacheTtlSeconds"`
	ReportIntervalFrames int     `json:"reportIntervalFrames"`
	LogLevel             string  `json:"logLevel"`
	LogFormat            string  `json:"logFormat"`
}

// DefaultConfig mirrors the navgrid/navsearch package defaults so a
// from-scratch config.json can start from values already known to work.
func DefaultConfig() *Config {
	return &Config{
		AllowDiagonal:        true,
		MaxIterations:        12000,
		CostStraight:         1.0,
		CostDiagonal:         1.41421356,
		MaxPathsPerFrame:     64,
		CacheCapacity:        DefaultCacheCapacity,
		CacheTTLSeconds:      0,
		ReportIntervalFrames: DefaultReportIntervalFrames,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

func (c *Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("maxIterations must be > 0, got %d", c.MaxIterations)
	}
	if c.CostStraight <= 0 || c.CostDiagonal <= 0 {
		return fmt.Errorf("costStraight and costDiagonal must be > 0")
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cacheCapacity must be > 0, got %d", c.CacheCapacity)
	}
	if c.MaxPathsPerFrame <= 0 {
		return fmt.Errorf("maxPathsPerFrame must be > 0, got %d", c.MaxPathsPerFrame)
	}
	return nil
}

// LoadConfig loads configFile, validates it against schemaFile, and
// unmarshals it into a Config.
func LoadConfig(configFile, schemaFile string) (*Config, error) {
	sch, err := jsonschema.Compile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("pathfinder: compile schema: %w", err)
	}

	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("pathfinder: read config: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("pathfinder: decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("pathfinder: config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("pathfinder: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply pushes a reloaded Config's values onto a live Dispatcher's atomic
// tunables. Auto-tuned fields (quantization, thresholds, pre-warm N) are
// untouched; those only change on a Grid rebuild.
func (d *Dispatcher) Apply(cfg *Config) {
	d.SetMaxIterations(cfg.MaxIterations)
	d.SetAllowDiagonal(cfg.AllowDiagonal)
	d.SetMaxPathsPerFrame(cfg.MaxPathsPerFrame)
	d.SetCacheCapacity(cfg.CacheCapacity)
	if cfg.CacheTTLSeconds > 0 {
		d.SetCacheTTL(time.Duration(cfg.CacheTTLSeconds * float64(time.Second)))
	}
	d.storeFloat(&d.costStraight, cfg.CostStraight)
	d.storeFloat(&d.costDiagonal, cfg.CostDiagonal)
	if cfg.ReportIntervalFrames > 0 {
		d.reportIntervalFrames.Store(int64(cfg.ReportIntervalFrames))
	}
}

// WatchConfig watches configFile's directory for writes (editors typically
// replace-then-rename rather than write in place, so the directory must be
// watched rather than the file itself) and reloads+applies it on change.
// The returned stop func closes the watcher; it is safe to call once.
func (d *Dispatcher) WatchConfig(configFile, schemaFile string, logger *zap.SugaredLogger) (stop func() error, err error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("pathfinder: new config watcher: %w", err)
	}
	dir := filepath.Dir(configFile)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("pathfinder: watch config dir %s: %w", dir, err)
	}
	abs, _ := filepath.Abs(configFile)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				evAbs, _ := filepath.Abs(ev.Name)
				if evAbs != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadConfig(configFile, schemaFile)
				if err != nil {
					logger.Warnw("pathfinder: config reload failed, keeping previous values", "error", err)
					continue
				}
				d.Apply(cfg)
				logger.Infow("pathfinder: config reloaded", "file", configFile)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("pathfinder: config watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() error {
		close(done)
		return watcher.Close()
	}, nil
}

