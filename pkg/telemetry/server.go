// Package telemetry streams Dispatcher stats snapshots over HTTP and a
// websocket, for dashboards that want more than the periodic log line.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kestrelgames/pathkeeper/pkg/pathfinder"
)

// StatsProvider is the surface telemetry consumes; pathfinder.Dispatcher
// satisfies it via GetStats. Kept as an interface so the server can be
// tested against a fake.
type StatsProvider interface {
	GetStats() pathfinder.StatsSnapshot
}

// Server exposes a one-shot JSON snapshot at GET /stats and a live feed at
// GET /ws that pushes a snapshot every interval until the client disconnects.
type Server struct {
	addr     string
	provider StatsProvider
	interval time.Duration
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer builds a telemetry Server bound to addr (e.g. ":8089").
func NewServer(addr string, provider StatsProvider, interval time.Duration, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if interval <= 0 {
		interval = time.Second
	}
	s := &Server{
		addr:     addr,
		provider: provider,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// Accepts every origin; this is a local debug surface, not a
			// public API, so a permissive origin check is acceptable here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	router := mux.NewRouter()
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start begins serving in the background; it returns immediately. Call
// Shutdown to stop it.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorw("telemetry: server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.provider.GetStats()); err != nil {
		s.logger.Warnw("telemetry: encode stats failed", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("telemetry: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteJSON(s.provider.GetStats()); err != nil {
			return
		}
	}
}
