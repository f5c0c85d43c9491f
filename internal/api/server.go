// Package api exposes the HTTP surface: threat/conjunction snapshots, fleet
// management, catalog metadata, the latest geomagnetic reading, and a manual
// refresh trigger.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/orbit/orbitwatch/internal/auth"
	"github.com/orbit/orbitwatch/internal/catalog"
	"github.com/orbit/orbitwatch/internal/fleet"
	"github.com/orbit/orbitwatch/internal/health"
	"github.com/orbit/orbitwatch/internal/metrics"
	"github.com/orbit/orbitwatch/internal/orbit"
	"github.com/orbit/orbitwatch/internal/watch"
)

// RefreshTrigger requests an immediate refresh cycle.
type RefreshTrigger interface {
	RefreshNow()
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	registry  *fleet.Registry
	catStore  *catalog.Store
	snapshots *watch.Store
	refresher RefreshTrigger
}

// NewServer creates a configured HTTP server.
func NewServer(
	addr string,
	logger *slog.Logger,
	authCfg auth.Config,
	registry *fleet.Registry,
	catStore *catalog.Store,
	snapshots *watch.Store,
	refresher RefreshTrigger,
) *Server {
	s := &Server{
		logger:    logger,
		registry:  registry,
		catStore:  catStore,
		snapshots: snapshots,
		refresher: refresher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/threats", s.handleThreats)
	mux.HandleFunc("GET /api/v1/conjunctions", s.handleConjunctions)
	mux.HandleFunc("GET /api/v1/geomagnetic", s.handleGeomagnetic)
	mux.HandleFunc("GET /api/v1/catalog/metadata", s.handleCatalogMetadata)
	mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/v1/fleet", s.handleFleetList)
	mux.HandleFunc("POST /api/v1/fleet", s.handleFleetAdd)
	mux.HandleFunc("POST /api/v1/fleet/import", s.handleFleetImport)
	mux.HandleFunc("DELETE /api/v1/fleet/{name}", s.handleFleetRemove)

	// Middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleThreats(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Get()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no refresh cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"threats":        snap.Threats,
		"built_at":       snap.BuiltAt,
		"catalog_status": snap.CatalogStatus,
		"geomag_status":  snap.GeomagStatus,
	})
}

func (s *Server) handleConjunctions(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Get()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no refresh cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conjunctions": snap.Conjunctions,
		"built_at":     snap.BuiltAt,
	})
}

func (s *Server) handleGeomagnetic(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Get()
	if snap == nil || snap.Geomag == nil {
		writeError(w, http.StatusNotFound, "no geomagnetic reading available")
		return
	}
	writeJSON(w, http.StatusOK, snap.Geomag)
}

func (s *Server) handleCatalogMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.catStore.Get()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no catalog loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":      ds.Source,
		"fetched_at":  ds.FetchedAt,
		"elements":    len(ds.Elements),
		"epoch_min":   ds.EpochRange.Min,
		"epoch_max":   ds.EpochRange.Max,
		"age_seconds": s.catStore.AgeSeconds(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refresher.RefreshNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

func (s *Server) handleFleetList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"satellites": s.registry.List()})
}

func (s *Server) handleFleetAdd(w http.ResponseWriter, r *http.Request) {
	var o orbit.UserOrbit
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.registry.Add(o); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleFleetImport(w http.ResponseWriter, r *http.Request) {
	var orbits []orbit.UserOrbit
	if err := json.NewDecoder(r.Body).Decode(&orbits); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	res := s.registry.Import(orbits)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFleetRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.registry.Remove(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
