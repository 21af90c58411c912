package authority

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dyluth/jotter/pkg/area"
)

// Pinger checks transport connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotLister lists the current state of every area.
type SnapshotLister interface {
	Snapshots() []area.Snapshot
}

// HealthServer is the authority's HTTP surface: health checks, metrics, area
// listing, and any extra handlers mounted with Handle (the WebSocket gateway).
type HealthServer struct {
	addr    string
	client  Pinger
	areas   SnapshotLister
	metrics *Metrics
	logger  *zap.Logger
	router  chi.Router
	server  *http.Server
}

// NewHealthServer creates the server. metrics and areas may be nil, in which
// case their routes are not registered.
func NewHealthServer(addr string, client Pinger, areas SnapshotLister, metrics *Metrics, logger *zap.Logger) *HealthServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &HealthServer{
		addr:    addr,
		client:  client,
		areas:   areas,
		metrics: metrics,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.healthCheckHandler)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	if areas != nil {
		r.Get("/areas", h.areasHandler)
	}
	h.router = r

	return h
}

// Handle mounts an extra handler, e.g. "/ws/{areaID}".
func (h *HealthServer) Handle(pattern string, handler http.Handler) {
	h.router.Handle(pattern, handler)
}

// Handler returns the router, for tests and embedding.
func (h *HealthServer) Handler() http.Handler {
	return h.router
}

// Start starts serving in the background.
func (h *HealthServer) Start() error {
	h.server = &http.Server{
		Addr:              h.addr,
		Handler:           h.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	h.logger.Info("HTTP server listening", zap.String("addr", h.addr))
	return nil
}

// Shutdown gracefully shuts down the server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if Redis is accessible, 503 Service Unavailable otherwise.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status: "healthy",
	}

	if err := h.client.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Redis = "connected"
	writeJSON(w, http.StatusOK, response)
}

// areasHandler handles GET /areas with the snapshot of every area.
func (h *HealthServer) areasHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.areas.Snapshots())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
	Error  string `json:"error,omitempty"`
}
