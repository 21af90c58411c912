// Package gateway bridges browser participants onto the Redis sync transport
// over WebSockets.
//
// A participant connects to GET /ws/{areaID}?player=<id>. The first
// connection for a player enters the area and the last one to close exits
// it. Every event published for
// the area is forwarded as its JSON envelope; every text message received is
// decoded as an area.Command and queued for the authority.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dyluth/jotter/pkg/area"
)

// Transport is the part of area.Client the gateway uses.
type Transport interface {
	GetSnapshot(ctx context.Context, areaID string) (*area.Snapshot, error)
	SubscribeAreaEvents(ctx context.Context, areaID string) (*area.Subscription, error)
	SendCommand(ctx context.Context, areaID string, cmd area.Command) error
	Enter(ctx context.Context, areaID, playerID string) error
	Exit(ctx context.Context, areaID, playerID string) error
}

// Config holds WebSocket server settings.
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the default WebSocket settings.
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Server upgrades participant connections and runs their pumps.
type Server struct {
	transport Transport
	upgrader  websocket.Upgrader
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	active atomic.Int64

	// presence counts open connections per area and player.
	mu       sync.Mutex
	presence map[presenceKey]int
}

type presenceKey struct {
	areaID   string
	playerID string
}

// NewServer creates a gateway. A nil config uses DefaultConfig.
func NewServer(transport Transport, config *Config, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		transport: transport,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		presence: make(map[presenceKey]int),
	}
}

// join enters the area for the player's first open connection.
func (s *Server) join(ctx context.Context, areaID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := presenceKey{areaID: areaID, playerID: playerID}
	if s.presence[key] == 0 {
		if err := s.transport.Enter(ctx, areaID, playerID); err != nil {
			return err
		}
	}
	s.presence[key]++
	return nil
}

// leave exits the area once the player's last connection is gone. It reports
// whether an exit was sent.
func (s *Server) leave(ctx context.Context, areaID, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := presenceKey{areaID: areaID, playerID: playerID}
	s.presence[key]--
	if s.presence[key] > 0 {
		return false, nil
	}
	delete(s.presence, key)
	return true, s.transport.Exit(ctx, areaID, playerID)
}

// ServeHTTP handles the upgrade request. The route must capture {areaID}.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "areaID")
	playerID := r.URL.Query().Get("player")
	if areaID == "" || playerID == "" {
		http.Error(w, "area id and player are required", http.StatusBadRequest)
		return
	}

	snap, err := s.transport.GetSnapshot(r.Context(), areaID)
	if err != nil {
		if area.IsNotFound(err) {
			http.Error(w, "unknown area", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to look up area", zap.String("area_id", areaID), zap.Error(err))
		http.Error(w, "transport unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	c, err := s.open(conn, areaID, playerID, snap)
	if err != nil {
		s.logger.Error("Failed to open participant connection",
			zap.String("area_id", areaID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "transport unavailable"))
		conn.Close()
		return
	}

	c.start()
	s.logger.Info("Participant connected",
		zap.String("area_id", areaID),
		zap.String("player_id", playerID),
		zap.String("connectionID", c.id),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}

// ActiveConnections returns the number of open participant connections.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

// Close disconnects every participant.
func (s *Server) Close() {
	s.cancel()
}
