package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dyluth/jotter/pkg/area"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB

	// Send buffer size
	sendBufferSize = 64

	// Time allowed for the exit request once the socket is gone
	exitTimeout = 5 * time.Second
)

// errorMessage is sent back to a participant whose message was rejected.
type errorMessage struct {
	Error string `json:"error"`
}

// connection is one participant's socket, bound to a single area.
type connection struct {
	id       string
	areaID   string
	playerID string
	server   *Server
	conn     *websocket.Conn
	sub      *area.Subscription
	send     chan []byte
	logger   *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// open subscribes to the area, joins it, and queues the cached snapshot so
// the participant renders before the authority's next broadcast.
func (s *Server) open(conn *websocket.Conn, areaID, playerID string, snap *area.Snapshot) (*connection, error) {
	initial, err := area.EncodeEvent(area.AreaUpdated{Snapshot: *snap})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(s.ctx)

	sub, err := s.transport.SubscribeAreaEvents(ctx, areaID)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := s.join(ctx, areaID, playerID); err != nil {
		sub.Close()
		cancel()
		return nil, fmt.Errorf("failed to enter area: %w", err)
	}

	id := uuid.NewString()
	c := &connection{
		id:       id,
		areaID:   areaID,
		playerID: playerID,
		server:   s,
		conn:     conn,
		sub:      sub,
		send:     make(chan []byte, sendBufferSize),
		logger: s.logger.With(
			zap.String("area_id", areaID),
			zap.String("player_id", playerID),
			zap.String("connectionID", id),
		),
		ctx:    ctx,
		cancel: cancel,
	}

	c.send <- initial

	s.active.Add(1)
	return c, nil
}

func (c *connection) start() {
	go c.writePump()
	go c.readPump()
}

// close tears the connection down and leaves the area. Safe to call from both
// pumps.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.sub.Close()
		c.conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), exitTimeout)
		defer cancel()
		exited, err := c.server.leave(ctx, c.areaID, c.playerID)
		if err != nil {
			c.logger.Warn("Failed to exit area", zap.Error(err))
		}
		c.server.active.Add(-1)
		c.logger.Info("Participant disconnected", zap.Bool("exited", exited))
	})
}

// readPump decodes commands from the socket and queues them.
func (c *connection) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleTextMessage(message)
		case websocket.BinaryMessage:
			c.logger.Warn("Binary messages not supported")
		}
	}
}

func (c *connection) handleTextMessage(message []byte) {
	message = bytes.TrimSpace(message)

	var cmd area.Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.logger.Debug("Rejected malformed command", zap.Error(err))
		c.reply(errorMessage{Error: "malformed command: " + err.Error()})
		return
	}
	if cmd.Type == "" {
		c.reply(errorMessage{Error: "command type is required"})
		return
	}

	if err := c.server.transport.SendCommand(c.ctx, c.areaID, cmd); err != nil {
		c.logger.Error("Failed to queue command", zap.Error(err))
		c.reply(errorMessage{Error: "failed to queue command"})
	}
}

// reply queues a message for the participant, dropping it if the send buffer
// is full.
func (c *connection) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping reply")
	}
}

// writePump is the only writer on the socket.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	errs := c.sub.Errors()
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case message := <-c.send:
			if !c.write(message) {
				return
			}

		case event, ok := <-c.sub.Events():
			if !ok {
				return
			}
			data, err := area.EncodeEvent(event)
			if err != nil {
				c.logger.Error("Failed to encode event", zap.Error(err))
				continue
			}
			if !c.write(data) {
				return
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Warn("Skipped undecodable event", zap.Error(err))

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

func (c *connection) write(message []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Debug("Failed to write message", zap.Error(err))
		return false
	}
	return true
}
