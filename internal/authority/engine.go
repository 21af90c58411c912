// Package authority is the server side of the note-taking protocol: the
// authoritative state of every area in a town and the loop that applies
// participant requests to it.
package authority

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/jotter/pkg/area"
)

// requestPollTimeout bounds each BLPOP so the loop notices cancellation.
const requestPollTimeout = time.Second

// retryDelay is how long the loop waits after a transport failure.
const retryDelay = 500 * time.Millisecond

// errInvalidRequest marks requests that fail validation.
var errInvalidRequest = errors.New("invalid request")

// Engine is the single authority for every note-taking area of a town. It pops
// participant requests off the town request list and applies them one at a
// time, in arrival order.
type Engine struct {
	client  *area.Client
	areas   map[string]*NoteArea
	order   []string
	players map[string]*Player
	logger  *zap.Logger
	metrics *Metrics
}

// NewEngine creates an engine owning the given areas. Area ids must be unique.
func NewEngine(client *area.Client, areas []*NoteArea, logger *zap.Logger, metrics *Metrics) *Engine {
	byID := make(map[string]*NoteArea, len(areas))
	order := make([]string, 0, len(areas))
	for _, a := range areas {
		byID[a.ID()] = a
		order = append(order, a.ID())
	}
	sort.Strings(order)

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		client:  client,
		areas:   byID,
		order:   order,
		players: make(map[string]*Player),
		logger:  logger.With(zap.String("component", "authority"), zap.String("town", client.Town())),
		metrics: metrics,
	}
}

// Area returns the area with the given id.
func (e *Engine) Area(id string) (*NoteArea, bool) {
	a, ok := e.areas[id]
	return a, ok
}

// Snapshots returns the current snapshot of every area, sorted by id.
func (e *Engine) Snapshots() []area.Snapshot {
	out := make([]area.Snapshot, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.areas[id].Snapshot())
	}
	return out
}

// Run publishes the initial snapshot of every area, then handles requests
// until ctx is cancelled. A failing request is logged and skipped.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Authority starting", zap.Int("areas", len(e.areas)))

	for _, id := range e.order {
		snap := e.areas[id].Snapshot()
		if err := e.client.Emit(ctx, area.AreaUpdated{Snapshot: snap}); err != nil {
			return fmt.Errorf("failed to publish initial snapshot of %s: %w", id, err)
		}
	}

	for {
		if ctx.Err() != nil {
			e.logger.Info("Authority shutting down")
			return nil
		}

		req, err := e.client.NextRequest(ctx, requestPollTimeout)
		if err != nil {
			if area.IsNotFound(err) {
				continue
			}
			if ctx.Err() != nil {
				e.logger.Info("Authority shutting down")
				return nil
			}
			e.logger.Warn("Failed to read request", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		e.handle(ctx, req)
	}
}

// handle applies one request and records its outcome. Errors never stop the
// engine.
func (e *Engine) handle(ctx context.Context, req *area.Request) {
	start := time.Now()
	err := e.HandleRequest(ctx, req)

	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
		fields := []zap.Field{
			zap.String("kind", string(req.Kind)),
			zap.String("area_id", req.AreaID),
			zap.String("player_id", req.PlayerID),
			zap.Error(err),
		}
		if IsRequestError(err) {
			e.logger.Warn("Request rejected", append(fields, zap.String("event_type", "request_rejected"))...)
		} else {
			e.logger.Error("Request failed", append(fields, zap.String("event_type", "request_failed"))...)
		}
	}

	if e.metrics != nil {
		e.metrics.Requests.WithLabelValues(string(req.Kind), outcome).Inc()
		e.metrics.RequestSeconds.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	}
}

// HandleRequest applies a single request to the area it names.
func (e *Engine) HandleRequest(ctx context.Context, req *area.Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	a, ok := e.areas[req.AreaID]
	if !ok {
		return fmt.Errorf("%w: %s", area.ErrAreaNotFound, req.AreaID)
	}

	switch req.Kind {
	case area.RequestEnter:
		return e.enter(ctx, a, req.PlayerID)
	case area.RequestExit:
		return e.exit(ctx, a, req.PlayerID)
	default:
		if err := a.HandleCommand(ctx, *req.Command); err != nil {
			return err
		}
		e.logEvent("notes_updated",
			zap.String("area_id", a.ID()),
			zap.Int("notes", a.Notes().Len()),
		)
		return nil
	}
}

func (e *Engine) enter(ctx context.Context, a *NoteArea, playerID string) error {
	p, ok := e.players[playerID]
	if !ok {
		p = &Player{ID: playerID}
		e.players[playerID] = p
	}

	// A player is inside at most one area.
	if current := p.Location.InteractableID; current != "" && current != a.ID() {
		if previous, ok := e.areas[current]; ok {
			if err := e.exit(ctx, previous, playerID); err != nil {
				return err
			}
			e.players[playerID] = p
		}
	}

	if err := a.Add(ctx, p); err != nil {
		return err
	}

	e.recordOccupancy(a)
	e.logEvent("player_entered",
		zap.String("area_id", a.ID()),
		zap.String("player_id", playerID),
		zap.Strings("occupants", a.Occupants()),
	)
	return nil
}

func (e *Engine) exit(ctx context.Context, a *NoteArea, playerID string) error {
	p, ok := e.players[playerID]
	if !ok || p.Location.InteractableID != a.ID() {
		return nil
	}

	if err := a.Remove(ctx, p); err != nil {
		return err
	}
	delete(e.players, playerID)

	e.recordOccupancy(a)
	e.logEvent("player_left",
		zap.String("area_id", a.ID()),
		zap.String("player_id", playerID),
		zap.Strings("occupants", a.Occupants()),
	)

	if !a.IsActive() {
		if e.metrics != nil {
			e.metrics.Resets.Inc()
		}
		e.logEvent("area_reset", zap.String("area_id", a.ID()))
	}
	return nil
}

func (e *Engine) recordOccupancy(a *NoteArea) {
	if e.metrics == nil {
		return
	}
	e.metrics.Occupants.WithLabelValues(a.ID()).Set(float64(len(a.Occupants())))
}

// logEvent logs a structured engine event.
func (e *Engine) logEvent(eventType string, fields ...zap.Field) {
	e.logger.Info("Authority event", append(fields, zap.String("event_type", eventType))...)
}

// IsRequestError reports whether err is a per-request protocol error rather
// than a transport failure.
func IsRequestError(err error) bool {
	return errors.Is(err, errInvalidRequest) ||
		errors.Is(err, area.ErrUnknownCommand) ||
		errors.Is(err, area.ErrAreaInactive) ||
		errors.Is(err, area.ErrAreaNotFound)
}
