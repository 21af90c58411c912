package mirror

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyluth/jotter/pkg/area"
)

// Connect builds a controller from the area's last published snapshot.
// Returns an error wrapping area.ErrAreaNotFound if the authority has never
// published the area.
func Connect(ctx context.Context, client *area.Client, areaID string) (*Controller, error) {
	snap, err := client.GetSnapshot(ctx, areaID)
	if err != nil {
		if area.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", area.ErrAreaNotFound, areaID)
		}
		return nil, fmt.Errorf("failed to load area %s: %w", areaID, err)
	}
	return FromSnapshot(*snap, client), nil
}

// Runner feeds the snapshots published for one area into its controller.
type Runner struct {
	controller *Controller
	client     *area.Client
	logger     *zap.Logger
	ready      chan struct{}
}

// NewRunner creates a runner for the controller's area.
func NewRunner(controller *Controller, client *area.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		controller: controller,
		client:     client,
		logger:     logger.With(zap.String("component", "mirror"), zap.String("area_id", controller.ID())),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the runner is subscribed and has caught up with the
// cached snapshot.
func (r *Runner) Ready() <-chan struct{} {
	return r.ready
}

// Run subscribes to the area and applies every snapshot until ctx is
// cancelled. After subscribing it re-reads the cached snapshot so nothing
// published between Connect and Run is missed.
func (r *Runner) Run(ctx context.Context) error {
	sub, err := r.client.SubscribeAreaEvents(ctx, r.controller.ID())
	if err != nil {
		return fmt.Errorf("failed to subscribe to area events: %w", err)
	}
	defer sub.Close()

	snap, err := r.client.GetSnapshot(ctx, r.controller.ID())
	switch {
	case err == nil:
		r.controller.ApplySnapshot(*snap)
	case !area.IsNotFound(err):
		r.logger.Warn("Failed to refresh snapshot", zap.Error(err))
	}
	close(r.ready)

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if updated, isUpdate := e.(area.AreaUpdated); isUpdate {
				r.controller.ApplySnapshot(updated.Snapshot)
			}

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			r.logger.Warn("Subscription error", zap.Error(err))
		}
	}
}
