package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/jotter/pkg/area"
)

// pollInterval is how often WaitForSnapshot re-reads the cached snapshot.
const pollInterval = 200 * time.Millisecond

// WaitForSnapshot polls the cached snapshot of an area until match accepts
// it. Returns the matching snapshot or an error if timeout occurs.
func WaitForSnapshot(ctx context.Context, client *area.Client, areaID string, timeout time.Duration, match func(*area.Snapshot) bool) (*area.Snapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		snap, err := client.GetSnapshot(ctx, areaID)
		switch {
		case err == nil:
			if match(snap) {
				return snap, nil
			}
		case area.IsNotFound(err):
			// Not published yet, continue polling
		default:
			return nil, fmt.Errorf("failed to query snapshot: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for area %s after %v", areaID, timeout)
		case <-ticker.C:
		}
	}
}
