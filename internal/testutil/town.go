// Package testutil runs an in-memory town for tests: a miniredis server with
// an authority engine serving note-taking areas over it.
package testutil

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dyluth/jotter/internal/authority"
	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

// TownName is the town every test town runs in.
const TownName = "test-town"

// Town is a running authority plus a client connected to the same Redis.
type Town struct {
	T      *testing.T
	Redis  *miniredis.Miniredis
	Client *area.Client
	Engine *authority.Engine
}

// StartTown starts an authority serving one empty area per id and waits
// until every area is published. Everything stops on test cleanup.
func StartTown(t *testing.T, areaIDs ...string) *Town {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := area.NewClient(&redis.Options{Addr: mr.Addr()}, TownName)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	box := authority.BoundingBox{Width: 10, Height: 10}
	areas := make([]*authority.NoteArea, 0, len(areaIDs))
	for _, id := range areaIDs {
		areas = append(areas, authority.NewNoteArea(id, notes.Absent(), box, client))
	}
	engine := authority.NewEngine(client, areas, zaptest.NewLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		ids, err := client.ListAreas(context.Background())
		return err == nil && len(ids) == len(areaIDs)
	}, 2*time.Second, 10*time.Millisecond, "areas never published")

	return &Town{T: t, Redis: mr, Client: client, Engine: engine}
}

// RedisURL is the address of the town's Redis as a redis:// URL.
func (tn *Town) RedisURL() string {
	return "redis://" + tn.Redis.Addr()
}

// Enter moves a player into an area and waits for the authority to publish
// the new occupancy.
func (tn *Town) Enter(areaID, playerID string) {
	tn.T.Helper()
	require.NoError(tn.T, tn.Client.Enter(context.Background(), areaID, playerID))
	require.Eventually(tn.T, func() bool {
		snap, err := tn.Client.GetSnapshot(context.Background(), areaID)
		return err == nil && slices.Contains(snap.Occupants, playerID)
	}, 3*time.Second, 10*time.Millisecond, "%s never entered %s", playerID, areaID)
}

// Exit moves a player out of an area and waits for the authority to publish
// the new occupancy.
func (tn *Town) Exit(areaID, playerID string) {
	tn.T.Helper()
	require.NoError(tn.T, tn.Client.Exit(context.Background(), areaID, playerID))
	require.Eventually(tn.T, func() bool {
		snap, err := tn.Client.GetSnapshot(context.Background(), areaID)
		return err == nil && !slices.Contains(snap.Occupants, playerID)
	}, 3*time.Second, 10*time.Millisecond, "%s never left %s", playerID, areaID)
}

// Notes returns the published notes of an area, failing the test if the
// area holds none.
func (tn *Town) Notes(areaID string) *notes.Collection {
	tn.T.Helper()
	snap, err := tn.Client.GetSnapshot(context.Background(), areaID)
	require.NoError(tn.T, err)
	c, ok := snap.Notes.Collection()
	require.True(tn.T, ok, "area %s holds no notes", areaID)
	return c
}
