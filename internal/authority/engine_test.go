package authority

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

func setupTestClient(t *testing.T) (*area.Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := area.NewClient(&redis.Options{Addr: mr.Addr()}, "test-town")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func setupEngine(t *testing.T) (*Engine, *area.Client) {
	client, _ := setupTestClient(t)
	corner := NewNoteArea("corner", notes.Absent(), BoundingBox{Width: 10, Height: 10}, client)
	stage := NewNoteArea("stage", notes.Absent(), BoundingBox{X: 20, Width: 10, Height: 10}, client)
	engine := NewEngine(client, []*NoteArea{stage, corner}, zaptest.NewLogger(t), NewMetrics("jotter_test"))
	return engine, client
}

func TestEngine_HandleRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("enter, command, exit", func(t *testing.T) {
		engine, _ := setupEngine(t)
		corner, _ := engine.Area("corner")

		require.NoError(t, engine.HandleRequest(ctx, &area.Request{Kind: area.RequestEnter, AreaID: "corner", PlayerID: "A"}))
		assert.Equal(t, []string{"A"}, corner.Occupants())

		cmd := area.NewUpdateCommand(notes.NewCollection(notes.Note{ID: "t1", Title: "T1"}))
		require.NoError(t, engine.HandleRequest(ctx, &area.Request{Kind: area.RequestCommand, AreaID: "corner", Command: &cmd}))
		assert.Equal(t, "T1", corner.Notes().At(0).Title)

		require.NoError(t, engine.HandleRequest(ctx, &area.Request{Kind: area.RequestExit, AreaID: "corner", PlayerID: "A"}))
		assert.Nil(t, corner.Notes())
	})

	t.Run("entering another area leaves the first", func(t *testing.T) {
		engine, _ := setupEngine(t)
		corner, _ := engine.Area("corner")
		stage, _ := engine.Area("stage")

		require.NoError(t, engine.HandleRequest(ctx, &area.Request{Kind: area.RequestEnter, AreaID: "corner", PlayerID: "A"}))
		require.NoError(t, engine.HandleRequest(ctx, &area.Request{Kind: area.RequestEnter, AreaID: "stage", PlayerID: "A"}))

		assert.Empty(t, corner.Occupants())
		assert.Equal(t, []string{"A"}, stage.Occupants())

		require.NoError(t, engine.HandleRequest(ctx, &area.Request{Kind: area.RequestExit, AreaID: "stage", PlayerID: "A"}))
		assert.Empty(t, stage.Occupants())
	})

	t.Run("exit of an absent player is ignored", func(t *testing.T) {
		engine, _ := setupEngine(t)
		assert.NoError(t, engine.HandleRequest(ctx, &area.Request{Kind: area.RequestExit, AreaID: "corner", PlayerID: "ghost"}))
	})

	t.Run("unknown area", func(t *testing.T) {
		engine, _ := setupEngine(t)
		err := engine.HandleRequest(ctx, &area.Request{Kind: area.RequestEnter, AreaID: "nowhere", PlayerID: "A"})
		assert.ErrorIs(t, err, area.ErrAreaNotFound)
		assert.True(t, IsRequestError(err))
	})

	t.Run("invalid request", func(t *testing.T) {
		engine, _ := setupEngine(t)
		err := engine.HandleRequest(ctx, &area.Request{Kind: area.RequestCommand, AreaID: "corner"})
		assert.Error(t, err)
		assert.True(t, IsRequestError(err))
	})
}

func TestEngine_Snapshots(t *testing.T) {
	engine, _ := setupEngine(t)
	snaps := engine.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, "corner", snaps[0].ID)
	assert.Equal(t, "stage", snaps[1].ID)
}

func TestEngine_Run(t *testing.T) {
	engine, client := setupEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := client.SubscribeAreaEvents(ctx, "corner")
	require.NoError(t, err)
	defer sub.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(ctx) }()

	// Initial snapshot is cached for late joiners.
	require.Eventually(t, func() bool {
		_, err := client.GetSnapshot(ctx, "corner")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, client.Enter(ctx, "corner", "A"))
	bad := area.Command{Type: "Bogus"}
	require.NoError(t, client.SendCommand(ctx, "corner", bad))
	cmd := area.NewUpdateCommand(notes.NewCollection(notes.Note{ID: "t1", Title: "T1"}, notes.Note{ID: "t2", Title: "T2"}))
	require.NoError(t, client.SendCommand(ctx, "corner", cmd))

	// An unknown command is logged and skipped; the next command still lands.
	var last area.Snapshot
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e := <-sub.Events():
			if u, ok := e.(area.AreaUpdated); ok {
				last = u.Snapshot
			}
		case <-deadline:
			t.Fatal("timeout waiting for updated snapshot")
		}
		if c, ok := last.Notes.Collection(); ok && c.Len() == 2 {
			break
		}
	}
	assert.Equal(t, []string{"A"}, last.Occupants)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("engine did not stop after cancellation")
	}
}
