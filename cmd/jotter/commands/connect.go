package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dyluth/jotter/internal/board"
	"github.com/dyluth/jotter/internal/config"
	"github.com/dyluth/jotter/internal/editbuffer"
	"github.com/dyluth/jotter/internal/logging"
	"github.com/dyluth/jotter/internal/mirror"
	"github.com/dyluth/jotter/internal/printer"
	"github.com/dyluth/jotter/internal/resolver"
	"github.com/dyluth/jotter/internal/watch"
	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

// defaultWaitTimeout bounds how long a write waits for the authority to
// publish the result.
const defaultWaitTimeout = 5 * time.Second

// town is an open connection to the town named in jotter.yml.
type town struct {
	cfg    *config.JotterConfig
	client *area.Client
	logger *zap.Logger
}

func (t *town) Close() {
	t.client.Close()
	t.logger.Sync()
}

// connectTown loads the configuration and connects to the town's Redis.
func connectTown(ctx context.Context) (*town, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{
				fmt.Sprintf("Point jotter at the authority's configuration:\n  jotter --config %s", config.DefaultPath),
				"Or set JOTTER_TOWN and JOTTER_MAP in the environment",
			},
		)
	}

	logger, err := logging.New(cfg.LogLevel, logging.Console)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client, err := area.NewClient(redisOpts, cfg.Town)
	if err != nil {
		return nil, fmt.Errorf("failed to create area client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.RedisURL),
			[][2]string{{"Town", cfg.Town}},
			[]string{
				"Check that Redis is running and reachable",
				"Override the address:\n  JOTTER_REDIS_URL=redis://host:6379 jotter ...",
			},
		)
	}

	return &town{cfg: cfg, client: client, logger: logger}, nil
}

// getSnapshot fetches the cached snapshot of an area, rendering a missing
// area as a printer error.
func (t *town) getSnapshot(ctx context.Context, areaID string) (*area.Snapshot, error) {
	snap, err := t.client.GetSnapshot(ctx, areaID)
	if err != nil {
		if area.IsNotFound(err) {
			return nil, areaNotFound(areaID, t.cfg.Town)
		}
		return nil, fmt.Errorf("failed to get area %s: %w", areaID, err)
	}
	return snap, nil
}

func areaNotFound(areaID, townName string) error {
	return printer.Error(
		fmt.Sprintf("area '%s' not found", areaID),
		fmt.Sprintf("The authority has not published an area with this id in town '%s'.", townName),
		[]string{
			"List areas:\n  jotter areas",
			"Check that the authority is running with the right map",
		},
	)
}

// resolveNote maps a note reference to its index, rendering resolver errors.
func resolveNote(c *notes.Collection, areaID, ref string) (int, error) {
	i, err := resolver.ResolveNote(c, ref)
	if err == nil {
		return i, nil
	}

	if resolver.IsNotFoundError(err) {
		return 0, printer.Error(
			fmt.Sprintf("note '%s' not found", ref),
			fmt.Sprintf("Area '%s' has no note with this id, tab number, or title.", areaID),
			[]string{fmt.Sprintf("List notes:\n  jotter show %s", areaID)},
		)
	}
	var ambigErr *resolver.AmbiguousError
	if errors.As(err, &ambigErr) {
		fmt.Fprintln(printer.ErrOut, resolver.FormatAmbiguousError(ambigErr))
		return 0, fmt.Errorf("ambiguous note reference")
	}
	return 0, err
}

// editor follows one area through a mirror controller and edits it through a
// board session, the same way a participant in the town does.
type editor struct {
	session    *board.Session
	buffer     *editbuffer.Buffer
	controller *mirror.Controller
	client     *area.Client
	cancel     context.CancelFunc
	done       chan error
	stopOnce   sync.Once
}

// openEditor connects a mirror to the area and waits until it has caught up.
// The authority ignores updates for an area nobody occupies, so an inactive
// area is an error.
func (t *town) openEditor(ctx context.Context, areaID string) (*editor, error) {
	controller, err := mirror.Connect(ctx, t.client, areaID)
	if err != nil {
		if errors.Is(err, area.ErrAreaNotFound) {
			return nil, areaNotFound(areaID, t.cfg.Town)
		}
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	runner := mirror.NewRunner(controller, t.client, t.logger)
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(runCtx)
	}()

	select {
	case <-runner.Ready():
	case err := <-done:
		cancel()
		return nil, err
	case <-ctx.Done():
		cancel()
		<-done
		return nil, ctx.Err()
	}

	if !controller.IsActive() {
		cancel()
		<-done
		return nil, printer.Error(
			fmt.Sprintf("area '%s' is not active", areaID),
			"Nobody is in the area, so the authority holds no notes for it and ignores updates.",
			[]string{
				"Enter the area in the town, then retry",
				"List areas:\n  jotter areas",
			},
		)
	}

	buffer := editbuffer.New(controller, t.cfg.EditWindow, t.logger)
	return &editor{
		session:    board.NewSession(controller, buffer, nil),
		buffer:     buffer,
		controller: controller,
		client:     t.client,
		cancel:     cancel,
		done:       done,
	}, nil
}

// commit flushes buffered edits and waits until the authority has published
// the local collection.
func (e *editor) commit(ctx context.Context, timeout time.Duration) (*area.Snapshot, error) {
	defer e.stop()

	want := e.session.Notes()
	if err := e.session.Close(ctx); err != nil {
		return nil, err
	}

	snap, err := watch.WaitForSnapshot(ctx, e.client, e.controller.ID(), timeout, func(s *area.Snapshot) bool {
		c, ok := s.Notes.Collection()
		return ok && c.Equal(want)
	})
	if err != nil {
		return nil, printer.Error(
			"update not confirmed",
			fmt.Sprintf("The authority did not publish the new notes for area '%s': %v", e.controller.ID(), err),
			[]string{
				"Check that the authority is running",
				"The area may have emptied while the update was in flight",
			},
		)
	}
	return snap, nil
}

// abort drops buffered edits and stops following the area.
func (e *editor) abort() {
	e.buffer.Cancel()
	e.session.Close(context.Background())
	e.stop()
}

func (e *editor) stop() {
	e.stopOnce.Do(func() {
		e.cancel()
		<-e.done
	})
}
