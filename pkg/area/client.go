package area

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// subscriptionBuffer is the capacity of the event and error channels handed to
// subscribers.
const subscriptionBuffer = 16

// Client provides town-scoped Redis operations for the note-taking protocol.
// All keys and channels are automatically namespaced with the town name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb  *redis.Client
	town string
}

// NewClient creates a new client for the specified town.
//
// Returns an error if town is empty.
func NewClient(redisOpts *redis.Options, town string) (*Client, error) {
	if town == "" {
		return nil, fmt.Errorf("town name cannot be empty")
	}

	return &Client{
		rdb:  redis.NewClient(redisOpts),
		town: town,
	}, nil
}

// Town returns the town name the client is scoped to.
func (c *Client) Town() string {
	return c.town
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Emit broadcasts an event to participants.
//
// AreaUpdated events are cached as the area's latest snapshot and published on
// the area channel in one MULTI block, so a failed publish leaves the previous
// snapshot in place. PlayerMoved events go to the town channel.
func (c *Client) Emit(ctx context.Context, e Event) error {
	data, err := EncodeEvent(e)
	if err != nil {
		return err
	}

	switch ev := e.(type) {
	case AreaUpdated:
		return c.publishSnapshot(ctx, &ev.Snapshot, data)
	case PlayerMoved:
		if err := c.rdb.Publish(ctx, TownEventsChannel(c.town), data).Err(); err != nil {
			return fmt.Errorf("failed to publish %s event: %w", e.Name(), err)
		}
	}

	return nil
}

// publishSnapshot replaces the cached snapshot hash, indexes the area and
// publishes the encoded event atomically.
// The hash is deleted first so a reset area loses its notes field.
func (c *Client) publishSnapshot(ctx context.Context, s *Snapshot, event []byte) error {
	hash, err := SnapshotToHash(s)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	key := SnapshotKey(c.town, s.ID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, hash)
		pipe.SAdd(ctx, AreaIndexKey(c.town), s.ID)
		pipe.Publish(ctx, AreaEventsChannel(c.town, s.ID), event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", EventInteractableUpdate, err)
	}

	return nil
}

// GetSnapshot retrieves the latest snapshot published for an area.
// Returns (nil, redis.Nil) if the area has never published one.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetSnapshot(ctx context.Context, areaID string) (*Snapshot, error) {
	hashData, err := c.rdb.HGetAll(ctx, SnapshotKey(c.town, areaID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from Redis: %w", err)
	}

	// HGetAll returns an empty map for missing keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	snap, err := HashToSnapshot(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}

	return snap, nil
}

// ListAreas returns the ids of every area that has published a snapshot,
// sorted.
func (c *Client) ListAreas(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, AreaIndexKey(c.town)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// SendCommand queues a command for the authority.
func (c *Client) SendCommand(ctx context.Context, areaID string, cmd Command) error {
	return c.SendRequest(ctx, &Request{Kind: RequestCommand, AreaID: areaID, Command: &cmd})
}

// Enter asks the authority to add a player to an area.
func (c *Client) Enter(ctx context.Context, areaID, playerID string) error {
	return c.SendRequest(ctx, &Request{Kind: RequestEnter, AreaID: areaID, PlayerID: playerID})
}

// Exit asks the authority to remove a player from an area.
func (c *Client) Exit(ctx context.Context, areaID, playerID string) error {
	return c.SendRequest(ctx, &Request{Kind: RequestExit, AreaID: areaID, PlayerID: playerID})
}

// SendRequest validates a request and appends it to the town request list.
func (c *Client) SendRequest(ctx context.Context, r *Request) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.rdb.RPush(ctx, RequestsKey(c.town), data).Err(); err != nil {
		return fmt.Errorf("failed to push request: %w", err)
	}

	return nil
}

// NextRequest blocks until a request is available or timeout elapses.
// Returns (nil, redis.Nil) on timeout.
func (c *Client) NextRequest(ctx context.Context, timeout time.Duration) (*Request, error) {
	result, err := c.rdb.BLPop(ctx, timeout, RequestsKey(c.town)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to pop request: %w", err)
	}

	// BLPOP returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply length %d", len(result))
	}

	var r Request
	if err := json.Unmarshal([]byte(result[1]), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	return &r, nil
}

// Subscription represents an active Pub/Sub subscription to protocol events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of decoded events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - undecodable messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeAreaEvents subscribes to the snapshots of one area.
// Context cancellation also stops the subscription.
//
// Redis Pub/Sub is at-most-once; a subscriber that falls behind may miss
// snapshots, but every snapshot is complete so the next one catches it up.
func (c *Client) SubscribeAreaEvents(ctx context.Context, areaID string) (*Subscription, error) {
	return c.subscribe(ctx, AreaEventsChannel(c.town, areaID))
}

// SubscribeTownEvents subscribes to town-wide events such as player movement.
func (c *Client) SubscribeTownEvents(ctx context.Context) (*Subscription, error) {
	return c.subscribe(ctx, TownEventsChannel(c.town))
}

func (c *Client) subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Wait for the subscription confirmation so no event published after
	// this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan Event, subscriptionBuffer)
	errorsChan := make(chan error, subscriptionBuffer)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				event, err := DecodeEvent([]byte(msg.Payload))
				if err != nil {
					select {
					case errorsChan <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetSnapshot returned "not found" or NextRequest timed out.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
