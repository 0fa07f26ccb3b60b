// Package bridge mirrors the broker's event stream onto a Redis Pub/Sub
// channel so external tools can follow state changes without holding a
// WebSocket. The mirror is best-effort: publish failures are logged, a
// lagged subscription is re-attached, and nothing here ever affects the
// core.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/mremehr/collab-core/pkg/collab"
)

// EventsChannel returns the Pub/Sub channel carrying mirrored events.
// Pattern: collab:{instance}:events
func EventsChannel(instance string) string {
	return fmt.Sprintf("collab:%s:events", instance)
}

// Bridge republishes every bus event as a JSON envelope on Redis.
type Bridge struct {
	store    *collab.Store
	rdb      *redis.Client
	instance string
}

// New creates a bridge for the given store and Redis connection options.
// The instance name namespaces the channel and must not be empty.
func New(store *collab.Store, redisOpts *redis.Options, instance string) (*Bridge, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Bridge{
		store:    store,
		rdb:      redis.NewClient(redisOpts),
		instance: instance,
	}, nil
}

// Ping verifies Redis connectivity. Useful before starting the mirror.
func (b *Bridge) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection. Implements io.Closer.
func (b *Bridge) Close() error {
	return b.rdb.Close()
}

// Run attaches to the event bus and mirrors events until the context is
// cancelled. If the mirror itself falls behind the bus it re-attaches and
// carries on from the live stream; mirrored delivery is at-most-once.
func (b *Bridge) Run(ctx context.Context) error {
	channel := EventsChannel(b.instance)
	log.Printf("[Bridge] mirroring events to %s", channel)

	for {
		_, subscription := b.store.Attach()
		err := b.mirror(ctx, channel, subscription)
		subscription.Close()
		if err != nil {
			return err
		}
		log.Printf("[Bridge] subscription lagged, re-attaching")
	}
}

// mirror forwards one subscription's events. Returns nil when the
// subscription ended by lagging (caller re-attaches) and ctx.Err() on
// cancellation.
func (b *Bridge) mirror(ctx context.Context, channel string, subscription *collab.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Bridge] shutting down")
			return ctx.Err()
		case event, ok := <-subscription.Events():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("[Bridge] event marshal failed, skipping: %v", err)
				continue
			}
			if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
				log.Printf("[Bridge] publish to %s failed, skipping: %v", channel, err)
			}
		}
	}
}
