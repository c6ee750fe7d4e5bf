package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/cuemby/portal/pkg/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type invalidation struct {
	Origin string `json:"origin"`
	Scope  string `json:"scope"`
}

// RedisNotifier shares scope evictions between processes over a Redis
// pub/sub channel. Messages published by this notifier are ignored on
// receipt.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	origin  string
	logger  zerolog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisNotifier creates a notifier publishing on channel
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  log.WithComponent("notifier"),
	}
}

// Origin returns the id stamped on messages from this process
func (n *RedisNotifier) Origin() string {
	return n.origin
}

func (n *RedisNotifier) Publish(ctx context.Context, scope string) error {
	data, err := json.Marshal(invalidation{Origin: n.origin, Scope: scope})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, data).Err()
}

// Listen subscribes to the channel and calls fn from a single goroutine for
// each scope another process invalidated
func (n *RedisNotifier) Listen(ctx context.Context, fn func(scope string)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pubsub != nil {
		return errors.New("notifier already listening")
	}

	pubsub := n.client.Subscribe(ctx, n.channel)
	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	n.pubsub = pubsub
	n.done = make(chan struct{})

	ch := pubsub.Channel()
	go func() {
		defer close(n.done)
		for msg := range ch {
			var inv invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				n.logger.Warn().Err(err).Str("payload", msg.Payload).Msg("Ignoring malformed invalidation")
				continue
			}
			if inv.Origin == n.origin || inv.Scope == "" {
				continue
			}
			fn(inv.Scope)
		}
	}()
	return nil
}

// Ping checks the Redis connection
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close unsubscribes and waits for the delivery goroutine to exit. The
// Redis client is left open.
func (n *RedisNotifier) Close() error {
	n.mu.Lock()
	pubsub, done := n.pubsub, n.done
	n.pubsub = nil
	n.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
