package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// envelope is the wire format on the Redis channel.
type envelope struct {
	Room  string `json:"room"`
	Event Event  `json:"event"`
}

// RedisRelay fans events out through a Redis pub/sub channel so that every
// API instance delivers them to its own connected clients. Once Run returns,
// events go straight to the local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger

	mu       sync.Mutex
	sub      *redis.PubSub
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  logger,
		stopped: make(chan struct{}),
	}
}

// Subscribe subscribes to the channel and waits for Redis to confirm it.
// Run uses the confirmed subscription.
func (r *RedisRelay) Subscribe(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		r.sub.Close()
	}
	r.sub = sub
	return nil
}

// Publish sends the event to the Redis channel. Local clients receive it
// through Run like every other instance. When the relay is not running or
// Redis rejects the event, local clients get it from the hub directly.
func (r *RedisRelay) Publish(ctx context.Context, room string, event Event) error {
	select {
	case <-r.stopped:
		return r.hub.Publish(ctx, room, event)
	default:
	}

	data, err := json.Marshal(envelope{Room: room, Event: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		if herr := r.hub.Publish(ctx, room, event); herr != nil {
			r.logger.Warn("local fallback publish failed", zap.String("room", room), zap.Error(herr))
		}
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run feeds received events into the local hub until ctx is cancelled or the
// subscription fails. It subscribes first unless Subscribe already did.
func (r *RedisRelay) Run(ctx context.Context) error {
	defer r.stopOnce.Do(func() { close(r.stopped) })

	r.mu.Lock()
	sub := r.sub
	r.mu.Unlock()
	if sub == nil {
		if err := r.Subscribe(ctx); err != nil {
			return err
		}
		r.mu.Lock()
		sub = r.sub
		r.mu.Unlock()
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			r.handleMessage(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handleMessage(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("dropping malformed realtime message", zap.Error(err))
		return
	}
	if env.Room == "" || env.Event.Type == "" {
		r.logger.Warn("dropping realtime message without room or type")
		return
	}
	if err := r.hub.Publish(ctx, env.Room, env.Event); err != nil {
		r.logger.Warn("realtime relay publish failed", zap.String("room", env.Room), zap.Error(err))
	}
}
