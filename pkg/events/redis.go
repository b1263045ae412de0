package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"storyfeed-api/pkg/logging"
)

const DefaultRedisChannel = "storyfeed:activities"

type envelope struct {
	Origin string          `json:"origin"`
	Event  ActivityCreated `json:"event"`
}

// RedisRelay publishes events locally and to a Redis channel so that other
// instances can deliver them to their own websocket clients. Events that
// originate from this instance are not delivered twice.
type RedisRelay struct {
	client  goredis.UniversalClient
	channel string
	origin  string
	local   *Bus
	logger  logging.Logger
}

func NewRedisRelay(client goredis.UniversalClient, channel string, local *Bus, logger logging.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		logger:  logger,
	}
}

// Publish delivers locally first; a Redis failure is returned after local
// subscribers have already seen the event.
func (r *RedisRelay) Publish(ctx context.Context, ev ActivityCreated) error {
	_ = r.local.Publish(ctx, ev)

	payload, err := json.Marshal(envelope{Origin: r.origin, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to redis: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.receive(ctx, []byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) receive(ctx context.Context, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.logger.WithError(err).WithField("channel", r.channel).Warn("dropping malformed relay message")
		return
	}
	if env.Origin == r.origin {
		return
	}
	_ = r.local.Publish(ctx, env.Event)
}
