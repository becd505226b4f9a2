package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// redisPublisher is the subset of *redis.Client the bridge publishes with.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBridge mirrors local events to a Redis channel and replays events
// published by other instances into the local broker.
type RedisBridge struct {
	client  *redis.Client
	pub     redisPublisher
	channel string
	origin  string
	local   *Broker
}

// NewRedisBridge wires client to local on channel.
func NewRedisBridge(client *redis.Client, channel string, local *Broker) *RedisBridge {
	return &RedisBridge{
		client:  client,
		pub:     client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
	}
}

// Publish delivers e locally and forwards it to Redis. Redis failures are
// logged; local delivery never depends on them.
func (b *RedisBridge) Publish(ctx context.Context, e Event) {
	e.Origin = b.origin
	b.local.Publish(ctx, e)

	body, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("type", string(e.Type)).Msg("events: encode")
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := b.pub.Publish(pctx, b.channel, body).Err(); err != nil {
		log.Warn().Err(err).Str("channel", b.channel).Msg("events: redis publish failed")
	}
}

// Run subscribes to the channel and replays remote events until ctx ends.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("events: subscribe %s: %w", b.channel, err)
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
			b.handle(ctx, msg.Payload)
		}
	}
}

// handle decodes a remote payload and republishes it locally unless this
// instance produced it.
func (b *RedisBridge) handle(ctx context.Context, payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		log.Debug().Err(err).Msg("events: drop malformed payload")
		return
	}
	if e.Origin == b.origin {
		return
	}
	b.local.Publish(ctx, e)
}
