// Package broadcast fans task mutation events out to live listeners
// over a Redis pub/sub channel. Delivery is at-most-once and lossy:
// there is no retry, no queueing for disconnected listeners and no
// acknowledgment. A listener that is not subscribed at publish time
// simply misses the event.
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aididalam/tasktrack/internal/models"
)

// Client is the slice of the redis client the broadcaster needs.
// Satisfied by redis.UniversalClient.
type Client interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Broadcaster owns a long-lived handle to the fan-out channel.
// Every failure on the publish path is absorbed here and at most
// logged; Publish never returns an error and never reaches the
// caller's response path.
type Broadcaster struct {
	logger  zerolog.Logger
	client  Client
	channel string
}

func New(
	logger zerolog.Logger,
	client Client,
	channel string,
) *Broadcaster {
	return &Broadcaster{
		logger:  logger,
		client:  client,
		channel: channel,
	}
}

func (b *Broadcaster) Publish(ctx context.Context, event models.TaskEvent) {
	if b.client == nil {
		b.logger.Debug().
			Str("type", event.Type).
			Msg("no broadcast channel configured, dropping event")
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn().
			Err(err).
			Str("type", event.Type).
			Msg("failed to marshal event, dropping")
		return
	}

	receivers, err := b.client.Publish(ctx, b.channel, payload).Result()
	if err != nil {
		b.logger.Warn().
			Err(err).
			Str("type", event.Type).
			Msg("failed to publish event, dropping")
		return
	}

	b.logger.Debug().
		Str("type", event.Type).
		Int64("receivers", receivers).
		Msg("published event")
}
