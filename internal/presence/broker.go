package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Envelope carries an event to whichever instance holds ConnID. A Supersede
// envelope has no event: the holder closes ConnID because a newer connection
// for the same participant registered elsewhere.
type Envelope struct {
	Origin    string          `json:"origin"`
	ConnID    string          `json:"conn_id"`
	Event     json.RawMessage `json:"event,omitempty"`
	Supersede bool            `json:"supersede,omitempty"`
}

// RedisBroker fans relay events out to every gateway instance over one
// pub/sub channel. Instances that do not hold the target connection ignore it.
type RedisBroker struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewRedisBroker(client *redis.Client, channel string, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{client: client, channel: channel, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe blocks delivering envelopes until ctx is cancelled.
func (b *RedisBroker) Subscribe(ctx context.Context, deliver func(Envelope)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
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
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn().Err(err).Msg("dropping malformed relay envelope")
				continue
			}
			deliver(env)
		}
	}
}
