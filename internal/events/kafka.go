package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const kafkaBatchTimeout = 10 * time.Millisecond

// KafkaPublisher streams lifecycle events to a topic, keyed by session id so
// one session's events stay ordered within a partition. Writes are async:
// Publish returns once the event is queued and delivery failures are logged.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log zerolog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{log: log.With().Str("component", "kafka").Str("topic", topic).Logger()}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           kafkaBatchTimeout,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion:             p.completed,
	}
	return p
}

func (p *KafkaPublisher) completed(messages []kafka.Message, err error) {
	if err != nil {
		p.log.Error().Err(err).Int("count", len(messages)).Msg("session events not delivered")
		return
	}
	p.log.Debug().Int("count", len(messages)).Msg("session events delivered")
}

func buildMessage(event SessionEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal session event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.Session.ID),
		Value: value,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event SessionEvent) error {
	msg, err := buildMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("queue session event: %w", err)
	}
	return nil
}

// Close flushes queued events and waits for their completion callbacks.
func (p *KafkaPublisher) Close() error { return p.writer.Close() }
