package events

import (
	"context"
	"errors"
	"time"

	"github.com/preetsinghmakkar/CampusConnect/internal/models"
)

type EventType string

const (
	SessionRequested        EventType = "session.requested"
	SessionAccepted         EventType = "session.accepted"
	SessionDeclined         EventType = "session.declined"
	SessionPaymentConfirmed EventType = "session.payment_confirmed"
	SessionJoined           EventType = "session.joined"
	SessionCompleted        EventType = "session.completed"
)

// SessionEvent is emitted after every persisted lifecycle transition.
type SessionEvent struct {
	Type    EventType       `json:"type"`
	Actor   string          `json:"actor"`
	Session *models.Session `json:"session"`
	At      time.Time       `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event SessionEvent) error
}

// Multi delivers an event to every publisher, joining their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event SessionEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event SessionEvent) error

func (f PublisherFunc) Publish(ctx context.Context, event SessionEvent) error {
	return f(ctx, event)
}
