package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	var got []EventType
	record := PublisherFunc(func(ctx context.Context, e SessionEvent) error {
		got = append(got, e.Type)
		return nil
	})
	boom := errors.New("broker down")
	failing := PublisherFunc(func(ctx context.Context, e SessionEvent) error { return boom })

	m := Multi{record, nil, failing, record}
	err := m.Publish(context.Background(), SessionEvent{
		Type:    SessionAccepted,
		Session: &models.Session{ID: "s1"},
		At:      time.Now(),
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []EventType{SessionAccepted, SessionAccepted}, got)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Publish(context.Background(), SessionEvent{}))
}
