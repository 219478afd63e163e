package services

import (
	"context"
	"sync"
	"time"

	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/events"
	"github.com/preetsinghmakkar/CampusConnect/internal/logger"
	"github.com/preetsinghmakkar/CampusConnect/internal/metrics"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	"github.com/preetsinghmakkar/CampusConnect/internal/repositories"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SessionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingRelayer struct {
	mu        sync.Mutex
	online    map[string]bool
	delivered []*models.Message
}

func (r *recordingRelayer) RelayMessage(ctx context.Context, m *models.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online[m.ReceiverID] {
		return false
	}
	r.delivered = append(r.delivered, m)
	return true
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSessionService() (*SessionService, *recordingPublisher, *fixedClock) {
	pub := &recordingPublisher{}
	clock := &fixedClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewSessionService(repositories.NewMemorySessionRepository(), pub, metrics.New(), logger.Nop(), 99)
	svc.now = clock.now
	return svc, pub, clock
}

func request(student, mentor string) dtos.CreateSessionRequest {
	return dtos.CreateSessionRequest{
		StudentID:   student,
		MentorID:    mentor,
		StudentName: "Student " + student,
		MentorName:  "Mentor " + mentor,
	}
}

func strPtr(s string) *string { return &s }
