package client

import (
	"context"
	"sync"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
)

// Buckets groups sessions the way the dashboards show them. Accepted and
// Scheduled only hold paid sessions; an accepted or scheduled session whose
// payment flag is still false lands in AwaitingPayment.
type Buckets struct {
	Requested       []Session // waiting for the mentor
	AwaitingPayment []Session
	Accepted        []Session
	Scheduled       []Session
	InProgress      []Session
	Completed       []Session
}

func Bucketize(sessions []Session) Buckets {
	var b Buckets
	for _, s := range sessions {
		switch s.Status {
		case StatusRequested:
			b.Requested = append(b.Requested, s)
		case StatusAccepted, StatusScheduled:
			switch {
			case !s.IsPaymentDone:
				b.AwaitingPayment = append(b.AwaitingPayment, s)
			case s.Status == StatusAccepted:
				b.Accepted = append(b.Accepted, s)
			default:
				b.Scheduled = append(b.Scheduled, s)
			}
		case StatusInProgress:
			b.InProgress = append(b.InProgress, s)
		case StatusCompleted:
			b.Completed = append(b.Completed, s)
		}
	}
	return b
}

// SessionWatcher refreshes the participant's sessions on a fixed interval
// and immediately after a session-updated push.
type SessionWatcher struct {
	api           *API
	participantID string
	role          Role
	interval      time.Duration
	trigger       chan struct{}

	mu       sync.RWMutex
	buckets  Buckets
	onUpdate func(Buckets)
}

func NewSessionWatcher(api *API, gateway *Gateway, participantID string, role Role, interval time.Duration) *SessionWatcher {
	w := &SessionWatcher{
		api:           api,
		participantID: participantID,
		role:          role,
		interval:      interval,
		trigger:       make(chan struct{}, 1),
	}
	if gateway != nil {
		gateway.On(EventSessionUpdated, func(Event) { w.Trigger() })
	}
	return w
}

func (w *SessionWatcher) OnUpdate(fn func(Buckets)) {
	w.mu.Lock()
	w.onUpdate = fn
	w.mu.Unlock()
}

// Trigger requests a refresh without blocking. Bursts collapse into one.
func (w *SessionWatcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes until ctx is done.
func (w *SessionWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	_ = w.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.trigger:
		}
		// errors are retried on the next tick
		_ = w.Refresh(ctx)
	}
}

func (w *SessionWatcher) Refresh(ctx context.Context) error {
	var (
		sessions []Session
		err      error
	)
	if w.role == RoleMentor {
		sessions, err = w.api.MentorSessions(ctx, w.participantID)
	} else {
		sessions, err = w.api.StudentSessions(ctx, w.participantID)
	}
	if err != nil {
		return err
	}

	b := Bucketize(sessions)
	w.mu.Lock()
	w.buckets = b
	fn := w.onUpdate
	w.mu.Unlock()

	if fn != nil {
		fn(b)
	}
	return nil
}

func (w *SessionWatcher) Buckets() Buckets {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.buckets
}
