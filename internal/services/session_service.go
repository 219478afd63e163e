package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/CampusConnect/internal/apperrors"
	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/events"
	"github.com/preetsinghmakkar/CampusConnect/internal/metrics"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	"github.com/preetsinghmakkar/CampusConnect/internal/repositories"
	"github.com/rs/zerolog"
)

// SessionService owns every status transition of a mentorship session.
// Every mutating call takes the authenticated caller as actor.
type SessionService struct {
	sessions      repositories.SessionRepository
	publisher     events.Publisher
	metrics       *metrics.Metrics
	log           zerolog.Logger
	defaultAmount int64
	now           func() time.Time
}

func NewSessionService(
	sessions repositories.SessionRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
	defaultAmount int64,
) *SessionService {
	return &SessionService{
		sessions:      sessions,
		publisher:     publisher,
		metrics:       m,
		log:           log.With().Str("component", "sessions").Logger(),
		defaultAmount: defaultAmount,
		now:           time.Now,
	}
}

// RequestSession creates a session in requested state. A second request for
// the same pair while one is pending fails with ErrConflict.
func (s *SessionService) RequestSession(ctx context.Context, actor string, req dtos.CreateSessionRequest) (*models.Session, error) {
	studentID := strings.TrimSpace(req.StudentID)
	mentorID := strings.TrimSpace(req.MentorID)

	if studentID == "" || mentorID == "" {
		return nil, fmt.Errorf("studentId and mentorId are required: %w", apperrors.ErrInvalidArgument)
	}
	if studentID == mentorID {
		return nil, fmt.Errorf("cannot request a session with yourself: %w", apperrors.ErrInvalidArgument)
	}
	if actor != studentID {
		return nil, fmt.Errorf("only the student can request a session: %w", apperrors.ErrForbidden)
	}

	sessionType := models.SessionTypeChat
	if req.SessionType != "" {
		sessionType = models.SessionType(req.SessionType)
	}

	session := &models.Session{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		MentorID:    mentorID,
		StudentName: req.StudentName,
		MentorName:  req.MentorName,
		Status:      models.SessionStatusRequested,
		SessionType: sessionType,
		Topic:       req.Topic,
		Amount:      s.defaultAmount,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("student_id", studentID).
		Str("mentor_id", mentorID).
		Msg("session requested")

	s.publish(ctx, events.SessionRequested, actor, session)
	return session, nil
}

// GetSession returns a visible session. Declined sessions are NotFound.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionId is required: %w", apperrors.ErrInvalidArgument)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Visible() {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	return session, nil
}

// pending loads a session that is still awaiting the mentor. Anything that
// already moved on is reported as NotFound.
func (s *SessionService) pending(ctx context.Context, actor, sessionID string) (*models.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if actor != session.MentorID {
		return nil, fmt.Errorf("only the mentor can answer a request: %w", apperrors.ErrForbidden)
	}
	if session.Status != models.SessionStatusRequested {
		return nil, fmt.Errorf("no pending session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	return session, nil
}

// AcceptSession moves requested -> accepted.
func (s *SessionService) AcceptSession(ctx context.Context, actor, sessionID string) (*models.Session, error) {
	session, err := s.pending(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	session.Status = models.SessionStatusAccepted
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SessionAccepted, actor, session)
	return session, nil
}

// DeclineSession retires a pending request. The record is kept with status
// rejected but no lifecycle read returns it again.
func (s *SessionService) DeclineSession(ctx context.Context, actor, sessionID string) (*models.Session, error) {
	session, err := s.pending(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session.Status = models.SessionStatusRejected
	session.DeclinedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SessionDeclined, actor, session)
	return session, nil
}

// ConfirmPayment marks the session paid and scheduled whatever its status.
// Repeating it is harmless.
func (s *SessionService) ConfirmPayment(ctx context.Context, actor, sessionID, paymentID string) (*models.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if actor != session.StudentID {
		return nil, fmt.Errorf("only the student can pay for a session: %w", apperrors.ErrForbidden)
	}
	return s.markPaid(ctx, actor, session, paymentID)
}

// RecordPayment is ConfirmPayment for callers already trusted by the
// payment provider, such as a verified webhook.
func (s *SessionService) RecordPayment(ctx context.Context, sessionID, paymentID string) (*models.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.markPaid(ctx, "payment-provider", session, paymentID)
}

func (s *SessionService) markPaid(ctx context.Context, actor string, session *models.Session, paymentID string) (*models.Session, error) {
	session.IsPaymentDone = true
	session.Status = models.SessionStatusScheduled
	if paymentID != "" {
		session.PaymentID = paymentID
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("payment_id", session.PaymentID).
		Msg("payment confirmed")

	s.publish(ctx, events.SessionPaymentConfirmed, actor, session)
	return session, nil
}

// JoinSession sets in-progress. The prior status is not checked.
func (s *SessionService) JoinSession(ctx context.Context, actor, sessionID string) (*models.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(actor) {
		return nil, fmt.Errorf("not a participant of session %s: %w", sessionID, apperrors.ErrForbidden)
	}

	session.Status = models.SessionStatusInProgress
	if session.StartTime == nil {
		now := s.now().UTC()
		session.StartTime = &now
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SessionJoined, actor, session)
	return session, nil
}

// CompleteSession closes an in-progress session with a rating.
func (s *SessionService) CompleteSession(ctx context.Context, actor, sessionID string, req dtos.CompleteSessionRequest) (*models.Session, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", apperrors.ErrInvalidArgument)
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(actor) {
		return nil, fmt.Errorf("not a participant of session %s: %w", sessionID, apperrors.ErrForbidden)
	}
	if session.Status != models.SessionStatusInProgress {
		return nil, fmt.Errorf("session %s is %s, not in-progress: %w", sessionID, session.Status, apperrors.ErrConflict)
	}

	now := s.now().UTC()
	session.Status = models.SessionStatusCompleted
	session.EndTime = &now
	if session.StartTime != nil {
		session.DurationMinutes = int(now.Sub(*session.StartTime).Minutes())
	}
	rating := req.Rating
	session.Rating = &rating
	session.Feedback = req.Feedback

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SessionCompleted, actor, session)
	return session, nil
}

func (s *SessionService) ListByStudent(ctx context.Context, studentID string) ([]*models.Session, error) {
	if studentID == "" {
		return nil, fmt.Errorf("studentId is required: %w", apperrors.ErrInvalidArgument)
	}
	return s.sessions.ListByStudent(ctx, studentID)
}

func (s *SessionService) ListByMentor(ctx context.Context, mentorID string) ([]*models.Session, error) {
	if mentorID == "" {
		return nil, fmt.Errorf("mentorId is required: %w", apperrors.ErrInvalidArgument)
	}
	return s.sessions.ListByMentor(ctx, mentorID)
}

// ListDeclined is the audit view of the caller's declined requests.
func (s *SessionService) ListDeclined(ctx context.Context, actor string) ([]*models.Session, error) {
	return s.sessions.ListDeclined(ctx, actor)
}

// publish never fails the transition: the store is the source of truth.
func (s *SessionService) publish(ctx context.Context, eventType events.EventType, actor string, session *models.Session) {
	s.metrics.SessionEvents.WithLabelValues(string(eventType)).Inc()
	if s.publisher == nil {
		return
	}

	event := events.SessionEvent{
		Type:    eventType,
		Actor:   actor,
		Session: session.Clone(),
		At:      s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).
			Str("session_id", session.ID).
			Str("event", string(eventType)).
			Msg("publish session event failed")
	}
}
