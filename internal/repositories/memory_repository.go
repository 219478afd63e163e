package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/preetsinghmakkar/CampusConnect/internal/apperrors"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
)

// MemorySessionRepository keeps sessions in process memory. It backs the
// development driver and the service tests.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Create(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists: %w", session.ID, apperrors.ErrConflict)
	}

	if session.Status == models.SessionStatusRequested {
		for _, s := range r.sessions {
			if s.Status == models.SessionStatusRequested &&
				s.StudentID == session.StudentID && s.MentorID == session.MentorID {
				return fmt.Errorf("pending session for pair: %w", apperrors.ErrConflict)
			}
		}
	}

	now := r.now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *MemorySessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	return s.Clone(), nil
}

func (r *MemorySessionRepository) FindPending(ctx context.Context, studentID, mentorID string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.Status == models.SessionStatusRequested && s.StudentID == studentID && s.MentorID == mentorID {
			return s.Clone(), nil
		}
	}
	return nil, fmt.Errorf("pending session: %w", apperrors.ErrNotFound)
}

func (r *MemorySessionRepository) Update(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, apperrors.ErrNotFound)
	}

	session.CreatedAt = existing.CreatedAt
	session.UpdatedAt = r.now().UTC()
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *MemorySessionRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.Session, error) {
	return r.list(func(s *models.Session) bool { return s.StudentID == studentID && s.Visible() }), nil
}

func (r *MemorySessionRepository) ListByMentor(ctx context.Context, mentorID string) ([]*models.Session, error) {
	return r.list(func(s *models.Session) bool { return s.MentorID == mentorID && s.Visible() }), nil
}

func (r *MemorySessionRepository) ListDeclined(ctx context.Context, participantID string) ([]*models.Session, error) {
	return r.list(func(s *models.Session) bool { return s.IsParticipant(participantID) && !s.Visible() }), nil
}

// list returns matches newest first.
func (r *MemorySessionRepository) list(match func(*models.Session) bool) []*models.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Session, 0)
	for _, s := range r.sessions {
		if match(s) {
			out = append(out, s.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// MemoryMessageRepository appends messages to a slice, so insertion order is
// storage order.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []*models.Message
	now      func() time.Time
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{now: time.Now}
}

func (r *MemoryMessageRepository) Create(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.CreatedAt = r.now().UTC()
	r.messages = append(r.messages, message.Clone())
	return nil
}

func (r *MemoryMessageRepository) Conversation(ctx context.Context, participantA, participantB string) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Message, 0)
	for _, m := range r.messages {
		if (m.SenderID == participantA && m.ReceiverID == participantB) ||
			(m.SenderID == participantB && m.ReceiverID == participantA) {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}
