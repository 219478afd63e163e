package repositories

import (
	"context"

	"github.com/preetsinghmakkar/CampusConnect/internal/models"
)

// SessionRepository persists sessions. Every write touches exactly one record.
//
// Create fails with apperrors.ErrConflict when the (student, mentor) pair
// already has a requested session. GetByID returns declined sessions too so the
// service can decide how to treat them; the List methods never do.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	FindPending(ctx context.Context, studentID, mentorID string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	ListByStudent(ctx context.Context, studentID string) ([]*models.Session, error)
	ListByMentor(ctx context.Context, mentorID string) ([]*models.Session, error)
	ListDeclined(ctx context.Context, participantID string) ([]*models.Session, error)
}

// MessageRepository persists chat messages. Conversation returns both
// directions of a pair in insertion order.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	Conversation(ctx context.Context, participantA, participantB string) ([]*models.Message, error)
}
