package models

import "time"

type SessionStatus string

const (
	SessionStatusRequested  SessionStatus = "requested"
	SessionStatusAccepted   SessionStatus = "accepted"
	SessionStatusRejected   SessionStatus = "rejected"
	SessionStatusScheduled  SessionStatus = "scheduled"
	SessionStatusInProgress SessionStatus = "in-progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

type SessionType string

const (
	SessionTypeChat  SessionType = "chat"
	SessionTypeVideo SessionType = "video"
)

// Session is one mentorship engagement between a student and a mentor.
// Names are captured when the session is requested and never refreshed.
type Session struct {
	ID          string `db:"id" json:"id" bson:"_id"`
	StudentID   string `db:"student_id" json:"studentId" bson:"student_id"`
	MentorID    string `db:"mentor_id" json:"mentorId" bson:"mentor_id"`
	StudentName string `db:"student_name" json:"studentName" bson:"student_name"`
	MentorName  string `db:"mentor_name" json:"mentorName" bson:"mentor_name"`

	Status      SessionStatus `db:"status" json:"status" bson:"status"`
	SessionType SessionType   `db:"session_type" json:"sessionType" bson:"session_type"`
	Topic       string        `db:"topic" json:"topic,omitempty" bson:"topic,omitempty"`

	Amount        int64  `db:"amount" json:"amount" bson:"amount"`
	IsPaymentDone bool   `db:"is_payment_done" json:"isPaymentDone" bson:"is_payment_done"`
	PaymentID     string `db:"payment_id" json:"paymentId,omitempty" bson:"payment_id,omitempty"`

	StartTime       *time.Time `db:"start_time" json:"startTime,omitempty" bson:"start_time,omitempty"`
	EndTime         *time.Time `db:"end_time" json:"endTime,omitempty" bson:"end_time,omitempty"`
	DurationMinutes int        `db:"duration_minutes" json:"durationMinutes" bson:"duration_minutes"`

	Rating   *int   `db:"rating" json:"rating,omitempty" bson:"rating,omitempty"`
	Feedback string `db:"feedback" json:"feedback,omitempty" bson:"feedback,omitempty"`

	// DeclinedAt is set together with the rejected status. Declined sessions
	// are kept for audit but hidden from every lifecycle read.
	DeclinedAt *time.Time `db:"declined_at" json:"declinedAt,omitempty" bson:"declined_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt" bson:"updated_at"`
}

func (s *Session) IsParticipant(userID string) bool {
	return userID != "" && (s.StudentID == userID || s.MentorID == userID)
}

// Visible reports whether lifecycle reads should return the session.
func (s *Session) Visible() bool {
	return s.Status != SessionStatusRejected
}

// Clone returns a deep copy so callers never share pointer fields.
func (s *Session) Clone() *Session {
	c := *s
	c.StartTime = cloneTime(s.StartTime)
	c.EndTime = cloneTime(s.EndTime)
	c.DeclinedAt = cloneTime(s.DeclinedAt)
	if s.Rating != nil {
		r := *s.Rating
		c.Rating = &r
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
