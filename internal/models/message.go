package models

import "time"

type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeImage      MessageType = "image"
	MessageTypeCallInvite MessageType = "call-invite"
)

// Message is addressed by sender and receiver, not by session. A conversation
// is every message exchanged in either direction between two participants.
type Message struct {
	ID         string      `db:"id" json:"id" bson:"_id"`
	SenderID   string      `db:"sender_id" json:"senderId" bson:"sender_id"`
	ReceiverID string      `db:"receiver_id" json:"receiverId" bson:"receiver_id"`
	Type       MessageType `db:"type" json:"type" bson:"type"`
	Text       *string     `db:"text" json:"text" bson:"text"`
	Image      *string     `db:"image" json:"image" bson:"image"`
	RoomID     *string     `db:"room_id" json:"roomId,omitempty" bson:"room_id,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt" bson:"created_at"`
}

func (m *Message) Clone() *Message {
	c := *m
	c.Text = cloneString(m.Text)
	c.Image = cloneString(m.Image)
	c.RoomID = cloneString(m.RoomID)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
