package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/preetsinghmakkar/CampusConnect/internal/events"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
)

// Client -> server events.
const (
	EventSetup       = "setup"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventPing        = "ping"
)

// Server -> client events.
const (
	EventSetupComplete    = "setup_complete"
	EventReceiveMessage   = "receiveMessage"
	EventSessionUpdated   = "session-updated"
	EventUserTyping       = "user-typing"
	EventUserStatusUpdate = "user-status-update"
	EventPong             = "pong"
	EventError            = "error"
)

// WebSocketMessage is the envelope for every frame in both directions.
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SetupPayload struct {
	ParticipantID string `json:"participantId"`
}

type SetupCompletePayload struct {
	Status       string `json:"status"`
	ConnectionID string `json:"connectionId"`
}

// SendMessagePayload is a message the client already stored through the
// REST API. It is forwarded to the receiver unchanged, so ID should carry the
// stored message id for the receiver to de-duplicate against history.
type SendMessagePayload struct {
	ID         string     `json:"id,omitempty"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Type       string     `json:"type,omitempty"`
	Text       *string    `json:"text,omitempty"`
	Image      *string    `json:"image,omitempty"`
	RoomID     *string    `json:"roomId,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type UserTypingPayload struct {
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
}

type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"` // "online" or "offline"
}

type SessionUpdatedPayload struct {
	Event   events.EventType `json:"event"`
	Session *models.Session  `json:"session"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode builds a ready-to-write frame.
func Encode(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(WebSocketMessage{Type: eventType, Payload: raw})
}

// Decode parses an inbound frame.
func Decode(data []byte) (WebSocketMessage, error) {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return msg, nil
}
