package client

import "time"

// Session as returned by the sessions API.
type Session struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"studentId"`
	MentorID        string     `json:"mentorId"`
	StudentName     string     `json:"studentName"`
	MentorName      string     `json:"mentorName"`
	Status          string     `json:"status"`
	SessionType     string     `json:"sessionType"`
	Topic           string     `json:"topic,omitempty"`
	Amount          int64      `json:"amount"`
	IsPaymentDone   bool       `json:"isPaymentDone"`
	PaymentID       string     `json:"paymentId,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	Rating          *int       `json:"rating,omitempty"`
	Feedback        string     `json:"feedback,omitempty"`
	DeclinedAt      *time.Time `json:"declinedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

const (
	StatusRequested  = "requested"
	StatusAccepted   = "accepted"
	StatusRejected   = "rejected"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Message is a chat message. Type is text, image or call-invite.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Type       string    `json:"type"`
	Text       *string   `json:"text,omitempty"`
	Image      *string   `json:"image,omitempty"`
	RoomID     *string   `json:"roomId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SessionRequest struct {
	StudentID   string `json:"studentId"`
	MentorID    string `json:"mentorId"`
	StudentName string `json:"studentName"`
	MentorName  string `json:"mentorName"`
	SessionType string `json:"sessionType,omitempty"`
	Topic       string `json:"topic,omitempty"`
}

type SendMessageRequest struct {
	SenderID   string  `json:"senderId"`
	ReceiverID string  `json:"receiverId"`
	Text       *string `json:"text,omitempty"`
	Image      *string `json:"image,omitempty"`
}

type CallInvite struct {
	RoomID  string   `json:"roomId"`
	CallURL string   `json:"callUrl"`
	Message *Message `json:"message"`
}

type PaymentOrder struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId"`
}

type VerifyPaymentRequest struct {
	SessionID         string `json:"sessionId"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}
