package dtos

import "github.com/preetsinghmakkar/CampusConnect/internal/models"

// Request a session with a mentor
type CreateSessionRequest struct {
	StudentID   string `json:"studentId" binding:"required,participantid"`
	MentorID    string `json:"mentorId" binding:"required,participantid,nefield=StudentID"`
	StudentName string `json:"studentName" binding:"required,max=120"`
	MentorName  string `json:"mentorName" binding:"required,max=120"`
	SessionType string `json:"sessionType" binding:"omitempty,oneof=chat video"`
	Topic       string `json:"topic" binding:"omitempty,max=500"`
}

type GetSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// Optional body for the payment stub route
type ConfirmPaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"omitempty,max=128"`
}

type CompleteSessionRequest struct {
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Feedback string `json:"feedback" binding:"omitempty,max=2000"`
}

type SessionResponse struct {
	Session *models.Session `json:"session"`
}

type SessionsResponse struct {
	Sessions []*models.Session `json:"sessions"`
}

type DeclineSessionResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}
