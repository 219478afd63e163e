package dtos

import "github.com/preetsinghmakkar/CampusConnect/internal/models"

type SendMessageRequest struct {
	SenderID   string  `json:"senderId" binding:"required,participantid"`
	ReceiverID string  `json:"receiverId" binding:"required,participantid"`
	Text       *string `json:"text" binding:"omitempty,max=4000"`
	Image      *string `json:"image" binding:"omitempty,url"`
}

type CallInviteRequest struct {
	SenderID   string `json:"senderId" binding:"required,participantid"`
	ReceiverID string `json:"receiverId" binding:"required,participantid,nefield=SenderID"`
}

type CallInviteResponse struct {
	RoomID  string          `json:"roomId"`
	CallURL string          `json:"callUrl"`
	Message *models.Message `json:"message"`
}
