package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/middlewares"
	"github.com/preetsinghmakkar/CampusConnect/internal/services"
)

type MessageHandler struct {
	messageService *services.MessageService
}

func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessage POST /messages/sendMessage
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req dtos.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// GetMessages GET /messages/getMessage?senderId=&mentorId=
// Missing parameters answer 402, which existing clients already handle.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	senderID := c.Query("senderId")
	mentorID := c.Query("mentorId")
	if senderID == "" || mentorID == "" {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "senderId and mentorId are required"})
		return
	}

	messages, err := h.messageService.GetConversation(c.Request.Context(), middlewares.UserID(c), senderID, mentorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendCallInvite POST /messages/callInvite
func (h *MessageHandler) SendCallInvite(c *gin.Context) {
	var req dtos.CallInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	invite, err := h.messageService.SendCallInvite(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invite)
}
