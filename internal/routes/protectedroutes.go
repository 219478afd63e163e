package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/handlers"
	"github.com/preetsinghmakkar/CampusConnect/internal/middlewares"
)

func RegisterProtectedEndpoints(
	router *gin.Engine,
	sessionHandler *handlers.SessionHandler,
	messageHandler *handlers.MessageHandler,
	paymentHandler *handlers.PaymentHandler,
	jwtSecret string,
) {
	protected := router.Group("/api")
	protected.Use(middlewares.AuthMiddleware(jwtSecret))

	protected.POST("/sessions/request", sessionHandler.RequestSession)
	protected.GET("/sessions/student/:studentId", sessionHandler.GetStudentSessions)
	protected.GET("/sessions/mentor/:mentorId", sessionHandler.GetMentorSessions)
	protected.GET("/sessions/declined", sessionHandler.GetDeclinedSessions)
	protected.POST("/sessions/accept/:sessionId", sessionHandler.AcceptSession)
	protected.POST("/sessions/decline/:sessionId", sessionHandler.DeclineSession)
	protected.POST("/sessions/payment/:sessionId", sessionHandler.ConfirmPayment)
	protected.POST("/sessions/join/:sessionId", sessionHandler.JoinSession)
	protected.POST("/sessions/complete/:sessionId", sessionHandler.CompleteSession)
	protected.POST("/sessions/me", sessionHandler.GetSession)

	protected.POST("/messages/sendMessage", messageHandler.SendMessage)
	protected.GET("/messages/getMessage", messageHandler.GetMessages)
	protected.POST("/messages/callInvite", messageHandler.SendCallInvite)

	protected.POST("/payments/order", paymentHandler.CreateOrder)
	protected.POST("/payments/verify", paymentHandler.VerifyPayment)
}
