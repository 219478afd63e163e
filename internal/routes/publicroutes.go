package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/handlers"
	"github.com/preetsinghmakkar/CampusConnect/internal/middlewares"
)

func RegisterPublicEndpoints(
	router *gin.Engine,
	healthHandler *handlers.HealthHandler,
	paymentHandler *handlers.PaymentHandler,
	webSocketHandler *handlers.WebSocketHandler,
	metricsHandler http.Handler,
	jwtSecret string,
) {
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metricsHandler))

	public := router.Group("/api")

	public.POST("/webhooks/razorpay", paymentHandler.RazorpayWebhook)

	// Browsers cannot send headers on the upgrade, so the token comes as a query param
	public.GET("/ws", middlewares.WebSocketAuthMiddleware(jwtSecret), webSocketHandler.HandleWebSocket)
}
