package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/middlewares"
	"github.com/preetsinghmakkar/CampusConnect/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateOrder POST /payments/order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req dtos.CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.paymentService.CreateOrder(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// VerifyPayment POST /payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req dtos.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.paymentService.VerifyPayment(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// RazorpayWebhook POST /webhooks/razorpay
func (h *PaymentHandler) RazorpayWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
