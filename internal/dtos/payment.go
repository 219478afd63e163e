package dtos

type CreatePaymentOrderRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// PaymentOrderResponse carries what the checkout widget needs.
type PaymentOrderResponse struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId"`
}

type VerifyPaymentRequest struct {
	SessionID         string `json:"sessionId" binding:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// RazorpayWebhookEvent is the subset of the webhook body we read.
type RazorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Status  string            `json:"status"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}
