package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/preetsinghmakkar/CampusConnect/internal/apperrors"
	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	razorpay "github.com/razorpay/razorpay-go"
	rzputils "github.com/razorpay/razorpay-go/utils"
	"github.com/rs/zerolog"
)

// PaymentGateway is the slice of the payment provider the service needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error)
	VerifyPayment(orderID, paymentID, signature string) bool
	VerifyWebhook(body []byte, signature string) bool
	// OrderSessionID returns the session_id note the order was created with.
	OrderSessionID(ctx context.Context, orderID string) (string, error)
}

// RazorpayGateway talks to Razorpay's orders API.
type RazorpayGateway struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay create order: %v: %w", err, apperrors.ErrUnavailable)
	}

	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order without id: %w", apperrors.ErrUnavailable)
	}
	return id, nil
}

func (g *RazorpayGateway) OrderSessionID(ctx context.Context, orderID string) (string, error) {
	order, err := g.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay fetch order %s: %v: %w", orderID, err, apperrors.ErrUnavailable)
	}

	// notes comes back as an empty array when the order has none
	notes, _ := order["notes"].(map[string]interface{})
	sessionID, _ := notes["session_id"].(string)
	return sessionID, nil
}

func (g *RazorpayGateway) VerifyPayment(orderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return rzputils.VerifyPaymentSignature(params, signature, g.keySecret)
}

func (g *RazorpayGateway) VerifyWebhook(body []byte, signature string) bool {
	if g.webhookSecret == "" {
		return false
	}
	return rzputils.VerifyWebhookSignature(string(body), signature, g.webhookSecret)
}

// PaymentService collects the session fee through the gateway and confirms
// the session once the provider vouches for the payment.
type PaymentService struct {
	sessions *SessionService
	gateway  PaymentGateway
	keyID    string
	currency string
	log      zerolog.Logger
}

// NewPaymentService accepts a nil gateway: every call then fails with
// ErrUnavailable and only the plain payment route remains usable.
func NewPaymentService(sessions *SessionService, gateway PaymentGateway, keyID, currency string, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		sessions: sessions,
		gateway:  gateway,
		keyID:    keyID,
		currency: currency,
		log:      log.With().Str("component", "payments").Logger(),
	}
}

func (s *PaymentService) CreateOrder(ctx context.Context, actor string, req dtos.CreatePaymentOrderRequest) (*dtos.PaymentOrderResponse, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("payments are not configured: %w", apperrors.ErrUnavailable)
	}

	session, err := s.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if actor != session.StudentID {
		return nil, fmt.Errorf("only the student can pay for a session: %w", apperrors.ErrForbidden)
	}
	if session.IsPaymentDone {
		return nil, fmt.Errorf("session %s is already paid: %w", session.ID, apperrors.ErrConflict)
	}

	amount := session.Amount * 100
	orderID, err := s.gateway.CreateOrder(ctx, amount, s.currency, "session_"+session.ID, map[string]string{
		"session_id": session.ID,
		"student_id": session.StudentID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("session_id", session.ID).Str("order_id", orderID).Msg("payment order created")

	return &dtos.PaymentOrderResponse{
		OrderID:   orderID,
		SessionID: session.ID,
		Amount:    amount,
		Currency:  s.currency,
		KeyID:     s.keyID,
	}, nil
}

// VerifyPayment checks the checkout signature and confirms the session.
func (s *PaymentService) VerifyPayment(ctx context.Context, actor string, req dtos.VerifyPaymentRequest) (*models.Session, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("payments are not configured: %w", apperrors.ErrUnavailable)
	}
	if !s.gateway.VerifyPayment(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return nil, fmt.Errorf("invalid payment signature: %w", apperrors.ErrInvalidArgument)
	}

	// the signature covers the order, not the session it is applied to
	orderSession, err := s.gateway.OrderSessionID(ctx, req.RazorpayOrderID)
	if err != nil {
		return nil, err
	}
	if orderSession != req.SessionID {
		return nil, fmt.Errorf("order %s was not created for session %s: %w", req.RazorpayOrderID, req.SessionID, apperrors.ErrInvalidArgument)
	}
	return s.sessions.ConfirmPayment(ctx, actor, req.SessionID, req.RazorpayPaymentID)
}

// HandleWebhook confirms sessions from captured-payment webhooks. Events we
// do not act on are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.gateway == nil {
		return fmt.Errorf("payments are not configured: %w", apperrors.ErrUnavailable)
	}
	if !s.gateway.VerifyWebhook(body, signature) {
		return fmt.Errorf("invalid webhook signature: %w", apperrors.ErrUnauthorized)
	}

	var event dtos.RazorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook: %v: %w", err, apperrors.ErrInvalidArgument)
	}

	if event.Event != "payment.captured" {
		s.log.Debug().Str("event", event.Event).Msg("ignoring webhook event")
		return nil
	}

	payment := event.Payload.Payment.Entity
	sessionID := payment.Notes["session_id"]
	if sessionID == "" {
		s.log.Warn().Str("payment_id", payment.ID).Msg("captured payment without session note")
		return nil
	}

	_, err := s.sessions.RecordPayment(ctx, sessionID, payment.ID)
	return err
}
