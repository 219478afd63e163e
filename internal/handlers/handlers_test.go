package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/preetsinghmakkar/CampusConnect/internal/app"
	"github.com/preetsinghmakkar/CampusConnect/internal/config"
	"github.com/preetsinghmakkar/CampusConnect/internal/handlers"
	"github.com/preetsinghmakkar/CampusConnect/internal/logger"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	"github.com/preetsinghmakkar/CampusConnect/internal/utils"
	ws "github.com/preetsinghmakkar/CampusConnect/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "handler-test-secret"

type fakeGateway struct{}

func (fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error) {
	return "order_test", nil
}

func (fakeGateway) VerifyPayment(orderID, paymentID, signature string) bool {
	return signature == "good"
}

func (fakeGateway) VerifyWebhook(body []byte, signature string) bool { return signature == "good" }

func (fakeGateway) OrderSessionID(ctx context.Context, orderID string) (string, error) {
	return "", nil
}

func newTestApp(t *testing.T, overrides ...func(*config.Config)) *app.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Auth.JWTSecret = secret
	cfg.HTTP.AllowedOrigins = []string{"*"}
	cfg.WebSocket.PingInterval = time.Minute
	for _, o := range overrides {
		o(cfg)
	}

	return app.New(app.Deps{Config: cfg, Log: logger.Nop(), PaymentGateway: fakeGateway{}})
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(userID, "", secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, a *app.App, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func sessionBody(student, mentor string) gin.H {
	return gin.H{
		"studentId":   student,
		"mentorId":    mentor,
		"studentName": "Student",
		"mentorName":  "Mentor",
	}
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) models.Session {
	t.Helper()
	var s models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestSessionRoutes_StatusCodes(t *testing.T) {
	a := newTestApp(t)

	w := do(t, a, http.MethodPost, "/api/sessions/request", "s1", sessionBody("s1", "m1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeSession(t, w)
	assert.Equal(t, models.SessionStatusRequested, created.Status)

	w = do(t, a, http.MethodPost, "/api/sessions/request", "s1", sessionBody("s1", "m1"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, a, http.MethodPost, "/api/sessions/request", "s1", sessionBody("s1", "s1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, a, http.MethodPost, "/api/sessions/request", "s1", gin.H{"studentId": "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// requesting on someone else's behalf
	w = do(t, a, http.MethodPost, "/api/sessions/request", "s2", sessionBody("s1", "m2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, a, http.MethodPost, "/api/sessions/accept/"+created.ID, "s1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, a, http.MethodPost, "/api/sessions/accept/missing", "m1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, a, http.MethodPost, "/api/sessions/accept/"+created.ID, "m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SessionStatusAccepted, decodeSession(t, w).Status)

	w = do(t, a, http.MethodPost, "/api/sessions/payment/"+created.ID, "s1", gin.H{"paymentId": "pay_1"})
	require.Equal(t, http.StatusOK, w.Code)
	paid := decodeSession(t, w)
	assert.Equal(t, models.SessionStatusScheduled, paid.Status)
	assert.True(t, paid.IsPaymentDone)
	assert.Equal(t, "pay_1", paid.PaymentID)

	w = do(t, a, http.MethodPost, "/api/sessions/me", "s1", gin.H{"sessionId": created.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var wrapped struct {
		Session models.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrapped))
	assert.Equal(t, created.ID, wrapped.Session.ID)

	w = do(t, a, http.MethodGet, "/api/sessions/mentor/m1", "m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []models.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Sessions, 1)
}

func TestSessionRoutes_RequireAuth(t *testing.T) {
	a := newTestApp(t)

	w := do(t, a, http.MethodGet, "/api/sessions/student/s1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeclineRoute(t *testing.T) {
	a := newTestApp(t)

	w := do(t, a, http.MethodPost, "/api/sessions/request", "s1", sessionBody("s1", "m1"))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeSession(t, w)

	w = do(t, a, http.MethodPost, "/api/sessions/decline/"+created.ID, "m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = do(t, a, http.MethodPost, "/api/sessions/me", "s1", gin.H{"sessionId": created.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, a, http.MethodPost, "/api/sessions/decline/"+created.ID, "m1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessageRoutes(t *testing.T) {
	a := newTestApp(t)

	w := do(t, a, http.MethodGet, "/api/messages/getMessage?senderId=a", "a", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = do(t, a, http.MethodPost, "/api/messages/sendMessage", "a", gin.H{"senderId": "a", "receiverId": "b", "text": "hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, a, http.MethodPost, "/api/messages/sendMessage", "a", gin.H{"senderId": "a", "receiverId": "b", "text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, a, http.MethodPost, "/api/messages/sendMessage", "c", gin.H{"senderId": "a", "receiverId": "b", "text": "spoof"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, a, http.MethodGet, "/api/messages/getMessage?senderId=b&mentorId=a", "b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", *msgs[0].Text)

	w = do(t, a, http.MethodGet, "/api/messages/getMessage?senderId=a&mentorId=b", "c", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, a, http.MethodPost, "/api/messages/callInvite", "a", gin.H{"senderId": "a", "receiverId": "b"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "roomId")
}

func TestPaymentRoutes(t *testing.T) {
	a := newTestApp(t)

	w := do(t, a, http.MethodPost, "/api/sessions/request", "s1", sessionBody("s1", "m1"))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeSession(t, w)
	require.Equal(t, http.StatusOK, do(t, a, http.MethodPost, "/api/sessions/accept/"+created.ID, "m1", nil).Code)

	w = do(t, a, http.MethodPost, "/api/payments/order", "s1", gin.H{"sessionId": created.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "order_test")

	w = do(t, a, http.MethodPost, "/api/payments/verify", "s1", gin.H{
		"sessionId":           created.ID,
		"razorpay_order_id":   "order_test",
		"razorpay_payment_id": "pay_x",
		"razorpay_signature":  "bad",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// genuine signature, but the order was never created for this session
	w = do(t, a, http.MethodPost, "/api/payments/verify", "s1", gin.H{
		"sessionId":           created.ID,
		"razorpay_order_id":   "order_test",
		"razorpay_payment_id": "pay_x",
		"razorpay_signature":  "good",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not created for session")

	body := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_hook","notes":{"session_id":"` + created.ID + `"}}}}}`

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "forged")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "good")
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	s, err := a.Sessions.GetSession(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusScheduled, s.Status)
	assert.Equal(t, "pay_hook", s.PaymentID)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	w := do(t, a, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, a, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth_HidesCheckErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var logs bytes.Buffer
	h := handlers.NewHealthHandler(zerolog.New(&logs),
		handlers.HealthCheck{Name: "database", Check: func(ctx context.Context) error {
			return errors.New("pq: password authentication failed for user \"campus\" at 10.0.3.7:5432")
		}},
		handlers.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return nil }},
	)
	r := gin.New()
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"unavailable","redis":"ok"}}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, logs.String(), "password authentication failed")
	assert.Contains(t, logs.String(), `"check":"database"`)
}

type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token(t, userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(gin.H{"type": eventType, "payload": payload}))
}

// readUntil skips frames of other types, such as presence broadcasts.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == eventType {
			return f
		}
	}
}

func TestWebSocket_SetupAndRelay(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	alice := dial(t, srv, "alice")
	send(t, alice, ws.EventSendMessage, gin.H{"senderId": "alice", "receiverId": "bob", "text": "early"})
	f := readUntil(t, alice, ws.EventError)
	assert.Contains(t, string(f.Payload), ws.ErrNotSetUp.Error())

	send(t, alice, ws.EventSetup, gin.H{"participantId": "alice"})
	readUntil(t, alice, ws.EventSetupComplete)

	bob := dial(t, srv, "bob")
	send(t, bob, ws.EventSetup, gin.H{"participantId": "bob"})
	readUntil(t, bob, ws.EventSetupComplete)

	send(t, bob, ws.EventTyping, gin.H{"receiverId": "alice", "isTyping": true})
	f = readUntil(t, alice, ws.EventUserTyping)
	assert.Contains(t, string(f.Payload), `"senderId":"bob"`)

	send(t, bob, ws.EventPing, gin.H{})
	readUntil(t, bob, ws.EventPong)
}

func TestWebSocket_SendMessageOnlyRelays(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	alice := dial(t, srv, "alice")
	send(t, alice, ws.EventSetup, gin.H{"participantId": "alice"})
	readUntil(t, alice, ws.EventSetupComplete)

	bob := dial(t, srv, "bob")
	send(t, bob, ws.EventSetup, gin.H{"participantId": "bob"})
	readUntil(t, bob, ws.EventSetupComplete)

	// persist over REST first, then announce over the gateway
	w := do(t, a, http.MethodPost, "/api/messages/sendMessage", "alice", gin.H{"senderId": "alice", "receiverId": "bob", "text": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var stored models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))

	send(t, alice, ws.EventSendMessage, stored)

	for i := 0; i < 2; i++ {
		f := readUntil(t, bob, ws.EventReceiveMessage)
		var m models.Message
		require.NoError(t, json.Unmarshal(f.Payload, &m))
		assert.Equal(t, stored.ID, m.ID)
		assert.Equal(t, "alice", m.SenderID)
		assert.Equal(t, "hi bob", *m.Text)
	}

	history, err := a.Messages.GetConversation(context.Background(), "alice", "alice", "bob")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	send(t, alice, ws.EventSendMessage, gin.H{"senderId": "mallory", "receiverId": "bob", "text": "spoof"})
	f := readUntil(t, alice, ws.EventError)
	assert.Contains(t, string(f.Payload), ws.ErrSenderMismatch.Error())
}

func TestWebSocket_EmptyOriginListAllowsBrowsers(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) { cfg.HTTP.AllowedOrigins = nil })
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token(t, "alice")
	header := http.Header{"Origin": []string{"https://app.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestWebSocket_RejectsUnlistedOrigin(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) { cfg.HTTP.AllowedOrigins = []string{"https://campus.example.com"} })
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token(t, "alice")
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_RejectsForeignParticipant(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "mallory")
	send(t, conn, ws.EventSetup, gin.H{"participantId": "alice"})
	f := readUntil(t, conn, ws.EventError)
	assert.Contains(t, string(f.Payload), ws.ErrParticipantMismatch.Error())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	f = readUntil(t, conn, ws.EventError)
	assert.Contains(t, string(f.Payload), ws.ErrMalformedFrame.Error())
}

func TestWebSocket_RequiresToken(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
