package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Gateway event names.
const (
	EventSetup            = "setup"
	EventSendMessage      = "send_message"
	EventTyping           = "typing"
	EventPing             = "ping"
	EventSetupComplete    = "setup_complete"
	EventReceiveMessage   = "receiveMessage"
	EventSessionUpdated   = "session-updated"
	EventUserTyping       = "user-typing"
	EventUserStatusUpdate = "user-status-update"
	EventPong             = "pong"
	EventError            = "error"
)

const maxReconnectAttempts = 5

// CloseSuperseded is the close code used when another connection for the
// same participant took over.
const CloseSuperseded = 4000

var ErrGatewayClosed = errors.New("gateway closed")

// Event is one frame pushed by the server.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Handler func(Event)

// Gateway keeps a live connection to the messaging gateway, performs the
// setup handshake and reconnects with exponential backoff.
type Gateway struct {
	url           string
	participantID string
	dialer        *websocket.Dialer
	initialDelay  time.Duration
	log           zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[string][]Handler
}

type GatewayOption func(*Gateway)

// WithInitialBackoff sets the first reconnect delay.
func WithInitialBackoff(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.initialDelay = d }
}

func WithLogger(log zerolog.Logger) GatewayOption {
	return func(g *Gateway) { g.log = log }
}

// NewGateway targets baseURL (http or https) as participantID.
func NewGateway(baseURL, token, participantID string, opts ...GatewayOption) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/api/ws")
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	g := &Gateway{
		url:           u.String(),
		participantID: participantID,
		dialer:        websocket.DefaultDialer,
		initialDelay:  500 * time.Millisecond,
		log:           zerolog.Nop(),
		handlers:      make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// On registers fn for eventType. Handlers run on the read goroutine.
func (g *Gateway) On(eventType string, fn Handler) {
	g.handlersMu.Lock()
	defer g.handlersMu.Unlock()
	g.handlers[eventType] = append(g.handlers[eventType], fn)
}

// Connect dials and completes setup, retrying up to five times.
func (g *Gateway) Connect(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.initialDelay

	var conn *websocket.Conn
	op := func() error {
		g.mu.Lock()
		closed := g.closed
		g.mu.Unlock()
		if closed {
			return backoff.Permanent(ErrGatewayClosed)
		}

		c, err := g.dialAndSetup(ctx)
		if err != nil {
			g.log.Debug().Err(err).Msg("gateway connect attempt failed")
			return err
		}
		conn = c
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxReconnectAttempts), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		conn.Close()
		return ErrGatewayClosed
	}
	g.conn = conn
	g.mu.Unlock()

	go g.readLoop(conn)
	return nil
}

func (g *Gateway) dialAndSetup(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := g.dialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return nil, err
	}

	setup := map[string]interface{}{
		"type":    EventSetup,
		"payload": map[string]string{"participantId": g.participantID},
	}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, err
	}

	// frames queued before setup_complete (e.g. presence broadcasts) are skipped
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			conn.Close()
			return nil, err
		}
		switch evt.Type {
		case EventSetupComplete:
			conn.SetReadDeadline(time.Time{})
			return conn, nil
		case EventError:
			conn.Close()
			return nil, backoff.Permanent(fmt.Errorf("setup rejected: %s", evt.Payload))
		}
	}
}

func (g *Gateway) readLoop(conn *websocket.Conn) {
	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			g.mu.Lock()
			closed := g.closed
			g.mu.Unlock()
			if closed {
				return
			}
			if websocket.IsCloseError(err, CloseSuperseded) {
				g.log.Info().Msg("gateway connection superseded by a newer one")
				return
			}

			g.log.Warn().Err(err).Msg("gateway connection lost, reconnecting")
			if err := g.Connect(context.Background()); err != nil {
				g.log.Error().Err(err).Msg("gateway reconnect failed")
			}
			return
		}
		g.dispatch(evt)
	}
}

func (g *Gateway) dispatch(evt Event) {
	g.handlersMu.RLock()
	handlers := append([]Handler(nil), g.handlers[evt.Type]...)
	g.handlersMu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}

// Emit writes one client event.
func (g *Gateway) Emit(eventType string, payload interface{}) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return ErrGatewayClosed
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return conn.WriteJSON(map[string]interface{}{"type": eventType, "payload": payload})
}

func (g *Gateway) Typing(receiverID string, isTyping bool) error {
	return g.Emit(EventTyping, map[string]interface{}{"receiverId": receiverID, "isTyping": isTyping})
}

func (g *Gateway) Ping() error {
	return g.Emit(EventPing, struct{}{})
}

// Close stops reconnecting and closes the connection.
func (g *Gateway) Close() error {
	g.mu.Lock()
	g.closed = true
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	if conn == nil {
		return nil
	}
	g.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	g.writeMu.Unlock()
	return conn.Close()
}
