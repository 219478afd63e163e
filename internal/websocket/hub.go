package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/preetsinghmakkar/CampusConnect/internal/events"
	"github.com/preetsinghmakkar/CampusConnect/internal/metrics"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	"github.com/preetsinghmakkar/CampusConnect/internal/presence"
	"github.com/rs/zerolog"
)

// Registry is the presence store: participant id -> connection id.
type Registry interface {
	Register(ctx context.Context, participantID, connID string) (previous string, err error)
	Unregister(ctx context.Context, connID string) (participantID string, removed bool, err error)
	Lookup(ctx context.Context, participantID string) (connID string, ok bool, err error)
	Refresh(ctx context.Context, participantID, connID string) error
}

// Broker forwards frames for connections held by other instances.
type Broker interface {
	Publish(ctx context.Context, env presence.Envelope) error
}

// Client represents a WebSocket client
type Client struct {
	ID     string
	UserID string // from the access token
	Conn   *websocket.Conn
	Send   chan []byte
	Done   chan struct{}

	setUp     atomic.Bool
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, userID string, buffer int) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, buffer),
		Done:   make(chan struct{}),
	}
}

// CloseSuperseded is sent to a connection replaced by a newer one for the
// same participant. Clients should not reconnect on it.
const CloseSuperseded = 4000

// Close stops the write pump and closes the socket. Safe to call repeatedly.
func (c *Client) Close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *Client) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.Done)
		if c.Conn != nil {
			msg := websocket.FormatCloseMessage(code, reason)
			_ = c.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			c.Conn.Close()
		}
	})
}

// IsConnected checks if client is still connected
func (c *Client) IsConnected() bool {
	select {
	case <-c.Done:
		return false
	default:
		return true
	}
}

func (c *Client) IsSetUp() bool { return c.setUp.Load() }

// enqueue never blocks: a full buffer drops the frame.
func (c *Client) enqueue(frame []byte) bool {
	if !c.IsConnected() {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// Hub owns the connections held by this process and routes frames to them
// through the presence registry.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client // key: connection id
	registry   Registry
	broker     Broker
	instanceID string
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

type HubOption func(*Hub)

// WithBroker enables cross-instance relay.
func WithBroker(b Broker) HubOption {
	return func(h *Hub) { h.broker = b }
}

func NewHub(registry Registry, m *metrics.Metrics, log zerolog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		registry:   registry,
		instanceID: uuid.NewString(),
		metrics:    m,
		log:        log.With().Str("component", "hub").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) InstanceID() string { return h.instanceID }

// Attach makes a freshly upgraded connection addressable by id. It is not
// reachable by participant until Setup.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.metrics.ActiveConnections.Inc()
}

// Setup records presence for the client. A previous connection for the same
// participant is closed, through the broker when another instance holds it.
func (h *Hub) Setup(ctx context.Context, c *Client, participantID string) error {
	if participantID != c.UserID {
		return ErrParticipantMismatch
	}

	previous, err := h.registry.Register(ctx, participantID, c.ID)
	if err != nil {
		return err
	}
	c.setUp.Store(true)

	if previous != "" && previous != c.ID {
		h.supersede(ctx, participantID, previous)
	}

	h.broadcastStatus(participantID, "online")
	return nil
}

func (h *Hub) supersede(ctx context.Context, participantID, connID string) {
	if old := h.client(connID); old != nil {
		h.log.Info().
			Str("participant_id", participantID).
			Str("conn_id", connID).
			Msg("closing superseded connection")
		old.closeWith(CloseSuperseded, "superseded")
		return
	}
	if h.broker == nil {
		return
	}
	err := h.broker.Publish(ctx, presence.Envelope{Origin: h.instanceID, ConnID: connID, Supersede: true})
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", connID).Msg("broker publish of supersede failed")
	}
}

// Detach removes the client. Presence is only cleared when the registry
// still points at this connection.
func (h *Hub) Detach(ctx context.Context, c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()
	if ok {
		h.metrics.ActiveConnections.Dec()
	}
	c.Close()

	participantID, removed, err := h.registry.Unregister(ctx, c.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("unregister presence failed")
		return
	}
	if removed {
		h.broadcastStatus(participantID, "offline")
	}
}

// Heartbeat extends the presence entry of a set-up client.
func (h *Hub) Heartbeat(ctx context.Context, c *Client) {
	if !c.IsSetUp() {
		return
	}
	if err := h.registry.Refresh(ctx, c.UserID, c.ID); err != nil {
		h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("presence refresh failed")
	}
}

func (h *Hub) client(connID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connID]
}

// Relay delivers a frame to the receiver's active connection, at most once.
// It reports whether the frame was handed off. Offline receivers are not an
// error.
func (h *Hub) Relay(ctx context.Context, receiverID, eventType string, payload interface{}) bool {
	frame, err := Encode(eventType, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", eventType).Msg("encode relay frame")
		return false
	}

	connID, ok, err := h.registry.Lookup(ctx, receiverID)
	if err != nil {
		h.log.Warn().Err(err).Str("receiver_id", receiverID).Msg("presence lookup failed")
		h.metrics.RelayDropped.Inc()
		return false
	}
	if !ok {
		h.metrics.RelayDropped.Inc()
		return false
	}

	if c := h.client(connID); c != nil {
		return h.deliver(c, frame)
	}

	if h.broker == nil {
		h.metrics.RelayDropped.Inc()
		return false
	}
	err = h.broker.Publish(ctx, presence.Envelope{Origin: h.instanceID, ConnID: connID, Event: frame})
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", connID).Msg("broker publish failed")
		h.metrics.RelayDropped.Inc()
		return false
	}
	return true
}

// DeliverEnvelope handles frames published by other instances.
func (h *Hub) DeliverEnvelope(env presence.Envelope) {
	if env.Origin == h.instanceID {
		return
	}
	c := h.client(env.ConnID)
	if c == nil {
		return
	}
	if env.Supersede {
		h.log.Info().
			Str("conn_id", c.ID).
			Str("origin", env.Origin).
			Msg("closing connection superseded on another instance")
		c.closeWith(CloseSuperseded, "superseded")
		return
	}
	h.deliver(c, env.Event)
}

func (h *Hub) deliver(c *Client, frame []byte) bool {
	if c.enqueue(frame) {
		h.metrics.RelayDelivered.Inc()
		return true
	}
	h.metrics.RelayDropped.Inc()
	return false
}

// SendTo writes a frame to one local client, bypassing presence.
func (h *Hub) SendTo(c *Client, eventType string, payload interface{}) {
	frame, err := Encode(eventType, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", eventType).Msg("encode frame")
		return
	}
	c.enqueue(frame)
}

func (h *Hub) broadcastStatus(participantID, status string) {
	frame, err := Encode(EventUserStatusUpdate, UserStatusPayload{UserID: participantID, Status: status})
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.IsSetUp() && c.UserID != participantID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(frame)
	}
}

// Typing forwards a typing indicator to the receiver.
func (h *Hub) Typing(ctx context.Context, senderID string, p TypingPayload) {
	h.Relay(ctx, p.ReceiverID, EventUserTyping, UserTypingPayload{SenderID: senderID, IsTyping: p.IsTyping})
}

// RelayMessage pushes a persisted message to its receiver.
func (h *Hub) RelayMessage(ctx context.Context, message *models.Message) bool {
	return h.Relay(ctx, message.ReceiverID, EventReceiveMessage, message)
}

// Publish implements events.Publisher: both participants get session-updated.
func (h *Hub) Publish(ctx context.Context, event events.SessionEvent) error {
	payload := SessionUpdatedPayload{Event: event.Type, Session: event.Session}
	h.Relay(ctx, event.Session.StudentID, EventSessionUpdated, payload)
	h.Relay(ctx, event.Session.MentorID, EventSessionUpdated, payload)
	return nil
}

// Close disconnects every local client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
