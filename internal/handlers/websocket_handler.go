package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/preetsinghmakkar/CampusConnect/internal/config"
	"github.com/preetsinghmakkar/CampusConnect/internal/middlewares"
	ws "github.com/preetsinghmakkar/CampusConnect/internal/websocket"
	"github.com/rs/zerolog"
)

const (
	maxFrameSize   = 64 * 1024
	handlerTimeout = 5 * time.Second
)

type WebSocketHandler struct {
	hub      *ws.Hub
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWebSocketHandler(
	hub *ws.Hub,
	cfg config.WebSocketConfig,
	httpCfg config.HTTPConfig,
	log zerolog.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || httpCfg.AllowsAnyOrigin() || slices.Contains(httpCfg.AllowedOrigins, origin)
			},
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// HandleWebSocket is the WebSocket endpoint handler
// MUST be protected by WebSocketAuthMiddleware
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	auth, err := middlewares.GetWebSocketAuth(c)
	if err != nil {
		h.log.Error().Err(err).Msg("missing websocket auth context")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.log.Warn().Err(err).Str("user_id", auth.UserID).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(conn, auth.UserID, h.cfg.SendBuffer)
	h.hub.Attach(client)

	h.log.Debug().Str("user_id", auth.UserID).Str("conn_id", client.ID).Msg("websocket connected")

	go h.writePump(client)
	go h.readPump(client)
}

// readPump reads frames until the connection fails, then detaches the client.
func (h *WebSocketHandler) readPump(client *ws.Client) {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		h.hub.Detach(ctx, client)
		cancel()
		h.log.Debug().Str("user_id", client.UserID).Str("conn_id", client.ID).Msg("websocket disconnected")
	}()

	client.Conn.SetReadLimit(maxFrameSize)
	client.Conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		h.hub.Heartbeat(ctx, client)
		cancel()
		return nil
	})

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("unexpected close")
			}
			return
		}

		msg, err := ws.Decode(data)
		if err != nil {
			h.sendError(client, err.Error())
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		h.dispatch(ctx, client, msg)
		cancel()
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, client *ws.Client, msg ws.WebSocketMessage) {
	switch msg.Type {
	case ws.EventSetup:
		h.handleSetup(ctx, client, msg.Payload)

	case ws.EventSendMessage:
		h.handleSendMessage(ctx, client, msg.Payload)

	case ws.EventTyping:
		if !client.IsSetUp() {
			h.sendError(client, ws.ErrNotSetUp.Error())
			return
		}
		var p ws.TypingPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.ReceiverID == "" {
			h.sendError(client, "invalid typing payload")
			return
		}
		h.hub.Typing(ctx, client.UserID, p)

	case ws.EventPing:
		h.hub.Heartbeat(ctx, client)
		h.hub.SendTo(client, ws.EventPong, struct{}{})

	default:
		h.sendError(client, "unknown event type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleSetup(ctx context.Context, client *ws.Client, payload json.RawMessage) {
	var p ws.SetupPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ParticipantID == "" {
		h.sendError(client, "setup requires participantId")
		return
	}

	if err := h.hub.Setup(ctx, client, p.ParticipantID); err != nil {
		h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("setup failed")
		h.sendError(client, err.Error())
		return
	}

	h.hub.SendTo(client, ws.EventSetupComplete, ws.SetupCompletePayload{
		Status:       "ok",
		ConnectionID: client.ID,
	})
}

// handleSendMessage relays a message the client has already persisted. It
// never writes to the store: the REST send is the only persistence path.
func (h *WebSocketHandler) handleSendMessage(ctx context.Context, client *ws.Client, payload json.RawMessage) {
	if !client.IsSetUp() {
		h.sendError(client, ws.ErrNotSetUp.Error())
		return
	}

	var p ws.SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ReceiverID == "" {
		h.sendError(client, "invalid send_message payload")
		return
	}
	if p.SenderID != "" && p.SenderID != client.UserID {
		h.sendError(client, ws.ErrSenderMismatch.Error())
		return
	}
	p.SenderID = client.UserID

	delivered := h.hub.Relay(ctx, p.ReceiverID, ws.EventReceiveMessage, p)
	h.log.Debug().
		Str("message_id", p.ID).
		Str("receiver_id", p.ReceiverID).
		Bool("delivered", delivered).
		Msg("message relayed")
}

func (h *WebSocketHandler) sendError(client *ws.Client, message string) {
	h.hub.SendTo(client, ws.EventError, ws.ErrorPayload{Message: message})
}

// writePump is the only writer on the connection.
func (h *WebSocketHandler) writePump(client *ws.Client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case frame := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := client.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("write failed")
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done:
			return
		}
	}
}
