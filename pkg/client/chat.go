package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ChatController holds the open conversation between self and peer. It
// fetches history once and then appends pushed messages without refetching.
type ChatController struct {
	api  *API
	self string
	peer string

	mu       sync.Mutex
	messages []Message
	seen     map[string]struct{}
	onChange func([]Message)
}

func NewChatController(api *API, gateway *Gateway, self, peer string) *ChatController {
	c := &ChatController{
		api:  api,
		self: self,
		peer: peer,
		seen: make(map[string]struct{}),
	}
	if gateway != nil {
		gateway.On(EventReceiveMessage, c.handlePush)
	}
	return c
}

// OnChange is called with a snapshot after every change.
func (c *ChatController) OnChange(fn func([]Message)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Open loads the conversation history.
func (c *ChatController) Open(ctx context.Context) error {
	history, err := c.api.Conversation(ctx, c.self, c.peer)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	c.mu.Lock()
	c.messages = c.messages[:0]
	c.seen = make(map[string]struct{}, len(history))
	for _, m := range history {
		c.appendLocked(m)
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *ChatController) handlePush(evt Event) {
	var m Message
	if err := json.Unmarshal(evt.Payload, &m); err != nil {
		return
	}
	if m.SenderID != c.peer || m.ReceiverID != c.self {
		return
	}

	c.mu.Lock()
	added := c.appendLocked(m)
	c.mu.Unlock()
	if added {
		c.notify()
	}
}

// Send stores a text message. The local view is updated whether or not the
// peer is online.
func (c *ChatController) Send(ctx context.Context, text string) (*Message, error) {
	m, err := c.api.SendMessage(ctx, SendMessageRequest{SenderID: c.self, ReceiverID: c.peer, Text: &text})
	if err != nil {
		return nil, err
	}
	c.add(*m)
	return m, nil
}

// SendImage stores an image message pointing at an uploaded asset.
func (c *ChatController) SendImage(ctx context.Context, imageURL string) (*Message, error) {
	m, err := c.api.SendMessage(ctx, SendMessageRequest{SenderID: c.self, ReceiverID: c.peer, Image: &imageURL})
	if err != nil {
		return nil, err
	}
	c.add(*m)
	return m, nil
}

// StartVideoCall sends a call invite and returns it so the caller can open
// the call view for its room.
func (c *ChatController) StartVideoCall(ctx context.Context) (*CallInvite, error) {
	invite, err := c.api.SendCallInvite(ctx, c.self, c.peer)
	if err != nil {
		return nil, err
	}
	if invite.Message != nil {
		c.add(*invite.Message)
	}
	return invite, nil
}

func (c *ChatController) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

func (c *ChatController) add(m Message) {
	c.mu.Lock()
	added := c.appendLocked(m)
	c.mu.Unlock()
	if added {
		c.notify()
	}
}

func (c *ChatController) appendLocked(m Message) bool {
	if _, dup := c.seen[m.ID]; dup {
		return false
	}
	c.seen[m.ID] = struct{}{}
	c.messages = append(c.messages, m)
	return true
}

func (c *ChatController) notify() {
	c.mu.Lock()
	fn := c.onChange
	snapshot := append([]Message(nil), c.messages...)
	c.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}
