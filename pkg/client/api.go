package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// API is a typed client for the REST surface.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *API) RequestSession(ctx context.Context, req SessionRequest) (*Session, error) {
	var s Session
	if err := a.do(ctx, http.MethodPost, "/api/sessions/request", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *API) StudentSessions(ctx context.Context, studentID string) ([]Session, error) {
	return a.listSessions(ctx, "/api/sessions/student/"+url.PathEscape(studentID))
}

func (a *API) MentorSessions(ctx context.Context, mentorID string) ([]Session, error) {
	return a.listSessions(ctx, "/api/sessions/mentor/"+url.PathEscape(mentorID))
}

func (a *API) DeclinedSessions(ctx context.Context) ([]Session, error) {
	return a.listSessions(ctx, "/api/sessions/declined")
}

func (a *API) listSessions(ctx context.Context, path string) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (a *API) transition(ctx context.Context, action, sessionID string, body interface{}) (*Session, error) {
	var s Session
	if err := a.do(ctx, http.MethodPost, "/api/sessions/"+action+"/"+url.PathEscape(sessionID), body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *API) AcceptSession(ctx context.Context, sessionID string) (*Session, error) {
	return a.transition(ctx, "accept", sessionID, nil)
}

func (a *API) DeclineSession(ctx context.Context, sessionID string) error {
	return a.do(ctx, http.MethodPost, "/api/sessions/decline/"+url.PathEscape(sessionID), nil, nil)
}

func (a *API) ConfirmPayment(ctx context.Context, sessionID string) (*Session, error) {
	return a.transition(ctx, "payment", sessionID, nil)
}

func (a *API) JoinSession(ctx context.Context, sessionID string) (*Session, error) {
	return a.transition(ctx, "join", sessionID, nil)
}

func (a *API) CompleteSession(ctx context.Context, sessionID string, rating int, feedback string) (*Session, error) {
	body := map[string]interface{}{"rating": rating, "feedback": feedback}
	return a.transition(ctx, "complete", sessionID, body)
}

func (a *API) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var out struct {
		Session *Session `json:"session"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/sessions/me", map[string]string{"sessionId": sessionID}, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (a *API) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var m Message
	if err := a.do(ctx, http.MethodPost, "/api/messages/sendMessage", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (a *API) Conversation(ctx context.Context, participantA, participantB string) ([]Message, error) {
	q := url.Values{}
	q.Set("senderId", participantA)
	q.Set("mentorId", participantB)

	var out []Message
	if err := a.do(ctx, http.MethodGet, "/api/messages/getMessage?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) SendCallInvite(ctx context.Context, senderID, receiverID string) (*CallInvite, error) {
	var out CallInvite
	body := map[string]string{"senderId": senderID, "receiverId": receiverID}
	if err := a.do(ctx, http.MethodPost, "/api/messages/callInvite", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CreatePaymentOrder(ctx context.Context, sessionID string) (*PaymentOrder, error) {
	var out PaymentOrder
	if err := a.do(ctx, http.MethodPost, "/api/payments/order", map[string]string{"sessionId": sessionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*Session, error) {
	var s Session
	if err := a.do(ctx, http.MethodPost, "/api/payments/verify", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
