package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/app"
	"github.com/preetsinghmakkar/CampusConnect/internal/config"
	"github.com/preetsinghmakkar/CampusConnect/internal/logger"
	"github.com/preetsinghmakkar/CampusConnect/internal/utils"
	"github.com/preetsinghmakkar/CampusConnect/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "client-test-secret"

type testEnv struct {
	url string
	app *app.App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	cfg.HTTP.AllowedOrigins = []string{"*"}
	cfg.Session.CallBaseURL = "https://campus.test/call/"

	a := app.New(app.Deps{Config: cfg, Log: logger.Nop()})
	srv := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		a.Hub.Close()
		srv.Close()
	})
	return &testEnv{url: srv.URL, app: a}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(userID, "", testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) api(t *testing.T, userID string) *client.API {
	return client.NewAPI(e.url, e.token(t, userID))
}

func (e *testEnv) gateway(t *testing.T, userID, participantID string) *client.Gateway {
	t.Helper()
	g, err := client.NewGateway(e.url, e.token(t, userID), participantID, client.WithInitialBackoff(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func request(student, mentor string) client.SessionRequest {
	return client.SessionRequest{
		StudentID:   student,
		MentorID:    mentor,
		StudentName: "Student " + student,
		MentorName:  "Mentor " + mentor,
	}
}

func TestEndToEnd_RequestAcceptPayAndChat(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	student := e.api(t, "S1")
	mentor := e.api(t, "M1")

	s, err := student.RequestSession(ctx, request("S1", "M1"))
	require.NoError(t, err)
	assert.Equal(t, client.StatusRequested, s.Status)
	assert.False(t, s.IsPaymentDone)
	assert.Equal(t, "chat", s.SessionType)

	accepted, err := mentor.AcceptSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, client.StatusAccepted, accepted.Status)

	paid, err := student.ConfirmPayment(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, client.StatusScheduled, paid.Status)
	assert.True(t, paid.IsPaymentDone)

	mentorGW := e.gateway(t, "M1", "M1")
	mentorChat := client.NewChatController(mentor, mentorGW, "M1", "S1")
	require.NoError(t, mentorGW.Connect(ctx))
	require.NoError(t, mentorChat.Open(ctx))
	assert.Empty(t, mentorChat.Messages())

	studentChat := client.NewChatController(student, nil, "S1", "M1")
	sent, err := studentChat.Send(ctx, "hi")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(mentorChat.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := mentorChat.Messages()[0]
	assert.Equal(t, sent.ID, got.ID)
	require.NotNil(t, got.Text)
	assert.Equal(t, "hi", *got.Text)

	history, err := mentor.Conversation(ctx, "M1", "S1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)

	invite, err := studentChat.StartVideoCall(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, invite.RoomID)
	assert.Equal(t, "https://campus.test/call/"+invite.RoomID, invite.CallURL)

	require.Eventually(t, func() bool {
		return len(mentorChat.Messages()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "call-invite", mentorChat.Messages()[1].Type)
	assert.Len(t, studentChat.Messages(), 2)
}

func TestEndToEnd_DuplicateRequestConflicts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	student := e.api(t, "S2")

	_, err := student.RequestSession(ctx, request("S2", "M2"))
	require.NoError(t, err)

	_, err = student.RequestSession(ctx, request("S2", "M2"))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, client.StatusCode(err))

	list, err := student.StudentSessions(ctx, "S2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEndToEnd_DeclineHidesSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	student := e.api(t, "S3")
	mentor := e.api(t, "M3")

	s, err := student.RequestSession(ctx, request("S3", "M3"))
	require.NoError(t, err)

	// only the mentor may decline
	err = student.DeclineSession(ctx, s.ID)
	assert.Equal(t, http.StatusForbidden, client.StatusCode(err))

	require.NoError(t, mentor.DeclineSession(ctx, s.ID))

	_, err = student.GetSession(ctx, s.ID)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))

	list, err := student.StudentSessions(ctx, "S3")
	require.NoError(t, err)
	assert.Empty(t, list)

	declined, err := mentor.DeclinedSessions(ctx)
	require.NoError(t, err)
	require.Len(t, declined, 1)
	assert.Equal(t, s.ID, declined[0].ID)

	_, err = mentor.AcceptSession(ctx, s.ID)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))

	// the pair is free to try again
	_, err = student.RequestSession(ctx, request("S3", "M3"))
	require.NoError(t, err)
}

func TestEndToEnd_JoinAndComplete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	student := e.api(t, "S5")
	mentor := e.api(t, "M5")

	s, err := student.RequestSession(ctx, request("S5", "M5"))
	require.NoError(t, err)
	_, err = mentor.AcceptSession(ctx, s.ID)
	require.NoError(t, err)
	_, err = student.ConfirmPayment(ctx, s.ID)
	require.NoError(t, err)

	_, err = student.CompleteSession(ctx, s.ID, 5, "great")
	assert.Equal(t, http.StatusConflict, client.StatusCode(err))

	joined, err := mentor.JoinSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, client.StatusInProgress, joined.Status)
	require.NotNil(t, joined.StartTime)

	_, err = student.CompleteSession(ctx, s.ID, 9, "")
	assert.Equal(t, http.StatusBadRequest, client.StatusCode(err))

	done, err := student.CompleteSession(ctx, s.ID, 4, "helpful")
	require.NoError(t, err)
	assert.Equal(t, client.StatusCompleted, done.Status)
	require.NotNil(t, done.Rating)
	assert.Equal(t, 4, *done.Rating)
	assert.Equal(t, "helpful", done.Feedback)
}

func TestSessionWatcher_RefreshesOnPush(t *testing.T) {
	e := newTestEnv(t)
	student := e.api(t, "S4")
	mentor := e.api(t, "M4")

	gw := e.gateway(t, "S4", "S4")
	// an hour-long interval leaves the push as the only refresh trigger
	watcher := client.NewSessionWatcher(student, gw, "S4", client.RoleStudent, time.Hour)
	require.NoError(t, gw.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	s, err := student.RequestSession(ctx, request("S4", "M4"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(watcher.Buckets().Requested) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = mentor.AcceptSession(ctx, s.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		b := watcher.Buckets()
		return len(b.Requested) == 0 && len(b.AwaitingPayment) == 1 && len(b.Accepted) == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, err = student.ConfirmPayment(ctx, s.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		b := watcher.Buckets()
		return len(b.AwaitingPayment) == 0 && len(b.Scheduled) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_NewerConnectionWins(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	var firstGot, secondGot atomic.Int32
	first := e.gateway(t, "P", "P")
	first.On(client.EventReceiveMessage, func(client.Event) { firstGot.Add(1) })
	require.NoError(t, first.Connect(ctx))

	second := e.gateway(t, "P", "P")
	second.On(client.EventReceiveMessage, func(client.Event) { secondGot.Add(1) })
	require.NoError(t, second.Connect(ctx))

	text := "ping"
	_, err := e.api(t, "Q").SendMessage(ctx, client.SendMessageRequest{SenderID: "Q", ReceiverID: "P", Text: &text})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return secondGot.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// the superseded gateway must not reconnect and steal the mapping back
	time.Sleep(100 * time.Millisecond)
	_, err = e.api(t, "Q").SendMessage(ctx, client.SendMessageRequest{SenderID: "Q", ReceiverID: "P", Text: &text})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return secondGot.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, firstGot.Load())
}

func TestGateway_SetupRejectedForForeignParticipant(t *testing.T) {
	e := newTestEnv(t)

	gw := e.gateway(t, "alice", "bob")
	err := gw.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup rejected")
}

func TestAPI_RequiresToken(t *testing.T) {
	e := newTestEnv(t)

	_, err := client.NewAPI(e.url, "").StudentSessions(context.Background(), "S1")
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))
}

func TestBucketize(t *testing.T) {
	sessions := []client.Session{
		{ID: "1", Status: client.StatusRequested},
		{ID: "2", Status: client.StatusAccepted},
		{ID: "3", Status: client.StatusScheduled, IsPaymentDone: true},
		{ID: "4", Status: client.StatusInProgress, IsPaymentDone: true},
		{ID: "5", Status: client.StatusCompleted, IsPaymentDone: true},
		{ID: "6", Status: client.StatusRejected},
	}

	b := client.Bucketize(sessions)
	require.Len(t, b.Requested, 1)
	require.Len(t, b.AwaitingPayment, 1)
	assert.Empty(t, b.Accepted)
	require.Len(t, b.Scheduled, 1)
	require.Len(t, b.InProgress, 1)
	require.Len(t, b.Completed, 1)
	assert.Equal(t, "2", b.AwaitingPayment[0].ID)
	assert.Equal(t, "3", b.Scheduled[0].ID)
}

func TestBucketize_PaymentFlagDisagreesWithStatus(t *testing.T) {
	sessions := []client.Session{
		{ID: "paid-accepted", Status: client.StatusAccepted, IsPaymentDone: true},
		{ID: "unpaid-scheduled", Status: client.StatusScheduled},
	}

	b := client.Bucketize(sessions)
	require.Len(t, b.Accepted, 1)
	assert.Equal(t, "paid-accepted", b.Accepted[0].ID)
	require.Len(t, b.AwaitingPayment, 1)
	assert.Equal(t, "unpaid-scheduled", b.AwaitingPayment[0].ID)
	assert.Empty(t, b.Scheduled)
}
