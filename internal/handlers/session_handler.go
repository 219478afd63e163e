package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/middlewares"
	"github.com/preetsinghmakkar/CampusConnect/internal/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// RequestSession POST /sessions/request
func (h *SessionHandler) RequestSession(c *gin.Context) {
	var req dtos.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.sessionService.RequestSession(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetStudentSessions GET /sessions/student/:studentId
func (h *SessionHandler) GetStudentSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.SessionsResponse{Sessions: sessions})
}

// GetMentorSessions GET /sessions/mentor/:mentorId
func (h *SessionHandler) GetMentorSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListByMentor(c.Request.Context(), c.Param("mentorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.SessionsResponse{Sessions: sessions})
}

// GetDeclinedSessions GET /sessions/declined
func (h *SessionHandler) GetDeclinedSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListDeclined(c.Request.Context(), middlewares.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.SessionsResponse{Sessions: sessions})
}

// AcceptSession POST /sessions/accept/:sessionId
func (h *SessionHandler) AcceptSession(c *gin.Context) {
	session, err := h.sessionService.AcceptSession(c.Request.Context(), middlewares.UserID(c), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeclineSession POST /sessions/decline/:sessionId
func (h *SessionHandler) DeclineSession(c *gin.Context) {
	session, err := h.sessionService.DeclineSession(c.Request.Context(), middlewares.UserID(c), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.DeclineSessionResponse{Message: "session declined", SessionID: session.ID})
}

// ConfirmPayment POST /sessions/payment/:sessionId
// The body is optional and only carries an external payment reference.
func (h *SessionHandler) ConfirmPayment(c *gin.Context) {
	var req dtos.ConfirmPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	session, err := h.sessionService.ConfirmPayment(c.Request.Context(), middlewares.UserID(c), c.Param("sessionId"), req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// JoinSession POST /sessions/join/:sessionId
func (h *SessionHandler) JoinSession(c *gin.Context) {
	session, err := h.sessionService.JoinSession(c.Request.Context(), middlewares.UserID(c), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CompleteSession POST /sessions/complete/:sessionId
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	var req dtos.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.sessionService.CompleteSession(c.Request.Context(), middlewares.UserID(c), c.Param("sessionId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetSession POST /sessions/me
func (h *SessionHandler) GetSession(c *gin.Context) {
	var req dtos.GetSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.SessionResponse{Session: session})
}
