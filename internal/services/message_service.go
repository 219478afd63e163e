package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/CampusConnect/internal/apperrors"
	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/metrics"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	"github.com/preetsinghmakkar/CampusConnect/internal/repositories"
	"github.com/rs/zerolog"
)

// Relayer pushes a stored message to the receiver's live connection, if any.
type Relayer interface {
	RelayMessage(ctx context.Context, message *models.Message) bool
}

type MessageService struct {
	messages    repositories.MessageRepository
	relayer     Relayer
	metrics     *metrics.Metrics
	log         zerolog.Logger
	callBaseURL string
}

func NewMessageService(
	messages repositories.MessageRepository,
	relayer Relayer,
	m *metrics.Metrics,
	log zerolog.Logger,
	callBaseURL string,
) *MessageService {
	return &MessageService{
		messages:    messages,
		relayer:     relayer,
		metrics:     m,
		log:         log.With().Str("component", "messages").Logger(),
		callBaseURL: strings.TrimRight(callBaseURL, "/"),
	}
}

// Send persists a message and then relays it. The relay outcome never
// affects the result.
func (s *MessageService) Send(ctx context.Context, actor string, req dtos.SendMessageRequest) (*models.Message, error) {
	senderID := strings.TrimSpace(req.SenderID)
	receiverID := strings.TrimSpace(req.ReceiverID)

	if senderID == "" || receiverID == "" {
		return nil, fmt.Errorf("senderId and receiverId are required: %w", apperrors.ErrInvalidArgument)
	}
	if actor != senderID {
		return nil, fmt.Errorf("cannot send as another participant: %w", apperrors.ErrForbidden)
	}

	text := nonEmpty(req.Text)
	image := nonEmpty(req.Image)
	if text == nil && image == nil {
		return nil, fmt.Errorf("message needs text or image: %w", apperrors.ErrInvalidArgument)
	}

	msgType := models.MessageTypeText
	if text == nil {
		msgType = models.MessageTypeImage
	}

	message := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Type:       msgType,
		Text:       text,
		Image:      image,
	}
	return s.store(ctx, message)
}

// SendCallInvite creates a call room and delivers it as a call-invite message.
func (s *MessageService) SendCallInvite(ctx context.Context, actor string, req dtos.CallInviteRequest) (*dtos.CallInviteResponse, error) {
	if req.SenderID == "" || req.ReceiverID == "" {
		return nil, fmt.Errorf("senderId and receiverId are required: %w", apperrors.ErrInvalidArgument)
	}
	if actor != req.SenderID {
		return nil, fmt.Errorf("cannot invite as another participant: %w", apperrors.ErrForbidden)
	}

	roomID := uuid.NewString()
	callURL := s.callBaseURL + "/" + roomID

	message := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Type:       models.MessageTypeCallInvite,
		Text:       &callURL,
		RoomID:     &roomID,
	}
	if _, err := s.store(ctx, message); err != nil {
		return nil, err
	}

	return &dtos.CallInviteResponse{RoomID: roomID, CallURL: callURL, Message: message}, nil
}

func (s *MessageService) store(ctx context.Context, message *models.Message) (*models.Message, error) {
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	s.metrics.MessagesSent.WithLabelValues(string(message.Type)).Inc()

	if s.relayer != nil {
		delivered := s.relayer.RelayMessage(ctx, message)
		s.log.Debug().
			Str("message_id", message.ID).
			Str("receiver_id", message.ReceiverID).
			Bool("delivered", delivered).
			Msg("message relayed")
	}
	return message, nil
}

// GetConversation returns both directions of the pair in creation order.
// Only the two participants may read it.
func (s *MessageService) GetConversation(ctx context.Context, actor, participantA, participantB string) ([]*models.Message, error) {
	if participantA == "" || participantB == "" {
		return nil, fmt.Errorf("both participants are required: %w", apperrors.ErrInvalidArgument)
	}
	if actor != participantA && actor != participantB {
		return nil, fmt.Errorf("not a participant of this conversation: %w", apperrors.ErrForbidden)
	}
	return s.messages.Conversation(ctx, participantA, participantB)
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
