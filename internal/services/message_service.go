package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"matri-go/internal/config"
	"matri-go/internal/events"
	appKafka "matri-go/internal/kafka"
	"matri-go/internal/models"
	"matri-go/internal/storage"
)

var (
	ErrEmptyContent   = errors.New("message content must not be empty")
	ErrNotParticipant = errors.New("not a participant in this conversation")
)

const publishTimeout = 5 * time.Second

// MessagePage is one page of a conversation's ledger in chronological order.
type MessagePage struct {
	Messages []models.Message `json:"messages"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Total    int64            `json:"total"`
}

// MessageService owns the send pipeline and the read side of the message
// ledger. A send resolves the conversation, applies the messaging policy,
// appends durably, and then fans out realtime and notification events on a
// best-effort basis.
type MessageService interface {
	SendMessage(ctx context.Context, senderID, conversationID, content string) (*models.Message, error)
	// ListMessages returns one page in chronological order. When markRead
	// is set, every unread message addressed to readerID in the
	// conversation is marked read as part of the same call.
	ListMessages(ctx context.Context, readerID, conversationID string, page, limit int, markRead bool) (*MessagePage, error)
}

type messageService struct {
	msgRepo   storage.MessageRepository
	convoRepo storage.ConversationRepository
	policy    MessagingPolicy
	producer  appKafka.MessageProducer
	kafkaCfg  config.KafkaConfig
	notifyCfg config.NotifyConfig
}

// NewMessageService creates a new MessageService instance.
func NewMessageService(msgRepo storage.MessageRepository, convoRepo storage.ConversationRepository, policy MessagingPolicy, producer appKafka.MessageProducer, kafkaCfg config.KafkaConfig, notifyCfg config.NotifyConfig) MessageService {
	return &messageService{
		msgRepo:   msgRepo,
		convoRepo: convoRepo,
		policy:    policy,
		producer:  producer,
		kafkaCfg:  kafkaCfg,
		notifyCfg: notifyCfg,
	}
}

func (s *messageService) SendMessage(ctx context.Context, senderID, conversationID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	conversation, err := s.convoRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}
	if !conversation.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	receiverID := conversation.OtherParticipant(senderID)

	if err := s.policy.CanSend(ctx, senderID, receiverID, conversationID); err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
	}
	if err := s.msgRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}
	if err := s.convoRepo.Touch(ctx, conversationID); err != nil {
		log.Printf("Error bumping conversation %s activity: %v", conversationID, err)
	}

	// The message is durable; realtime and push fan-out are best-effort
	// and must not block or fail the response.
	go s.publishEvents(message)

	return message, nil
}

// publishEvents pushes the new-message event to the realtime bridge and the
// offline notification topic. Failures are logged and swallowed.
func (s *messageService) publishEvents(message *models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	payload := &events.MessagePayload{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		ReceiverID:     message.ReceiverID,
		Content:        message.Content,
		CreatedAt:      message.CreatedAt,
		ReadAt:         message.ReadAt,
	}
	envelope, err := json.Marshal(events.Envelope{Type: events.NewMessageEvent, Message: payload})
	if err != nil {
		log.Printf("Error marshalling new-message event for message %s: %v", message.ID, err)
		return
	}
	if err := s.producer.SendMessage(ctx, s.kafkaCfg.MessagingTopic, []byte(message.ReceiverID), envelope); err != nil {
		log.Printf("Error publishing new-message event for message %s: %v", message.ID, err)
	}

	notification := &events.NotificationPayload{
		UserID: message.ReceiverID,
		Title:  "New message",
		Body:   previewContent(message.Content, s.notifyCfg.PreviewLength),
		Data: map[string]string{
			"conversationId": message.ConversationID,
			"messageId":      message.ID,
		},
	}
	notifBytes, err := json.Marshal(events.Envelope{Type: events.NotificationEvent, Notification: notification})
	if err != nil {
		log.Printf("Error marshalling notification event for message %s: %v", message.ID, err)
		return
	}
	if err := s.producer.SendMessage(ctx, s.kafkaCfg.NotificationsTopic, []byte(message.ReceiverID), notifBytes); err != nil {
		log.Printf("Error publishing notification event for message %s: %v", message.ID, err)
	}
}

// previewContent truncates a message body for notification previews.
func previewContent(content string, limit int) string {
	if limit <= 3 || len(content) <= limit {
		return content
	}
	return content[:limit-3] + "..."
}

func (s *messageService) ListMessages(ctx context.Context, readerID, conversationID string, page, limit int, markRead bool) (*MessagePage, error) {
	conversation, err := s.convoRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}
	if !conversation.HasParticipant(readerID) {
		return nil, ErrNotParticipant
	}

	if markRead {
		// Scoped to messages addressed to the reader; a message sent
		// concurrently with this call may land in the next fetch instead.
		if _, err := s.msgRepo.MarkReadForReceiver(ctx, conversationID, readerID); err != nil {
			return nil, fmt.Errorf("marking messages read: %w", err)
		}
	}

	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit
	messages, total, err := s.msgRepo.GetByConversationID(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	// The store paginates newest-first; the caller sees oldest to newest.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &MessagePage{
		Messages: messages,
		Page:     page,
		Limit:    limit,
		Total:    total,
	}, nil
}
