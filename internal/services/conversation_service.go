package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"matri-go/internal/models"
	"matri-go/internal/storage"
)

var (
	ErrConversationSelf     = errors.New("cannot create a conversation with yourself")
	ErrConversationNotFound = errors.New("conversation not found")
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ConversationDetail is the enriched result of resolving a conversation for
// one of its participants.
type ConversationDetail struct {
	Conversation     *models.Conversation  `json:"conversation"`
	OtherUser        *models.UserBasicInfo `json:"otherUser"`
	ConnectionStatus models.PairStatus     `json:"connectionStatus"`
}

// ConversationService maintains the stable 1:1 mapping from an unordered
// user pair to a conversation.
type ConversationService interface {
	// GetOrCreate resolves the conversation for the pair, creating it
	// lazily, and enriches it with the counterpart and connection state.
	GetOrCreate(ctx context.Context, userID, otherUserID string) (*ConversationDetail, error)
	// ListForUser returns the user's inbox: conversations by most recent
	// activity with counterpart, connection status and last-message preview.
	ListForUser(ctx context.Context, userID string, page, limit int) ([]models.ConversationSummary, error)
}

type conversationService struct {
	convoRepo   storage.ConversationRepository
	msgRepo     storage.MessageRepository
	userRepo    storage.UserRepository
	connections ConnectionStatusResolver
}

// NewConversationService creates a new ConversationService instance.
func NewConversationService(convoRepo storage.ConversationRepository, msgRepo storage.MessageRepository, userRepo storage.UserRepository, connections ConnectionStatusResolver) ConversationService {
	return &conversationService{
		convoRepo:   convoRepo,
		msgRepo:     msgRepo,
		userRepo:    userRepo,
		connections: connections,
	}
}

func (s *conversationService) GetOrCreate(ctx context.Context, userID, otherUserID string) (*ConversationDetail, error) {
	if userID == otherUserID {
		return nil, ErrConversationSelf
	}

	user1ID, user2ID := models.OrderedPair(userID, otherUserID)
	conversation, _, err := s.convoRepo.GetOrCreate(ctx, user1ID, user2ID)
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	other, err := s.userRepo.GetBasicInfoByID(ctx, otherUserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("fetching counterpart %s: %w", otherUserID, err)
	}

	status, _, err := s.connections.Status(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}

	return &ConversationDetail{
		Conversation:     conversation,
		OtherUser:        other,
		ConnectionStatus: status,
	}, nil
}

func (s *conversationService) ListForUser(ctx context.Context, userID string, page, limit int) ([]models.ConversationSummary, error) {
	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit

	conversations, err := s.convoRepo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing conversations for user %s: %w", userID, err)
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		otherID := conv.OtherParticipant(userID)

		status, _, err := s.connections.Status(ctx, userID, otherID)
		if err != nil {
			return nil, err
		}

		other, err := s.userRepo.GetBasicInfoByID(ctx, otherID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error fetching counterpart %s for conversation %s: %v", otherID, conv.ID, err)
		}

		var preview *models.MessagePreview
		last, err := s.msgRepo.GetLastMessage(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching last message for conversation %s: %w", conv.ID, err)
		}
		if last != nil {
			preview = &models.MessagePreview{
				ID:        last.ID,
				Content:   last.Content,
				SenderID:  last.SenderID,
				CreatedAt: last.CreatedAt,
				ReadAt:    last.ReadAt,
			}
		}

		summaries = append(summaries, models.ConversationSummary{
			ID:               conv.ID,
			ConnectionStatus: status,
			OtherUser:        other,
			LastMessage:      preview,
			UpdatedAt:        conv.UpdatedAt,
		})
	}
	return summaries, nil
}

// clampPage normalizes pagination input: page >= 1, limit in [1, maxPageLimit]
// with a default when unset.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
