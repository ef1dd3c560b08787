package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"matri-go/internal/models"
)

// MessageRepository defines the interface for the append-only message
// ledger. Messages are created once and mutated only when marked read.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// GetByConversationID returns one page of messages newest-first along
	// with the total count for the conversation. Callers reverse the page
	// to present chronological order.
	GetByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, int64, error)
	GetLastMessage(ctx context.Context, conversationID string) (*models.Message, error)
	// CountBySender counts messages a specific sender has appended to the
	// conversation. Drives the one-icebreaker rule.
	CountBySender(ctx context.Context, conversationID, senderID string) (int64, error)
	// MarkReadForReceiver stamps read_at on every unread message addressed
	// to receiverID in the conversation. Idempotent: already-read rows are
	// excluded by the read_at IS NULL guard, so only the true recipient's
	// unread rows ever change.
	MarkReadForReceiver(ctx context.Context, conversationID, receiverID string) (int64, error)
}

type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based MessageRepository.
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *gormMessageRepository) GetByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *gormMessageRepository) GetLastMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *gormMessageRepository) CountBySender(ctx context.Context, conversationID, senderID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id = ?", conversationID, senderID).
		Count(&count).Error
	return count, err
}

func (r *gormMessageRepository) MarkReadForReceiver(ctx context.Context, conversationID, receiverID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND read_at IS NULL", conversationID, receiverID).
		Update("read_at", time.Now())
	return result.RowsAffected, result.Error
}
