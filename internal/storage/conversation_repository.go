package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"matri-go/internal/models"
)

// ConversationRepository defines the interface for conversation data
// operations. Callers must pass user pairs through models.OrderedPair; the
// repository stores and looks up by the canonical (user1, user2) order.
type ConversationRepository interface {
	// GetOrCreate returns the conversation for the canonical pair, creating
	// it if absent. The boolean reports whether a new row was created. Safe
	// under concurrent first-contact: a duplicate-key conflict on the pair
	// index is resolved by re-reading the winner's row.
	GetOrCreate(ctx context.Context, user1ID, user2ID string) (*models.Conversation, bool, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	// ListForUser returns conversations containing the user ordered by most
	// recent activity.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Conversation, error)
	// Touch bumps updated_at so the conversation surfaces at the top of the
	// inbox after new activity.
	Touch(ctx context.Context, id string) error
}

type gormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based ConversationRepository.
func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepository{db: db}
}

func (r *gormConversationRepository) GetOrCreate(ctx context.Context, user1ID, user2ID string) (*models.Conversation, bool, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		First(&conversation).Error
	if err == nil {
		return &conversation, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := models.Conversation{User1ID: user1ID, User2ID: user2ID}
	err = r.db.WithContext(ctx).Create(&created).Error
	if err == nil {
		return &created, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	// Lost the first-contact race: the other side inserted between our
	// lookup and insert. Re-read the winning row.
	err = r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		First(&conversation).Error
	if err != nil {
		return nil, false, err
	}
	return &conversation, false, nil
}

func (r *gormConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *gormConversationRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Conversation, error) {
	var conversations []models.Conversation
	query := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&conversations).Error
	return conversations, err
}

func (r *gormConversationRepository) Touch(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}
