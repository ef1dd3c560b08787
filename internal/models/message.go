package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one entry in a conversation's append-only ledger. Sender and
// receiver are exactly the two participants of the conversation. ReadAt is
// null until the receiver views the message and is never unset afterwards.
type Message struct {
	BaseModel
	ConversationID string     `gorm:"type:uuid;not null;index" json:"conversationId"`
	SenderID       string     `gorm:"type:uuid;not null;index" json:"senderId"`
	ReceiverID     string     `gorm:"type:uuid;not null;index" json:"receiverId"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	ReadAt         *time.Time `json:"readAt"`
}

// BeforeCreate assigns a time-ordered (version 7) UUID. Ledger reads sort
// on (created_at, id), so the id must break ties between messages sharing
// a created_at timestamp in insertion order.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id.String()
	}
	return nil
}

// TableName specifies the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// MessagePreview is the trimmed view of the latest message shown in the
// conversation list.
type MessagePreview struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	SenderID  string     `json:"senderId"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}
