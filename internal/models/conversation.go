package models

import "time"

// Conversation is the unique message thread container for a pair of users.
// User1ID and User2ID are stored in canonical order (see OrderedPair) and a
// unique index on the pair guarantees a single row under concurrent
// first-contact; the loser of the insert race re-reads the winner's row.
// Conversations are created lazily and never deleted; UpdatedAt tracks the
// most recent activity and drives inbox ordering.
type Conversation struct {
	BaseModel
	User1ID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_conversation_pair" json:"user1Id"`
	User2ID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_conversation_pair" json:"user2Id"`
}

// TableName specifies the table name for the Conversation model.
func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the counterpart of userID in the conversation.
// The caller is expected to have checked HasParticipant first.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// ConversationSummary is the inbox view of a conversation: the counterpart,
// the connection state with them, and a preview of the latest message.
type ConversationSummary struct {
	ID               string          `json:"id"`
	ConnectionStatus PairStatus      `json:"connectionStatus"`
	OtherUser        *UserBasicInfo  `json:"otherUser"`
	LastMessage      *MessagePreview `json:"lastMessage"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
