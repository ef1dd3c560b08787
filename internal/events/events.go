// Package events defines the payloads shared between the API server, the
// Kafka bridge, and the chat server's websocket layer.
package events

import "time"

// EventType identifies a realtime or notification event.
type EventType string

const (
	NewMessageEvent   EventType = "new_message"
	TypingEvent       EventType = "typing"
	NotificationEvent EventType = "notification"
)

// MessagePayload is the wire form of a persisted message pushed to the
// receiver's live sessions and carried on the messaging topic.
type MessagePayload struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	ReceiverID     string     `json:"receiverId"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadAt         *time.Time `json:"readAt"`
}

// TypingPayload is broadcast to a conversation room, excluding the typist's
// own session. Never persisted.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// NotificationPayload is handed to the offline notification sink (push,
// email or SMS) when the receiver has no live session.
type NotificationPayload struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Envelope wraps a payload with its type for transport over Kafka and
// websocket frames.
type Envelope struct {
	Type         EventType            `json:"type"`
	Message      *MessagePayload      `json:"message,omitempty"`
	Typing       *TypingPayload       `json:"typing,omitempty"`
	Notification *NotificationPayload `json:"notification,omitempty"`
}
