// Package handlers contains the chat server's Kafka consumer handlers:
// the bridge from durable API-side writes to live websocket sessions and
// the offline notification sink.
package handlers

import (
	"context"
	"encoding/json"
	"log"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"matri-go/internal/events"
	"matri-go/internal/notify"
	"matri-go/internal/realtime"
	ws "matri-go/internal/websocket"
)

// MessagingEventHandler consumes messaging and notification events. New
// messages fan out to the receiver's live sessions via the hub; the
// notification path targets offline users only, since online users already
// got the realtime push.
type MessagingEventHandler struct {
	hub        *ws.Hub
	presence   realtime.PresenceDirectory
	dispatcher *notify.Dispatcher
}

// NewMessagingEventHandler creates a new MessagingEventHandler.
func NewMessagingEventHandler(hub *ws.Hub, presence realtime.PresenceDirectory, dispatcher *notify.Dispatcher) *MessagingEventHandler {
	return &MessagingEventHandler{hub: hub, presence: presence, dispatcher: dispatcher}
}

// Handle processes one consumed Kafka message. Malformed events are logged
// and committed (retrying cannot fix them); delivery itself is best-effort
// and never returns an error that would stall the partition.
func (h *MessagingEventHandler) Handle(ctx context.Context, kafkaMsg *confluentKafka.Message) error {
	var envelope events.Envelope
	if err := json.Unmarshal(kafkaMsg.Value, &envelope); err != nil {
		log.Printf("Error unmarshalling event at offset %v: %v", kafkaMsg.TopicPartition.Offset, err)
		return nil
	}

	switch envelope.Type {
	case events.NewMessageEvent:
		if envelope.Message == nil {
			log.Printf("new_message event without payload at offset %v", kafkaMsg.TopicPartition.Offset)
			return nil
		}
		h.hub.NotifyNewMessage(envelope.Message)

	case events.NotificationEvent:
		if envelope.Notification == nil {
			log.Printf("notification event without payload at offset %v", kafkaMsg.TopicPartition.Offset)
			return nil
		}
		h.handleNotification(ctx, envelope.Notification)

	default:
		log.Printf("Unknown event type %q at offset %v", envelope.Type, kafkaMsg.TopicPartition.Offset)
	}
	return nil
}

func (h *MessagingEventHandler) handleNotification(ctx context.Context, payload *events.NotificationPayload) {
	online, err := h.presence.IsOnline(ctx, payload.UserID)
	if err != nil {
		log.Printf("Error checking presence for user %s: %v", payload.UserID, err)
		online = false
	}
	if online {
		// Live sessions already received the realtime event.
		return
	}
	err = h.dispatcher.NotifyPush(ctx, payload.UserID, notify.Payload{
		Title: payload.Title,
		Body:  payload.Body,
		Data:  payload.Data,
	})
	if err != nil {
		log.Printf("Error dispatching push notification to user %s: %v", payload.UserID, err)
	}
}
