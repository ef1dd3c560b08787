package services

import (
	"context"
	"fmt"

	"matri-go/internal/models"
)

// Denial reasons surfaced to the client when a send is blocked.
const (
	ReasonNoConnection       = "Send a connection request first to message this user."
	ReasonConnectionRejected = "Connection was rejected. You cannot message this user."
	ReasonAcceptTheirs       = "Accept their connection request first to start messaging."
	ReasonOneMessageLimit    = "You can send only one message until they accept your connection request."
)

// PolicyDeniedError signals that messaging is blocked by connection-state
// rules. The reason is human-readable and specific.
type PolicyDeniedError struct {
	Reason string
}

func (e *PolicyDeniedError) Error() string {
	return e.Reason
}

// ConnectionStatusResolver supplies the connection state between two users.
// Satisfied by ConnectionService.
type ConnectionStatusResolver interface {
	Status(ctx context.Context, userID, otherUserID string) (models.PairStatus, *models.ConnectionRequest, error)
}

// SenderMessageCounter counts prior messages from a sender in a
// conversation. Satisfied by storage.MessageRepository.
type SenderMessageCounter interface {
	CountBySender(ctx context.Context, conversationID, senderID string) (int64, error)
}

// MessagingPolicy is the authorization state machine gating message sends:
// mutual consent is required for open messaging, with a single icebreaker
// message allowed while the sender's own request is still pending.
type MessagingPolicy interface {
	// CanSend returns nil when the send is permitted and a
	// *PolicyDeniedError with the specific reason when it is not.
	CanSend(ctx context.Context, senderID, receiverID, conversationID string) error
}

type messagingPolicy struct {
	connections ConnectionStatusResolver
	messages    SenderMessageCounter
}

// NewMessagingPolicy creates a new MessagingPolicy instance.
func NewMessagingPolicy(connections ConnectionStatusResolver, messages SenderMessageCounter) MessagingPolicy {
	return &messagingPolicy{connections: connections, messages: messages}
}

func (p *messagingPolicy) CanSend(ctx context.Context, senderID, receiverID, conversationID string) error {
	status, _, err := p.connections.Status(ctx, senderID, receiverID)
	if err != nil {
		return fmt.Errorf("resolving connection status: %w", err)
	}

	switch status {
	case models.PairStatusAccepted:
		return nil
	case models.PairStatusNone:
		return &PolicyDeniedError{Reason: ReasonNoConnection}
	case models.PairStatusRejected:
		return &PolicyDeniedError{Reason: ReasonConnectionRejected}
	case models.PairStatusPendingReceived:
		return &PolicyDeniedError{Reason: ReasonAcceptTheirs}
	case models.PairStatusPendingSent:
		// The requester may introduce themselves once while waiting. The
		// count is scoped to this sender, so a reply from the other side
		// after acceptance never consumes the quota.
		count, err := p.messages.CountBySender(ctx, conversationID, senderID)
		if err != nil {
			return fmt.Errorf("counting sender messages: %w", err)
		}
		if count >= 1 {
			return &PolicyDeniedError{Reason: ReasonOneMessageLimit}
		}
		return nil
	default:
		return fmt.Errorf("unknown connection status %q", status)
	}
}
