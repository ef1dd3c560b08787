package services

import (
	"context"
	"errors"
	"testing"

	"matri-go/internal/models"
)

type stubStatusResolver struct {
	status models.PairStatus
	err    error
}

func (s *stubStatusResolver) Status(ctx context.Context, userID, otherUserID string) (models.PairStatus, *models.ConnectionRequest, error) {
	return s.status, nil, s.err
}

type stubSenderCounter struct {
	count int64
	err   error
}

func (s *stubSenderCounter) CountBySender(ctx context.Context, conversationID, senderID string) (int64, error) {
	return s.count, s.err
}

func TestMessagingPolicyCanSend(t *testing.T) {
	tests := []struct {
		name       string
		status     models.PairStatus
		priorSent  int64
		wantReason string
	}{
		{
			name:   "accepted allows messaging",
			status: models.PairStatusAccepted,
		},
		{
			name:       "no connection denies",
			status:     models.PairStatusNone,
			wantReason: ReasonNoConnection,
		},
		{
			name:       "rejected denies permanently",
			status:     models.PairStatusRejected,
			wantReason: ReasonConnectionRejected,
		},
		{
			name:       "incoming pending request must be accepted first",
			status:     models.PairStatusPendingReceived,
			wantReason: ReasonAcceptTheirs,
		},
		{
			name:      "pending sender gets one icebreaker",
			status:    models.PairStatusPendingSent,
			priorSent: 0,
		},
		{
			name:       "pending sender blocked after icebreaker",
			status:     models.PairStatusPendingSent,
			priorSent:  1,
			wantReason: ReasonOneMessageLimit,
		},
		{
			name:       "pending sender blocked well past the limit",
			status:     models.PairStatusPendingSent,
			priorSent:  7,
			wantReason: ReasonOneMessageLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewMessagingPolicy(
				&stubStatusResolver{status: tt.status},
				&stubSenderCounter{count: tt.priorSent},
			)

			err := policy.CanSend(context.Background(), "sender", "receiver", "conv-1")
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("CanSend() = %v, want nil", err)
				}
				return
			}

			var denied *PolicyDeniedError
			if !errors.As(err, &denied) {
				t.Fatalf("CanSend() = %v, want *PolicyDeniedError", err)
			}
			if denied.Reason != tt.wantReason {
				t.Errorf("denial reason = %q, want %q", denied.Reason, tt.wantReason)
			}
		})
	}
}

func TestMessagingPolicyResolverError(t *testing.T) {
	resolverErr := errors.New("db down")
	policy := NewMessagingPolicy(&stubStatusResolver{err: resolverErr}, &stubSenderCounter{})

	err := policy.CanSend(context.Background(), "sender", "receiver", "conv-1")
	if !errors.Is(err, resolverErr) {
		t.Fatalf("CanSend() = %v, want wrapped resolver error", err)
	}
	var denied *PolicyDeniedError
	if errors.As(err, &denied) {
		t.Error("infrastructure errors must not surface as policy denials")
	}
}

func TestMessagingPolicyCounterScopedToSender(t *testing.T) {
	// The receiver replying must never consume the sender's icebreaker
	// quota; the counter is queried for the sending side only.
	var gotSender string
	counter := &recordingCounter{onCount: func(conversationID, senderID string) { gotSender = senderID }}
	policy := NewMessagingPolicy(&stubStatusResolver{status: models.PairStatusPendingSent}, counter)

	if err := policy.CanSend(context.Background(), "alice", "bob", "conv-1"); err != nil {
		t.Fatalf("CanSend() = %v, want nil", err)
	}
	if gotSender != "alice" {
		t.Errorf("counted messages for %q, want alice", gotSender)
	}
}

type recordingCounter struct {
	onCount func(conversationID, senderID string)
}

func (r *recordingCounter) CountBySender(ctx context.Context, conversationID, senderID string) (int64, error) {
	if r.onCount != nil {
		r.onCount(conversationID, senderID)
	}
	return 0, nil
}
