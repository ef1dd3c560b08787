package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"matri-go/internal/events"
	"matri-go/internal/realtime"
)

func newTestHub(t *testing.T) (*Hub, realtime.PresenceDirectory) {
	t.Helper()
	presence := realtime.NewMemoryPresence()
	hub := NewHub(presence)
	go hub.Run()
	return hub, presence
}

// recvFrame reads one delivered envelope with a timeout.
func recvFrame(t *testing.T, c *Client) events.Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed before a frame arrived")
		}
		var envelope events.Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			t.Fatalf("unmarshalling frame: %v", err)
		}
		return envelope
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return events.Envelope{}
}

// syncHub waits for the hub to finish all prior work by pushing a no-op
// through one of its unbuffered channels.
func syncHub(hub *Hub, c *Client) {
	hub.JoinConversation(c, "sync-room")
	hub.LeaveConversation(c, "sync-room")
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected frame: %s", frame)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversToAllReceiverSessions(t *testing.T) {
	hub, presence := newTestHub(t)

	phone := NewClient(hub, nil, "bob")
	laptop := NewClient(hub, nil, "bob")
	alice := NewClient(hub, nil, "alice")
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(alice)

	online, err := presence.IsOnline(context.Background(), "bob")
	if err != nil || !online {
		t.Fatalf("IsOnline(bob) = (%v, %v), want true", online, err)
	}

	payload := &events.MessagePayload{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		ReceiverID:     "bob",
		Content:        "hello",
	}
	hub.NotifyNewMessage(payload)

	for _, c := range []*Client{phone, laptop} {
		envelope := recvFrame(t, c)
		if envelope.Type != events.NewMessageEvent {
			t.Errorf("frame type = %q, want new_message", envelope.Type)
		}
		if envelope.Message == nil || envelope.Message.ID != "msg-1" {
			t.Error("frame must carry the message payload")
		}
	}
	// The sender's own session gets nothing from receiver fan-out.
	assertNoFrame(t, alice)
}

func TestHubDropsEventsForOfflineUsers(t *testing.T) {
	hub, _ := newTestHub(t)

	watcher := NewClient(hub, nil, "carol")
	hub.Register(watcher)

	hub.NotifyNewMessage(&events.MessagePayload{ID: "msg-1", ReceiverID: "nobody-online"})
	assertNoFrame(t, watcher)
}

func TestHubTypingBroadcastExcludesSender(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient(hub, nil, "alice")
	bob := NewClient(hub, nil, "bob")
	outsider := NewClient(hub, nil, "carol")
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(outsider)

	hub.JoinConversation(alice, "conv-1")
	hub.JoinConversation(bob, "conv-1")

	hub.NotifyTyping(alice, events.TypingPayload{ConversationID: "conv-1", UserID: "alice", IsTyping: true})

	envelope := recvFrame(t, bob)
	if envelope.Type != events.TypingEvent {
		t.Errorf("frame type = %q, want typing", envelope.Type)
	}
	if envelope.Typing == nil || envelope.Typing.UserID != "alice" || !envelope.Typing.IsTyping {
		t.Error("typing frame must carry the typist and state")
	}
	assertNoFrame(t, alice)
	assertNoFrame(t, outsider)

	// After leaving the room, no further typing frames arrive.
	hub.LeaveConversation(bob, "conv-1")
	hub.NotifyTyping(alice, events.TypingPayload{ConversationID: "conv-1", UserID: "alice", IsTyping: false})
	assertNoFrame(t, bob)
}

func TestHubUnregisterClosesSessionAndPresence(t *testing.T) {
	hub, presence := newTestHub(t)
	ctx := context.Background()

	phone := NewClient(hub, nil, "bob")
	laptop := NewClient(hub, nil, "bob")
	hub.Register(phone)
	hub.Register(laptop)
	hub.JoinConversation(phone, "conv-1")

	hub.Unregister(phone)

	// The closed send channel is the disconnect signal to the write pump.
	select {
	case _, ok := <-phone.send:
		if ok {
			t.Error("expected the send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after unregister")
	}

	// The user stays online through the remaining session.
	syncHub(hub, laptop)
	online, err := presence.IsOnline(ctx, "bob")
	if err != nil || !online {
		t.Fatalf("IsOnline(bob) after one disconnect = (%v, %v), want true", online, err)
	}

	hub.NotifyNewMessage(&events.MessagePayload{ID: "msg-1", ReceiverID: "bob"})
	if envelope := recvFrame(t, laptop); envelope.Message.ID != "msg-1" {
		t.Error("surviving session must still receive events")
	}

	hub.Unregister(laptop)
	select {
	case <-laptop.send:
	case <-time.After(time.Second):
		t.Fatal("second send channel not closed after unregister")
	}
	bystander := NewClient(hub, nil, "bystander")
	hub.Register(bystander)
	syncHub(hub, bystander)
	online, err = presence.IsOnline(ctx, "bob")
	if err != nil || online {
		t.Fatalf("IsOnline(bob) after full disconnect = (%v, %v), want false", online, err)
	}
}
