package realtime

import (
	"context"
	"testing"
)

func TestMemoryPresenceSessions(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPresence()

	online, err := p.IsOnline(ctx, "bob")
	if err != nil {
		t.Fatalf("IsOnline() error: %v", err)
	}
	if online {
		t.Error("unknown user must be offline")
	}

	if err := p.RegisterSession(ctx, "bob", "sess-1"); err != nil {
		t.Fatalf("RegisterSession() error: %v", err)
	}
	if err := p.RegisterSession(ctx, "bob", "sess-2"); err != nil {
		t.Fatalf("RegisterSession() error: %v", err)
	}

	sessions, err := p.SessionsForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("SessionsForUser() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}

	// Dropping one device keeps the user online.
	if err := p.UnregisterSession(ctx, "sess-1"); err != nil {
		t.Fatalf("UnregisterSession() error: %v", err)
	}
	online, _ = p.IsOnline(ctx, "bob")
	if !online {
		t.Error("user with a live session must be online")
	}

	if err := p.UnregisterSession(ctx, "sess-2"); err != nil {
		t.Fatalf("UnregisterSession() error: %v", err)
	}
	online, _ = p.IsOnline(ctx, "bob")
	if online {
		t.Error("user without sessions must be offline")
	}

	// Unregistering an unknown session is a no-op.
	if err := p.UnregisterSession(ctx, "never-registered"); err != nil {
		t.Errorf("UnregisterSession(unknown) error: %v", err)
	}
}
