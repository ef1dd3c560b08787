package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"matri-go/internal/models"
)

func seedMessage(t *testing.T, repo MessageRepository, convID, senderID, receiverID, content string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
	}
	msg.CreatedAt = at
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("seeding message %q: %v", content, err)
	}
	return msg
}

func TestMessagePagingNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 5; i++ {
		seedMessage(t, repo, "conv-1", "alice", "bob", fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Minute))
	}
	// A second conversation must not bleed into the page or count.
	seedMessage(t, repo, "conv-2", "alice", "carol", "other thread", base)

	messages, total, err := repo.GetByConversationID(ctx, "conv-1", 2, 0)
	if err != nil {
		t.Fatalf("GetByConversationID() error: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Content != "message 5" || messages[1].Content != "message 4" {
		t.Errorf("page = [%q, %q], want newest first", messages[0].Content, messages[1].Content)
	}

	messages, _, err = repo.GetByConversationID(ctx, "conv-1", 2, 4)
	if err != nil {
		t.Fatalf("GetByConversationID() offset error: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "message 1" {
		t.Errorf("last page should hold only the oldest message")
	}
}

func TestGetLastMessage(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)

	last, err := repo.GetLastMessage(ctx, "conv-empty")
	if err != nil {
		t.Fatalf("GetLastMessage() on empty conversation error: %v", err)
	}
	if last != nil {
		t.Errorf("empty conversation returned message %+v, want nil", last)
	}

	base := time.Now().Add(-time.Hour)
	seedMessage(t, repo, "conv-1", "alice", "bob", "older", base)
	seedMessage(t, repo, "conv-1", "bob", "alice", "newest", base.Add(time.Minute))

	last, err = repo.GetLastMessage(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetLastMessage() error: %v", err)
	}
	if last == nil || last.Content != "newest" {
		t.Errorf("GetLastMessage() = %+v, want the newest message", last)
	}
}

func TestCountBySender(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)

	base := time.Now().Add(-time.Hour)
	seedMessage(t, repo, "conv-1", "alice", "bob", "one", base)
	seedMessage(t, repo, "conv-1", "alice", "bob", "two", base.Add(time.Minute))
	seedMessage(t, repo, "conv-1", "bob", "alice", "reply", base.Add(2*time.Minute))
	seedMessage(t, repo, "conv-2", "alice", "carol", "elsewhere", base)

	count, err := repo.CountBySender(ctx, "conv-1", "alice")
	if err != nil {
		t.Fatalf("CountBySender() error: %v", err)
	}
	if count != 2 {
		t.Errorf("alice's count in conv-1 = %d, want 2", count)
	}
	count, err = repo.CountBySender(ctx, "conv-1", "bob")
	if err != nil {
		t.Fatalf("CountBySender() error: %v", err)
	}
	if count != 1 {
		t.Errorf("bob's count in conv-1 = %d, want 1", count)
	}
}

func TestMarkReadForReceiverScoping(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)

	base := time.Now().Add(-time.Hour)
	toBob1 := seedMessage(t, repo, "conv-1", "alice", "bob", "to bob 1", base)
	toBob2 := seedMessage(t, repo, "conv-1", "alice", "bob", "to bob 2", base.Add(time.Minute))
	toAlice := seedMessage(t, repo, "conv-1", "bob", "alice", "to alice", base.Add(2*time.Minute))
	elsewhere := seedMessage(t, repo, "conv-2", "alice", "bob", "other thread", base)

	updated, err := repo.MarkReadForReceiver(ctx, "conv-1", "bob")
	if err != nil {
		t.Fatalf("MarkReadForReceiver() error: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated %d rows, want 2", updated)
	}

	assertRead := func(id string, wantRead bool) {
		t.Helper()
		var msg models.Message
		if err := db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
			t.Fatalf("reloading message %s: %v", id, err)
		}
		if got := msg.ReadAt != nil; got != wantRead {
			t.Errorf("message %q read = %v, want %v", msg.Content, got, wantRead)
		}
	}
	assertRead(toBob1.ID, true)
	assertRead(toBob2.ID, true)
	assertRead(toAlice.ID, false)
	assertRead(elsewhere.ID, false)

	// Already-read rows are skipped on a repeat call.
	updated, err = repo.MarkReadForReceiver(ctx, "conv-1", "bob")
	if err != nil {
		t.Fatalf("repeat MarkReadForReceiver() error: %v", err)
	}
	if updated != 0 {
		t.Errorf("repeat call updated %d rows, want 0", updated)
	}
}

func contents(messages []models.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}

func TestMessageOrderStableOnTimestampTies(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)

	// All rows share one created_at; the time-ordered ids keep the page
	// order and the page boundary at insertion order.
	at := time.Now().Add(-time.Hour)
	for i := 1; i <= 4; i++ {
		seedMessage(t, repo, "conv-1", "alice", "bob", fmt.Sprintf("message %d", i), at)
	}

	firstPage, _, err := repo.GetByConversationID(ctx, "conv-1", 2, 0)
	if err != nil {
		t.Fatalf("GetByConversationID() error: %v", err)
	}
	if len(firstPage) != 2 || firstPage[0].Content != "message 4" || firstPage[1].Content != "message 3" {
		t.Errorf("first page = %v, want [message 4, message 3]", contents(firstPage))
	}

	secondPage, _, err := repo.GetByConversationID(ctx, "conv-1", 2, 2)
	if err != nil {
		t.Fatalf("GetByConversationID() offset error: %v", err)
	}
	if len(secondPage) != 2 || secondPage[0].Content != "message 2" || secondPage[1].Content != "message 1" {
		t.Errorf("second page = %v, want [message 2, message 1]", contents(secondPage))
	}

	last, err := repo.GetLastMessage(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetLastMessage() error: %v", err)
	}
	if last.Content != "message 4" {
		t.Errorf("GetLastMessage() = %q, want message 4", last.Content)
	}
}
