package models

import "testing"

func TestOrderedPair(t *testing.T) {
	tests := []struct {
		name       string
		userA      string
		userB      string
		wantFirst  string
		wantSecond string
	}{
		{
			name:       "already ordered",
			userA:      "aaa-111",
			userB:      "bbb-222",
			wantFirst:  "aaa-111",
			wantSecond: "bbb-222",
		},
		{
			name:       "reversed input",
			userA:      "bbb-222",
			userB:      "aaa-111",
			wantFirst:  "aaa-111",
			wantSecond: "bbb-222",
		},
		{
			name:       "equal ids",
			userA:      "ccc-333",
			userB:      "ccc-333",
			wantFirst:  "ccc-333",
			wantSecond: "ccc-333",
		},
		{
			name:       "uuid style ids",
			userA:      "f47ac10b-58cc-4372-a567-0e02b2c3d479",
			userB:      "11111111-2222-3333-4444-555555555555",
			wantFirst:  "11111111-2222-3333-4444-555555555555",
			wantSecond: "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := OrderedPair(tt.userA, tt.userB)
			if first != tt.wantFirst || second != tt.wantSecond {
				t.Errorf("OrderedPair(%q, %q) = (%q, %q), want (%q, %q)",
					tt.userA, tt.userB, first, second, tt.wantFirst, tt.wantSecond)
			}
		})
	}
}

func TestOrderedPairSymmetry(t *testing.T) {
	a, b := "user-x", "user-y"
	f1, s1 := OrderedPair(a, b)
	f2, s2 := OrderedPair(b, a)
	if f1 != f2 || s1 != s2 {
		t.Errorf("OrderedPair is not symmetric: (%q, %q) vs (%q, %q)", f1, s1, f2, s2)
	}
}

func TestConversationParticipants(t *testing.T) {
	conv := &Conversation{User1ID: "alice", User2ID: "bob"}

	if !conv.HasParticipant("alice") || !conv.HasParticipant("bob") {
		t.Error("expected both users to be participants")
	}
	if conv.HasParticipant("carol") {
		t.Error("expected carol not to be a participant")
	}

	if got := conv.OtherParticipant("alice"); got != "bob" {
		t.Errorf("OtherParticipant(alice) = %q, want bob", got)
	}
	if got := conv.OtherParticipant("bob"); got != "alice" {
		t.Errorf("OtherParticipant(bob) = %q, want alice", got)
	}
}
