// Package realtime defines the presence directory: the session-id to
// user-id mapping consulted for live delivery. Nothing here is durable;
// the message ledger remains the source of truth for offline users.
package realtime

import (
	"context"
	"sync"
)

// PresenceDirectory tracks which transport sessions belong to which user.
// A user may hold any number of concurrent sessions (multi-device). The
// in-memory implementation serves a single instance; the Redis-backed one
// lets any instance of a fleet see sessions registered elsewhere.
type PresenceDirectory interface {
	RegisterSession(ctx context.Context, userID, sessionID string) error
	UnregisterSession(ctx context.Context, sessionID string) error
	SessionsForUser(ctx context.Context, userID string) ([]string, error)
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// memoryPresence is the process-local PresenceDirectory.
type memoryPresence struct {
	mu        sync.RWMutex
	byUser    map[string]map[string]struct{}
	bySession map[string]string
}

// NewMemoryPresence creates an in-memory PresenceDirectory.
func NewMemoryPresence() PresenceDirectory {
	return &memoryPresence{
		byUser:    make(map[string]map[string]struct{}),
		bySession: make(map[string]string),
	}
}

func (p *memoryPresence) RegisterSession(ctx context.Context, userID, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byUser[userID] == nil {
		p.byUser[userID] = make(map[string]struct{})
	}
	p.byUser[userID][sessionID] = struct{}{}
	p.bySession[sessionID] = userID
	return nil
}

func (p *memoryPresence) UnregisterSession(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.bySession[sessionID]
	if !ok {
		return nil
	}
	delete(p.bySession, sessionID)
	if sessions := p.byUser[userID]; sessions != nil {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(p.byUser, userID)
		}
	}
	return nil
}

func (p *memoryPresence) SessionsForUser(ctx context.Context, userID string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sessions := make([]string, 0, len(p.byUser[userID]))
	for id := range p.byUser[userID] {
		sessions = append(sessions, id)
	}
	return sessions, nil
}

func (p *memoryPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0, nil
}
