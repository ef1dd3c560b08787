package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"matri-go/internal/realtime"
)

const (
	presenceUserPrefix    = "presence:user:"
	presenceSessionPrefix = "presence:session:"
)

// redisPresence is the Redis implementation of realtime.PresenceDirectory,
// shared across chat server instances so any instance can see the sessions
// registered on any other.
type redisPresence struct {
	client *redis.Client
}

// NewRedisPresence creates a new Redis-backed presence directory.
func NewRedisPresence(client *redis.Client) realtime.PresenceDirectory {
	return &redisPresence{client: client}
}

func (p *redisPresence) RegisterSession(ctx context.Context, userID, sessionID string) error {
	pipe := p.client.TxPipeline()
	pipe.SAdd(ctx, presenceUserPrefix+userID, sessionID)
	pipe.Set(ctx, presenceSessionPrefix+sessionID, userID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registering session %s for user %s: %w", sessionID, userID, err)
	}
	return nil
}

func (p *redisPresence) UnregisterSession(ctx context.Context, sessionID string) error {
	userID, err := p.client.Get(ctx, presenceSessionPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("resolving session %s: %w", sessionID, err)
	}

	pipe := p.client.TxPipeline()
	pipe.SRem(ctx, presenceUserPrefix+userID, sessionID)
	pipe.Del(ctx, presenceSessionPrefix+sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("unregistering session %s: %w", sessionID, err)
	}
	return nil
}

func (p *redisPresence) SessionsForUser(ctx context.Context, userID string) ([]string, error) {
	sessions, err := p.client.SMembers(ctx, presenceUserPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("listing sessions for user %s: %w", userID, err)
	}
	return sessions, nil
}

func (p *redisPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	count, err := p.client.SCard(ctx, presenceUserPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("checking presence for user %s: %w", userID, err)
	}
	return count > 0, nil
}
