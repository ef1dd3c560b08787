package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"matri-go/internal/auth"
)

const otpKeyPrefix = "otp:"

// redisOTPStore is the Redis implementation of auth.OTPStore. Redis TTL
// handles expiry; Verify consumes the code by deleting the key.
type redisOTPStore struct {
	client *redis.Client
}

// NewRedisOTPStore creates a new Redis-backed OTP store.
func NewRedisOTPStore(client *redis.Client) auth.OTPStore {
	return &redisOTPStore{client: client}
}

func (s *redisOTPStore) Save(ctx context.Context, target, codeHash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpKeyPrefix+target, codeHash, ttl).Err(); err != nil {
		return fmt.Errorf("storing OTP for %s: %w", target, err)
	}
	return nil
}

func (s *redisOTPStore) Get(ctx context.Context, target string) (string, error) {
	hash, err := s.client.Get(ctx, otpKeyPrefix+target).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrOTPNotFound
		}
		return "", fmt.Errorf("reading OTP for %s: %w", target, err)
	}
	return hash, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, target string) error {
	if err := s.client.Del(ctx, otpKeyPrefix+target).Err(); err != nil {
		return fmt.Errorf("deleting OTP for %s: %w", target, err)
	}
	return nil
}
