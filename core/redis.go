package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTicketInvalid is returned when a reset ticket is unknown, expired,
// or already redeemed.
var ErrTicketInvalid = errors.New("invalid or expired reset ticket")

// ResetTicketStore issues and redeems one-time password reset tickets.
type ResetTicketStore interface {
	Issue(ctx context.Context, memberID string) (string, error)
	Redeem(ctx context.Context, ticket string) (string, error)
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

const resetTicketPrefix = "pwreset:"

// RedisResetTicketStore stores tickets as TTL keys. Expiry is enforced
// by Redis; redemption deletes the key so a ticket is single-use.
type RedisResetTicketStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResetTicketStore(client *redis.Client, ttl time.Duration) *RedisResetTicketStore {
	return &RedisResetTicketStore{client: client, ttl: ttl}
}

func (s *RedisResetTicketStore) Issue(ctx context.Context, memberID string) (string, error) {
	if memberID == "" {
		return "", errors.New("empty member id")
	}
	ticket := uuid.NewString()
	if err := s.client.Set(ctx, resetTicketPrefix+ticket, memberID, s.ttl).Err(); err != nil {
		return "", err
	}
	return ticket, nil
}

// Redeem atomically fetches and deletes the ticket (GETDEL), so two
// concurrent redemptions cannot both succeed.
func (s *RedisResetTicketStore) Redeem(ctx context.Context, ticket string) (string, error) {
	if ticket == "" {
		return "", ErrTicketInvalid
	}
	memberID, err := s.client.GetDel(ctx, resetTicketPrefix+ticket).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTicketInvalid
		}
		return "", err
	}
	return memberID, nil
}
