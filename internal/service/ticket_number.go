package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NumberAllocator issues human-readable ticket numbers in the form
// TKT-YYYYMMDD-NNNNNN, where NNNNNN is a per-day sequence.
type NumberAllocator interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

type redisNumberAllocator struct {
	client *redis.Client
}

// NewRedisNumberAllocator backs the daily sequence with a Redis INCR.
func NewRedisNumberAllocator(client *redis.Client) NumberAllocator {
	return &redisNumberAllocator{client: client}
}

func (a *redisNumberAllocator) Next(ctx context.Context, now time.Time) (string, error) {
	day := now.Format("20060102")
	key := "carelog:ticket_seq:" + day

	seq, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("allocate ticket number: %w", err)
	}
	// Keep the counter around past midnight so late writers on the old
	// day key still get unique numbers, then let it expire.
	if seq == 1 {
		a.client.Expire(ctx, key, 48*time.Hour)
	}
	return fmt.Sprintf("TKT-%s-%06d", day, seq), nil
}
