package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter throttles code requests per user and purpose. It enforces a
// cooldown between two requests and a maximum number of requests per window;
// going over the maximum blocks the pair for three windows.
type Limiter struct {
	client      redis.Cmdable
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

// NewLimiter creates a Redis-backed limiter.
func NewLimiter(client redis.Cmdable, window time.Duration, maxInWindow int, cooldown time.Duration) *Limiter {
	return &Limiter{
		client:      client,
		window:      window,
		maxInWindow: maxInWindow,
		cooldown:    cooldown,
	}
}

// Allow records a request and returns an error wrapping ErrTooManyRequests
// when the caller must wait. Redis failures are returned as they are; the
// request is not let through unthrottled.
func (l *Limiter) Allow(ctx context.Context, ownerID uuid.UUID, purpose Purpose) error {
	blockKey := fmt.Sprintf("otp:block:%s:%s", ownerID, purpose)
	lastKey := fmt.Sprintf("otp:last:%s:%s", ownerID, purpose)
	countKey := fmt.Sprintf("otp:count:%s:%s", ownerID, purpose)

	ttl, err := l.client.TTL(ctx, blockKey).Result()
	if err != nil {
		return fmt.Errorf("read otp block: %w", err)
	}
	if ttl > 0 {
		return fmt.Errorf("%w: try again after %d seconds", ErrTooManyRequests, int(ttl.Seconds()))
	}

	ttl, err = l.client.TTL(ctx, lastKey).Result()
	if err != nil {
		return fmt.Errorf("read otp cooldown: %w", err)
	}
	if ttl > 0 {
		return fmt.Errorf("%w: wait %d seconds before requesting another code", ErrTooManyRequests, int(ttl.Seconds()))
	}

	count, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("increment otp request counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, countKey, l.window).Err(); err != nil {
			return fmt.Errorf("expire otp request counter: %w", err)
		}
	}

	if int(count) > l.maxInWindow {
		block := l.window * 3
		if err := l.client.Set(ctx, blockKey, "1", block).Err(); err != nil {
			return fmt.Errorf("set otp block: %w", err)
		}
		return fmt.Errorf("%w: try again after %d seconds", ErrTooManyRequests, int(block.Seconds()))
	}

	if l.cooldown > 0 {
		if err := l.client.Set(ctx, lastKey, "1", l.cooldown).Err(); err != nil {
			return fmt.Errorf("set otp cooldown: %w", err)
		}
	}
	return nil
}

// Reset clears every throttle key of the pair.
func (l *Limiter) Reset(ctx context.Context, ownerID uuid.UUID, purpose Purpose) error {
	return l.client.Del(ctx,
		fmt.Sprintf("otp:block:%s:%s", ownerID, purpose),
		fmt.Sprintf("otp:last:%s:%s", ownerID, purpose),
		fmt.Sprintf("otp:count:%s:%s", ownerID, purpose),
	).Err()
}
