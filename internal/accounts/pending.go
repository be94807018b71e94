package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PendingEmail is a requested address and the code that was mailed to it.
type PendingEmail struct {
	Email  string    `json:"email"`
	CodeID uuid.UUID `json:"code_id"`
}

// PendingEmails holds requested email addresses until the change is confirmed.
type PendingEmails interface {
	Put(ctx context.Context, userID uuid.UUID, pending PendingEmail, ttl time.Duration) error
	// Get returns ErrNoPendingEmail when nothing is pending.
	Get(ctx context.Context, userID uuid.UUID) (*PendingEmail, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisPendingEmails struct {
	client redis.Cmdable
}

// NewPendingEmails creates a Redis-backed pending email store.
func NewPendingEmails(client redis.Cmdable) PendingEmails {
	return &redisPendingEmails{client: client}
}

func pendingKey(userID uuid.UUID) string {
	return fmt.Sprintf("email_change:%s", userID)
}

func (p *redisPendingEmails) Put(ctx context.Context, userID uuid.UUID, pending PendingEmail, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, pendingKey(userID), data, ttl).Err()
}

func (p *redisPendingEmails) Get(ctx context.Context, userID uuid.UUID) (*PendingEmail, error) {
	data, err := p.client.Get(ctx, pendingKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingEmail
	}
	if err != nil {
		return nil, err
	}

	var pending PendingEmail
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decode pending email: %w", err)
	}
	return &pending, nil
}

func (p *redisPendingEmails) Delete(ctx context.Context, userID uuid.UUID) error {
	return p.client.Del(ctx, pendingKey(userID)).Err()
}
