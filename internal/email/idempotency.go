package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnknownMessage is returned for a message id with no delivery record.
var ErrUnknownMessage = errors.New("message not found")

const idempotencyKeyPrefix = "email:sent:"

// IdempotencyStore handles deduplication of queued emails
type IdempotencyStore struct {
	redis  redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyStore creates a store keeping delivery records for 24 hours.
func NewIdempotencyStore(client redis.Cmdable, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{
		redis:  client,
		ttl:    24 * time.Hour,
		logger: logger,
	}
}

// TTL is how long delivery records are kept.
func (s *IdempotencyStore) TTL() time.Duration {
	return s.ttl
}

func buildKey(messageID string) string {
	return idempotencyKeyPrefix + messageID
}

// IsProcessed checks if a message has already been delivered
func (s *IdempotencyStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	exists, err := s.redis.Exists(ctx, buildKey(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if message is processed: %w", err)
	}
	return exists > 0, nil
}

// MarkAsProcessed records a delivery with SET NX. It returns false when
// another consumer recorded the message first.
func (s *IdempotencyStore) MarkAsProcessed(ctx context.Context, msg Message) (bool, error) {
	metadata, err := json.Marshal(Metadata{
		SentAt:    time.Now().UTC(),
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	ok, err := s.redis.SetNX(ctx, buildKey(msg.MessageID), metadata, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processed: %w", err)
	}

	if !ok {
		s.logger.Warn("Email already processed (duplicate detected)",
			"message_id", msg.MessageID,
			"recipient", msg.Recipient)
	}
	return ok, nil
}

// GetMetadata retrieves the delivery record of a message
func (s *IdempotencyStore) GetMetadata(ctx context.Context, messageID string) (*Metadata, error) {
	data, err := s.redis.Get(ctx, buildKey(messageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownMessage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &metadata, nil
}

// Count returns the number of live delivery records.
func (s *IdempotencyStore) Count(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		count  int64
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, idempotencyKeyPrefix+"*", 100).Result()
		if err != nil {
			return count, fmt.Errorf("failed to scan keys: %w", err)
		}
		count += int64(len(keys))

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}
