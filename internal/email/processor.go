package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Processor delivers queued messages exactly once per message id, retrying
// transient failures and dead-lettering messages that keep failing.
type Processor struct {
	sender        Sender
	store         *IdempotencyStore
	dlq           Publisher
	dlqTopic      string
	consumerGroup string
	maxRetries    int
	backoff       time.Duration
	logger        *slog.Logger
}

// ProcessorConfig holds the retry and dead-letter settings.
type ProcessorConfig struct {
	DLQTopic      string
	ConsumerGroup string
	MaxRetries    int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

func NewProcessor(cfg ProcessorConfig, sender Sender, store *IdempotencyStore, dlq Publisher, logger *slog.Logger) *Processor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Processor{
		sender:        sender,
		store:         store,
		dlq:           dlq,
		dlqTopic:      cfg.DLQTopic,
		consumerGroup: cfg.ConsumerGroup,
		maxRetries:    cfg.MaxRetries,
		backoff:       cfg.Backoff,
		logger:        logger,
	}
}

// Process handles one raw message and reports whether its offset can be
// committed. False means the message must be redelivered.
func (p *Processor) Process(ctx context.Context, value []byte) bool {
	var msg Message
	if err := json.Unmarshal(value, &msg); err != nil {
		p.logger.Error("Failed to parse email message", "error", err, "raw_value", string(value))
		return true
	}

	if msg.MessageID == "" || msg.Recipient == "" {
		p.logger.Error("Email message missing message_id or recipient", "message_id", msg.MessageID)
		return true
	}

	processed, err := p.store.IsProcessed(ctx, msg.MessageID)
	if err != nil {
		p.logger.Error("Failed to check idempotency", "message_id", msg.MessageID, "error", err)
		return false
	}
	if processed {
		p.logger.Warn("Duplicate email message detected, skipping",
			"message_id", msg.MessageID,
			"recipient", msg.Recipient)
		return true
	}

	if err := p.sendWithRetry(ctx, msg); err != nil {
		p.logger.Error("Failed to deliver email after retries", "message_id", msg.MessageID, "error", err)
		if dlqErr := p.deadLetter(ctx, msg, err); dlqErr != nil {
			p.logger.Error("Failed to send to DLQ", "message_id", msg.MessageID, "error", dlqErr)
			return false
		}
		return true
	}

	if _, err := p.store.MarkAsProcessed(ctx, msg); err != nil {
		p.logger.Error("Failed to mark as processed", "message_id", msg.MessageID, "error", err)
		return false
	}

	p.logger.Info("Email delivered",
		"message_id", msg.MessageID,
		"recipient", msg.Recipient)
	return true
}

func (p *Processor) sendWithRetry(ctx context.Context, msg Message) error {
	var lastErr error

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		err := p.sender.Send(ctx, msg.Recipient, msg.Subject, msg.Body)
		if err == nil {
			if attempt > 1 {
				p.logger.Info("Email sent after retry", "message_id", msg.MessageID, "attempt", attempt)
			}
			return nil
		}

		lastErr = err
		p.logger.Warn("Failed to send email, will retry",
			"message_id", msg.MessageID,
			"attempt", attempt,
			"max_retries", p.maxRetries,
			"error", err)

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * p.backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (p *Processor) deadLetter(ctx context.Context, msg Message, cause error) error {
	if p.dlq == nil {
		return fmt.Errorf("no dead-letter publisher configured")
	}

	err := p.dlq.Publish(ctx, p.dlqTopic, msg.Recipient, DeadLetter{
		Original:      msg,
		Error:         cause.Error(),
		FailedAt:      time.Now().UTC(),
		ConsumerGroup: p.consumerGroup,
	})
	if err != nil {
		return err
	}

	p.logger.Warn("Email message sent to DLQ",
		"message_id", msg.MessageID,
		"recipient", msg.Recipient,
		"dlq_topic", p.dlqTopic)
	return nil
}
