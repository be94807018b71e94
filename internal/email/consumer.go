package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
)

// Consumer reads queued emails from Kafka and hands them to a Processor.
// Offsets are committed manually after processing.
type Consumer struct {
	consumer  *kafka.Consumer
	processor *Processor
	topic     string
	logger    *slog.Logger
}

// NewConsumer creates a Kafka consumer in the configured group.
func NewConsumer(cfg config.KafkaConfig, processor *Processor, logger *slog.Logger) (*Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.ConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized",
		"brokers", cfg.Brokers,
		"topic", cfg.EmailEventsTopic,
		"group", cfg.ConsumerGroup)

	return &Consumer{
		consumer:  c,
		processor: processor,
		topic:     cfg.EmailEventsTopic,
		logger:    logger,
	}, nil
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.consumer.Subscribe(c.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	c.logger.Info("Starting to consume messages", "topic", c.topic)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer shutting down...")
			return nil
		default:
		}

		msg, err := c.consumer.ReadMessage(time.Second)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
				continue
			}
			c.logger.Error("Error reading message", "error", err)
			continue
		}

		c.logger.Debug("Received email message",
			"topic", *msg.TopicPartition.Topic,
			"partition", msg.TopicPartition.Partition,
			"offset", msg.TopicPartition.Offset)

		if c.processor.Process(ctx, msg.Value) {
			c.commit(msg)
			continue
		}

		// Rewind so the message is read again on the next poll.
		if err := c.consumer.Seek(msg.TopicPartition, 0); err != nil {
			c.logger.Error("Failed to rewind partition", "error", err)
		}
	}
}

func (c *Consumer) commit(msg *kafka.Message) {
	if _, err := c.consumer.CommitMessage(msg); err != nil {
		c.logger.Error("Failed to commit offset",
			"topic", *msg.TopicPartition.Topic,
			"partition", msg.TopicPartition.Partition,
			"offset", msg.TopicPartition.Offset,
			"error", err)
	}
}

// Close closes the consumer
func (c *Consumer) Close() {
	c.logger.Info("Closing Kafka consumer...")
	if err := c.consumer.Close(); err != nil {
		c.logger.Error("Failed to close consumer", "error", err)
	}
	c.logger.Info("Kafka consumer closed")
}
