package email

import (
	"time"
)

// Message is an email queued on Kafka for the email worker.
type Message struct {
	// MessageID deduplicates redeliveries in the worker.
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

// Metadata is stored in Redis once a message has been delivered.
type Metadata struct {
	SentAt    time.Time `json:"sent_at"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
}

// DeadLetter wraps a message that could not be delivered.
type DeadLetter struct {
	Original      Message   `json:"original_event"`
	Error         string    `json:"error"`
	FailedAt      time.Time `json:"failed_at"`
	ConsumerGroup string    `json:"consumer_group"`
}
