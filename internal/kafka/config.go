package kafka

import (
	"strings"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
)

// Config holds Kafka client settings
type Config struct {
	Brokers           string
	EnableIdempotence bool
	Acks              string
}

// NewConfig derives client settings from the application configuration.
// Producers always run idempotent with acks=all.
func NewConfig(cfg config.KafkaConfig) *Config {
	return &Config{
		Brokers:           cfg.Brokers,
		EnableIdempotence: true,
		Acks:              "all",
	}
}

// GetBrokersList returns brokers as a slice
func (c *Config) GetBrokersList() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
