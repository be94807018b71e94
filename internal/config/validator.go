package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidateEnv validates that all required environment variables are set
func ValidateEnv(requiredVars []string) error {
	var missing []string

	for _, varName := range requiredVars {
		if os.Getenv(varName) == "" {
			missing = append(missing, varName)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

// RequiredFor returns the variables that must be present for the given
// configuration to be usable in production.
func RequiredFor(cfg *Config) []string {
	vars := []string{"DB_HOST", "DB_USERNAME", "DB_PASSWORD", "DB_DATABASE", "REDIS_ADDR"}
	if cfg.Email.Mode == "smtp" {
		vars = append(vars, "SMTP_HOST", "SMTP_USER", "SMTP_PASSWORD")
	}
	if cfg.Kafka.Enabled {
		vars = append(vars, "KAFKA_BROKERS")
	}
	return vars
}

// GetEnvOrDefault retrieves an environment variable or returns a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
