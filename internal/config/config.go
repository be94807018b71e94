// Package config loads the typed application configuration from the
// environment. A local .env file is picked up automatically.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds configuration for every component of the API and the email worker.
type Config struct {
	AppEnv    string
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	S3        S3Config
	Kafka     KafkaConfig
	Consul    ConsulConfig
	Email     EmailConfig
	OTP       OTPConfig
	Locations LocationConfig
	Session   SessionConfig
	Logging   LoggingConfig
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	Schema          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DSN returns the connection string understood by the pgx driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.Schema)
}

// RedisConfig configures the Redis client shared by sessions, caches and throttling.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// S3Config configures the S3-compatible media store.
type S3Config struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
}

// Enabled reports whether enough settings are present to build a storage client.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// KafkaConfig configures the email event pipeline.
type KafkaConfig struct {
	Enabled          bool
	Brokers          string
	EmailEventsTopic string
	EmailDLQTopic    string
	ConsumerGroup    string
	MaxRetries       int
}

// ConsulConfig configures service registration.
type ConsulConfig struct {
	Enabled bool
	Addr    string
	Token   string
}

// EmailConfig configures outbound email delivery.
type EmailConfig struct {
	// Mode is one of "log", "smtp" or "queue".
	Mode         string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	FromName     string
	WorkerPort   int
}

// OTPConfig configures one-time code generation and expiry.
type OTPConfig struct {
	Length      int
	Numeric     bool
	Expiry      time.Duration
	Cooldown    time.Duration
	Window      time.Duration
	MaxInWindow int
}

// LocationConfig configures address bookkeeping.
type LocationConfig struct {
	MaxPerOwner int
	CacheTTL    time.Duration
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	MaxAge     int
	CookieName string
	Secure     bool
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	appEnv := GetEnvOrDefault("APP_ENV", "development")

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	smtpPort, err := getInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	workerPort, err := getInt("EMAIL_SERVICE_PORT", 8085)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	otpLength, err := getInt("OTP_LENGTH", 6)
	if err != nil {
		return nil, err
	}
	otpExpiryMinutes, err := getInt("OTP_EXPIRY_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	otpMax, err := getInt("OTP_MAX_PER_WINDOW", 5)
	if err != nil {
		return nil, err
	}
	maxLocations, err := getInt("MAX_LOCATIONS_PER_USER", 4)
	if err != nil {
		return nil, err
	}
	sessionMaxAge, err := getInt("SESSION_MAX_AGE", 3600)
	if err != nil {
		return nil, err
	}
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, err
	}
	kafkaRetries, err := getInt("KAFKA_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv: appEnv,
		HTTP: HTTPConfig{
			Host:           GetEnvOrDefault("HOST", "localhost"),
			Port:           port,
			ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:            GetEnvOrDefault("DB_HOST", "localhost"),
			Port:            GetEnvOrDefault("DB_PORT", "5432"),
			User:            GetEnvOrDefault("DB_USERNAME", "postgres"),
			Password:        GetEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:            GetEnvOrDefault("DB_DATABASE", "social"),
			Schema:          GetEnvOrDefault("DB_SCHEMA", "public"),
			SSLMode:         GetEnvOrDefault("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     GetEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: GetEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		S3: S3Config{
			Endpoint:       GetEnvOrDefault("S3_ENDPOINT", ""),
			PublicEndpoint: GetEnvOrDefault("S3_PUBLIC_ENDPOINT", ""),
			AccessKey:      GetEnvOrDefault("S3_ACCESS_KEY", ""),
			SecretKey:      GetEnvOrDefault("S3_SECRET_KEY", ""),
			Bucket:         GetEnvOrDefault("S3_BUCKET_NAME", ""),
			Region:         GetEnvOrDefault("S3_REGION", "us-east-1"),
			UseSSL:         getBool("S3_USE_SSL", false),
		},
		Kafka: KafkaConfig{
			Enabled:          getBool("ENABLE_KAFKA", false),
			Brokers:          GetEnvOrDefault("KAFKA_BROKERS", ""),
			EmailEventsTopic: GetEnvOrDefault("KAFKA_TOPIC_EMAIL_EVENTS", "email-events"),
			EmailDLQTopic:    GetEnvOrDefault("KAFKA_TOPIC_EMAIL_DLQ", "email-events-dlq"),
			ConsumerGroup:    GetEnvOrDefault("KAFKA_CONSUMER_GROUP", "email-service-group"),
			MaxRetries:       kafkaRetries,
		},
		Consul: ConsulConfig{
			Enabled: getBool("ENABLE_CONSUL", false),
			Addr:    GetEnvOrDefault("CONSUL_HTTP_ADDR", "localhost:8500"),
			Token:   GetEnvOrDefault("CONSUL_HTTP_TOKEN", ""),
		},
		Email: EmailConfig{
			Mode:         strings.ToLower(GetEnvOrDefault("EMAIL_MODE", "log")),
			SMTPHost:     GetEnvOrDefault("SMTP_HOST", ""),
			SMTPPort:     smtpPort,
			SMTPUser:     GetEnvOrDefault("SMTP_USER", ""),
			SMTPPassword: GetEnvOrDefault("SMTP_PASSWORD", ""),
			From:         GetEnvOrDefault("SMTP_FROM", "noreply@example.com"),
			FromName:     GetEnvOrDefault("SMTP_FROM_NAME", "Aadhityaa"),
			WorkerPort:   workerPort,
		},
		OTP: OTPConfig{
			Length:      otpLength,
			Numeric:     getBool("OTP_NUMERIC", true),
			Expiry:      time.Duration(otpExpiryMinutes) * time.Minute,
			Cooldown:    getDuration("OTP_COOLDOWN", 30*time.Second),
			Window:      getDuration("OTP_WINDOW", 15*time.Minute),
			MaxInWindow: otpMax,
		},
		Locations: LocationConfig{
			MaxPerOwner: maxLocations,
			CacheTTL:    getDuration("LOCATIONS_CACHE_TTL", 5*time.Minute),
		},
		Session: SessionConfig{
			MaxAge:     sessionMaxAge,
			CookieName: GetEnvOrDefault("SESSION_COOKIE_NAME", "session_id"),
			Secure:     appEnv == "production",
		},
		Logging: LoggingConfig{
			Level:  GetEnvOrDefault("LOG_LEVEL", "info"),
			Format: GetEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.AppEnv == "production" {
		if err := ValidateEnv(RequiredFor(cfg)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OTP.Length < 4 || c.OTP.Length > 12 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 12, got %d", c.OTP.Length)
	}
	if c.OTP.Expiry <= 0 {
		return fmt.Errorf("OTP_EXPIRY_MINUTES must be positive")
	}
	if c.Locations.MaxPerOwner < 1 {
		return fmt.Errorf("MAX_LOCATIONS_PER_USER must be at least 1")
	}
	switch c.Email.Mode {
	case "log", "smtp", "queue":
	default:
		return fmt.Errorf("EMAIL_MODE must be one of log, smtp, queue; got %q", c.Email.Mode)
	}
	if c.Email.Mode == "queue" && (!c.Kafka.Enabled || c.Kafka.Brokers == "") {
		return fmt.Errorf("EMAIL_MODE=queue requires ENABLE_KAFKA=true and KAFKA_BROKERS")
	}
	return nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := GetEnvOrDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) bool {
	raw := GetEnvOrDefault(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := GetEnvOrDefault(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	raw := GetEnvOrDefault(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
