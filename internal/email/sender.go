// Package email delivers outbound email. The API sends either directly (log or
// SMTP) or through Kafka to the email worker, which owns SMTP delivery,
// retries, deduplication and the dead-letter topic.
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
)

// Sender defines the interface for sending emails
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Publisher publishes an event and waits for the broker acknowledgement.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// NewSender creates the sender selected by cfg.Mode. Queue mode needs a
// publisher.
func NewSender(cfg config.EmailConfig, publisher Publisher, topic string, logger *slog.Logger) (Sender, error) {
	switch cfg.Mode {
	case "log", "":
		return &LogSender{logger: logger}, nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPPort == 0 {
			return nil, fmt.Errorf("smtp mode requires SMTP_HOST and SMTP_PORT")
		}
		return NewSMTPSender(cfg, logger), nil
	case "queue":
		if publisher == nil {
			return nil, fmt.Errorf("queue mode requires a kafka producer")
		}
		return NewQueueSender(publisher, topic, logger), nil
	}
	return nil, fmt.Errorf("unknown email mode %q", cfg.Mode)
}

// LogSender logs emails instead of sending them (development mode)
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("[DEV] Email not sent, logging instead",
		"to", to,
		"subject", subject,
		"body", body)
	return nil
}

// SMTPSender sends emails via SMTP (production mode)
type SMTPSender struct {
	config config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *slog.Logger
}

func NewSMTPSender(cfg config.EmailConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{config: cfg, send: smtp.SendMail, logger: logger}
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	msg := buildMessage(s.config.FromName, s.config.From, to, subject, body)

	var auth smtp.Auth
	if s.config.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	if err := s.send(addr, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Email sent via SMTP", "to", to, "subject", subject)
	return nil
}

func buildMessage(fromName, from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(renderHTML(subject, body))
	return []byte(b.String())
}

func renderHTML(subject, body string) string {
	paragraphs := strings.Split(html.EscapeString(body), "\n")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #667eea;">%s</h2>
    <p style="font-size: 16px;">%s</p>
    <hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
    <p style="font-size: 12px; color: #999; text-align: center;">
        This is an automated message, please do not reply to this email.
    </p>
</body>
</html>
`, html.EscapeString(subject), html.EscapeString(subject), strings.Join(paragraphs, "<br>"))
}

// QueueSender publishes emails to Kafka for the email worker.
type QueueSender struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger
}

func NewQueueSender(publisher Publisher, topic string, logger *slog.Logger) *QueueSender {
	return &QueueSender{publisher: publisher, topic: topic, logger: logger}
}

func (s *QueueSender) Send(ctx context.Context, to, subject, body string) error {
	msg := Message{
		MessageID: uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Recipient: to,
		Subject:   subject,
		Body:      body,
	}

	if err := s.publisher.Publish(ctx, s.topic, to, msg); err != nil {
		return fmt.Errorf("failed to queue email: %w", err)
	}

	s.logger.Info("Email queued", "message_id", msg.MessageID, "to", to, "topic", s.topic)
	return nil
}
