package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
)

type publishedEvent struct {
	topic string
	key   string
	event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func TestNewSender_Modes(t *testing.T) {
	log := logger.Discard()

	s, err := NewSender(config.EmailConfig{Mode: "log"}, nil, "", log)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(config.EmailConfig{Mode: "smtp", SMTPHost: "mail", SMTPPort: 25}, nil, "", log)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = NewSender(config.EmailConfig{Mode: "smtp"}, nil, "", log)
	assert.Error(t, err)

	_, err = NewSender(config.EmailConfig{Mode: "queue"}, nil, "email-events", log)
	assert.Error(t, err)

	s, err = NewSender(config.EmailConfig{Mode: "queue"}, &fakePublisher{}, "email-events", log)
	require.NoError(t, err)
	assert.IsType(t, &QueueSender{}, s)

	_, err = NewSender(config.EmailConfig{Mode: "carrier-pigeon"}, nil, "", log)
	assert.Error(t, err)
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	cfg := config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		SMTPUser: "user",
		From:     "noreply@example.com",
		FromName: "Aadhityaa",
	}
	s := NewSMTPSender(cfg, logger.Discard())

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), "user@example.com", "Account Verification",
		"Your verification code is: 123456\nThis code will expire in 5 minutes.")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "From: Aadhityaa <noreply@example.com>\r\n")
	assert.Contains(t, gotMsg, "Subject: Account Verification\r\n")
	assert.Contains(t, gotMsg, "Your verification code is: 123456<br>This code will expire in 5 minutes.")
}

func TestSMTPSender_PropagatesFailure(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{SMTPHost: "h", SMTPPort: 25}, logger.Discard())
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := s.Send(context.Background(), "a@example.com", "s", "b")
	assert.ErrorContains(t, err, "connection refused")
}

func TestRenderHTML_EscapesBody(t *testing.T) {
	out := renderHTML("Hi", "<script>x</script>")
	assert.False(t, strings.Contains(out, "<script>"))
}

func TestQueueSender(t *testing.T) {
	pub := &fakePublisher{}
	s := NewQueueSender(pub, "email-events", logger.Discard())

	require.NoError(t, s.Send(context.Background(), "a@example.com", "Password Reset Request", "code"))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "email-events", ev.topic)
	assert.Equal(t, "a@example.com", ev.key)

	msg, ok := ev.event.(Message)
	require.True(t, ok)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, "Password Reset Request", msg.Subject)
	assert.Equal(t, "code", msg.Body)

	pub.err = errors.New("broker down")
	assert.Error(t, s.Send(context.Background(), "a@example.com", "s", "b"))
}
