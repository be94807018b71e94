// Package session stores authenticated sessions in Redis with TTL-based
// expiration. Each user's session ids are also indexed so all of them can be
// revoked at once, e.g. after a password reset.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSession is returned when session data is invalid
	ErrInvalidSession = errors.New("invalid session")
)

// Manager defines the interface for session management operations
type Manager interface {
	Create(ctx context.Context, userID uuid.UUID, email string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

type manager struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
}

// NewManager creates a session manager issuing sessions that live for maxAge.
func NewManager(store Store, maxAge time.Duration) Manager {
	return &manager{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userKey(userID uuid.UUID) string {
	return "session:user:" + userID.String()
}

func (m *manager) Create(ctx context.Context, userID uuid.UUID, email string) (*Session, error) {
	now := m.now()
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.store.Set(ctx, sessionKey(sess.ID), string(data), m.maxAge); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	if err := m.store.AddMember(ctx, userKey(userID), sess.ID, m.maxAge); err != nil {
		return nil, fmt.Errorf("failed to index session: %w", err)
	}

	return sess, nil
}

func (m *manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := sessionKey(sessionID)

	data, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, ErrInvalidSession
	}

	if sess.Expired(m.now()) {
		_ = m.store.Delete(ctx, key)
		return nil, ErrSessionExpired
	}

	return &sess, nil
}

func (m *manager) Delete(ctx context.Context, sessionID string) error {
	sess, err := m.Get(ctx, sessionID)
	if err == nil {
		_ = m.store.RemoveMember(ctx, userKey(sess.UserID), sessionID)
	}
	return m.store.Delete(ctx, sessionKey(sessionID))
}

func (m *manager) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	ids, err := m.store.Members(ctx, userKey(userID))
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey(userID))

	return m.store.Delete(ctx, keys...)
}
