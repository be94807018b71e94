package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// maxIssueAttempts bounds the draw-check-insert loop in Issue.
const maxIssueAttempts = 10

// Store persists one-time codes.
type Store interface {
	// Exists reports whether any stored code has the given value.
	Exists(ctx context.Context, value string) (bool, error)
	// Insert stores a new code, returning ErrConflict on a uniqueness violation.
	Insert(ctx context.Context, code *Code) error
	// FindByValue returns the earliest-created code with the given value,
	// or ErrNotFound.
	FindByValue(ctx context.Context, value string) (*Code, error)
	// Delete removes a single code, returning ErrNotFound when it is gone.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByOwnerPurpose removes every code of one purpose for one owner.
	DeleteByOwnerPurpose(ctx context.Context, ownerID uuid.UUID, purpose Purpose) (int64, error)
	// PurgeExpired removes codes created at or before cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Manager implements the one-time code lifecycle.
type Manager struct {
	store  Store
	gen    *Generator
	clock  Clock
	expiry time.Duration
	logger *slog.Logger
}

// NewManager creates a manager. A nil clock uses the wall clock.
func NewManager(store Store, gen *Generator, clock Clock, expiry time.Duration, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Manager{
		store:  store,
		gen:    gen,
		clock:  clock,
		expiry: expiry,
		logger: logger,
	}
}

// Expiry returns the configured validity window.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Issue mints and persists a fresh code for owner and purpose. It does not
// deliver the code.
func (m *Manager) Issue(ctx context.Context, ownerID uuid.UUID, purpose Purpose) (*Code, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPurpose, purpose)
	}

	now := m.clock.Now()

	purged, err := m.PurgeExpired(ctx)
	if err != nil {
		return nil, err
	}
	if purged > 0 {
		m.logger.Debug("Purged expired one-time codes", "count", purged)
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		value, err := m.gen.Generate()
		if err != nil {
			return nil, err
		}

		taken, err := m.store.Exists(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("check otp uniqueness: %w", err)
		}
		if taken {
			continue
		}

		code := &Code{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			Value:     value,
			Purpose:   purpose,
			CreatedAt: now,
		}

		err = m.store.Insert(ctx, code)
		if errors.Is(err, ErrConflict) {
			m.logger.Debug("One-time code collided on insert, redrawing", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store otp: %w", err)
		}

		m.logger.Info("One-time code issued",
			"owner_id", ownerID,
			"purpose", purpose,
			"expires_at", code.ExpiresAt(m.expiry))
		return code, nil
	}

	return nil, ErrCodeSpaceExhausted
}

// Verify looks a code up by its literal value and checks its expiry. An
// expired code is returned alongside ErrExpired and is left in place.
func (m *Manager) Verify(ctx context.Context, value string) (*Code, error) {
	if value == "" {
		return nil, ErrNotFound
	}

	code, err := m.store.FindByValue(ctx, value)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}

	if !m.clock.Now().Before(code.ExpiresAt(m.expiry)) {
		return code, ErrExpired
	}
	return code, nil
}

// Consume deletes a verified code. Only one caller can consume a given
// code; the others get ErrNotFound.
func (m *Manager) Consume(ctx context.Context, code *Code) error {
	err := m.store.Delete(ctx, code.ID)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

// Revoke deletes every outstanding code of one purpose for one owner.
func (m *Manager) Revoke(ctx context.Context, ownerID uuid.UUID, purpose Purpose) (int64, error) {
	n, err := m.store.DeleteByOwnerPurpose(ctx, ownerID, purpose)
	if err != nil {
		return 0, fmt.Errorf("revoke otps: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes every expired code.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.PurgeExpired(ctx, m.clock.Now().Add(-m.expiry))
	if err != nil {
		return 0, fmt.Errorf("purge expired codes: %w", err)
	}
	return n, nil
}
