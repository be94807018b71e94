// Package otp issues, stores, verifies and expires one-time codes bound to a
// user and a purpose.
//
// A code is valid on [CreatedAt, CreatedAt+expiry). Codes are never mutated:
// they are either consumed (deleted) by the caller after a successful
// verification or left to expire. Expired codes are purged before a new code
// is drawn, so a value only stays reserved while it is live.
package otp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrNotFound is returned when no code matches the presented value.
	ErrNotFound = errors.New("invalid otp")
	// ErrExpired is returned when the code exists but is past its expiry window.
	ErrExpired = errors.New("otp has expired")
	// ErrInvalidPurpose is returned for a purpose outside the supported set.
	ErrInvalidPurpose = errors.New("invalid otp type")
	// ErrCodeSpaceExhausted is returned when no free code could be drawn.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique otp")
	// ErrTooManyRequests is returned by the Limiter when a caller is throttled.
	ErrTooManyRequests = errors.New("too many otp requests")

	// ErrConflict is returned by a Store when an insert collides with an
	// existing code. Issue retries on it and never returns it.
	ErrConflict = errors.New("otp code already in use")
)

// Purpose is the reason a code was issued.
type Purpose string

const (
	PurposeAccountVerification Purpose = "ACCOUNT_VERIFICATION"
	PurposeResetPassword       Purpose = "RESET_PASSWORD"
	PurposeChangeEmail         Purpose = "CHANGE_EMAIL_REQUEST"
)

// ParsePurpose validates a raw purpose string.
func ParsePurpose(raw string) (Purpose, error) {
	p := Purpose(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPurpose, raw)
	}
	return p, nil
}

// Valid reports whether p is one of the supported purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeAccountVerification, PurposeResetPassword, PurposeChangeEmail:
		return true
	}
	return false
}

// Label is the human readable form, e.g. "Account Verification".
func (p Purpose) Label() string {
	return cases.Title(language.English).String(strings.ToLower(strings.ReplaceAll(string(p), "_", " ")))
}

// Subject is the email subject used when delivering a code of this purpose.
func (p Purpose) Subject() string {
	switch p {
	case PurposeAccountVerification:
		return "Account Verification"
	case PurposeResetPassword:
		return "Password Reset Request"
	case PurposeChangeEmail:
		return "Email Change Request"
	}
	return p.Label()
}

// Body is the plain text email body for a code of this purpose.
func (p Purpose) Body(code string, expiry time.Duration) string {
	var lead string
	switch p {
	case PurposeResetPassword:
		lead = "Your password reset code is"
	case PurposeChangeEmail:
		lead = "Your email change verification code is"
	default:
		lead = "Your verification code is"
	}
	return fmt.Sprintf("%s: %s\nThis code will expire in %d minutes.", lead, code, int(expiry.Minutes()))
}

// Code is a persisted one-time code.
type Code struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Value     string    `json:"-"`
	Purpose   Purpose   `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiresAt returns the first instant at which the code is no longer valid.
func (c *Code) ExpiresAt(expiry time.Duration) time.Time {
	return c.CreatedAt.Add(expiry)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
