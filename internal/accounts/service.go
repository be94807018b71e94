// Package accounts implements registration, password login and the
// one-time-code flows built on it: account verification, password reset and
// email change.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/email"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/otp"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/session"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account is not active")
	ErrAlreadyActive      = errors.New("account is already active")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrWrongPurpose       = errors.New("invalid otp type")
	ErrNoPendingEmail     = errors.New("no email change pending")
	ErrEmailDelivery      = errors.New("failed to send email")
)

// VerifyResult is the outcome of VerifyOTP. Session is set only when an
// account was activated.
type VerifyResult struct {
	Purpose otp.Purpose
	User    *User
	Session *session.Session
}

// Service defines the account service interface
type Service interface {
	Register(ctx context.Context, reg Registration) (*User, error)
	Login(ctx context.Context, email, password string) (*User, *session.Session, error)
	Logout(ctx context.Context, sessionID string) error
	SendOTP(ctx context.Context, email string, purpose otp.Purpose) error
	ResendVerification(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, code string) (*VerifyResult, error)
	ActivateAccount(ctx context.Context, code string) (*VerifyResult, error)
	ResetPassword(ctx context.Context, code, newPassword string) error
	Me(ctx context.Context, userID uuid.UUID) (*User, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, update NameUpdate) (*User, error)
	RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error
	ConfirmEmailChange(ctx context.Context, userID uuid.UUID, code string) (*User, error)
	// OTPExpiry is the validity window of issued codes.
	OTPExpiry() time.Duration
}

type service struct {
	users    Repository
	codes    *otp.Manager
	limiter  *otp.Limiter
	sender   email.Sender
	sessions session.Manager
	pending  PendingEmails
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the account service. A nil limiter disables throttling
// of code requests.
func NewService(users Repository, codes *otp.Manager, limiter *otp.Limiter, sender email.Sender,
	sessions session.Manager, pending PendingEmails, logger *slog.Logger) Service {
	return &service{
		users:    users,
		codes:    codes,
		limiter:  limiter,
		sender:   sender,
		sessions: sessions,
		pending:  pending,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidatePassword applies the password rules.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: this password is too short, it must contain at least %d characters", ErrWeakPassword, MinPasswordLength)
	}
	if strings.TrimLeft(password, "0123456789") == "" {
		return fmt.Errorf("%w: this password is entirely numeric", ErrWeakPassword)
	}
	return nil
}

func (s *service) OTPExpiry() time.Duration {
	return s.codes.Expiry()
}

func (s *service) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := ValidatePassword(reg.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(reg.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user, reg.Profile); err != nil {
		return nil, err
	}
	s.logger.Info("Account created", "user_id", user.ID)

	if err := s.deliver(ctx, user.ID, user.Email, otp.PurposeAccountVerification); err != nil {
		return user, err
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, emailAddr, password string) (*User, *session.Session, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(emailAddr))
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if !user.IsActive {
		return user, nil, ErrInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID, user.Email)
	if err != nil {
		return nil, nil, err
	}
	return user, sess, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// SendOTP mails a code to the account's own address. Email change codes
// are only issued by RequestEmailChange, to the new address.
func (s *service) SendOTP(ctx context.Context, emailAddr string, purpose otp.Purpose) error {
	if purpose == otp.PurposeChangeEmail {
		return ErrWrongPurpose
	}
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(emailAddr))
	if err != nil {
		return err
	}
	return s.deliver(ctx, user.ID, user.Email, purpose)
}

// ResendVerification silently succeeds for an unknown address.
func (s *service) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(emailAddr))
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsActive {
		return ErrAlreadyActive
	}

	if err := s.throttle(ctx, user.ID, otp.PurposeAccountVerification); err != nil {
		return err
	}
	if _, err := s.codes.Revoke(ctx, user.ID, otp.PurposeAccountVerification); err != nil {
		return err
	}
	return s.issueAndSend(ctx, user.ID, user.Email, otp.PurposeAccountVerification)
}

func (s *service) VerifyOTP(ctx context.Context, value string) (*VerifyResult, error) {
	code, err := s.codes.Verify(ctx, value)
	if err != nil {
		return nil, err
	}

	switch code.Purpose {
	case otp.PurposeAccountVerification:
		return s.activate(ctx, code)
	case otp.PurposeResetPassword, otp.PurposeChangeEmail:
		// The code stays live for the reset or confirm call.
		return &VerifyResult{Purpose: code.Purpose}, nil
	default:
		if err := s.codes.Consume(ctx, code); err != nil {
			return nil, err
		}
		return &VerifyResult{Purpose: code.Purpose}, nil
	}
}

func (s *service) ActivateAccount(ctx context.Context, value string) (*VerifyResult, error) {
	code, err := s.codes.Verify(ctx, value)
	if err != nil {
		return nil, err
	}
	if code.Purpose != otp.PurposeAccountVerification {
		return nil, ErrWrongPurpose
	}
	return s.activate(ctx, code)
}

// activate consumes the code before activating, so a code can activate at
// most once even under concurrent requests.
func (s *service) activate(ctx context.Context, code *otp.Code) (*VerifyResult, error) {
	user, err := s.users.FindByID(ctx, code.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Consume(ctx, code); err != nil {
		return nil, err
	}
	if err := s.users.Activate(ctx, user.ID); err != nil {
		return nil, err
	}
	user.IsActive = true
	s.resetThrottle(ctx, user.ID, code.Purpose)

	sess, err := s.sessions.Create(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account activated", "user_id", user.ID)
	return &VerifyResult{Purpose: code.Purpose, User: user, Session: sess}, nil
}

func (s *service) ResetPassword(ctx context.Context, value, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	code, err := s.codes.Verify(ctx, value)
	if err != nil {
		return err
	}
	if code.Purpose != otp.PurposeResetPassword {
		return ErrWrongPurpose
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// Consume first: of two requests racing with one code only the one that
	// deletes it may set a password.
	if err := s.codes.Consume(ctx, code); err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, code.OwnerID, string(hash)); err != nil {
		return err
	}
	s.resetThrottle(ctx, code.OwnerID, code.Purpose)

	if err := s.sessions.DeleteAllForUser(ctx, code.OwnerID); err != nil {
		s.logger.Warn("Failed to revoke sessions after password reset", "user_id", code.OwnerID, "error", err)
	}

	s.logger.Info("Password reset", "user_id", code.OwnerID)
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *service) UpdateMe(ctx context.Context, userID uuid.UUID, update NameUpdate) (*User, error) {
	if update.FirstName != nil {
		v := strings.TrimSpace(*update.FirstName)
		update.FirstName = &v
	}
	if update.LastName != nil {
		v := strings.TrimSpace(*update.LastName)
		update.LastName = &v
	}
	return s.users.UpdateNames(ctx, userID, update)
}

// RequestEmailChange sends a CHANGE_EMAIL_REQUEST code to the new address
// and remembers it until the code expires.
func (s *service) RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error {
	newEmail = NormalizeEmail(newEmail)

	if _, err := s.users.FindByEmail(ctx, newEmail); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	if err := s.throttle(ctx, userID, otp.PurposeChangeEmail); err != nil {
		return err
	}
	if _, err := s.codes.Revoke(ctx, userID, otp.PurposeChangeEmail); err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, userID, otp.PurposeChangeEmail)
	if err != nil {
		return err
	}
	pending := PendingEmail{Email: newEmail, CodeID: code.ID}
	if err := s.pending.Put(ctx, userID, pending, s.codes.Expiry()); err != nil {
		return fmt.Errorf("store pending email: %w", err)
	}
	return s.send(ctx, userID, newEmail, code)
}

func (s *service) ConfirmEmailChange(ctx context.Context, userID uuid.UUID, value string) (*User, error) {
	code, err := s.codes.Verify(ctx, value)
	if err != nil {
		return nil, err
	}
	// A code issued to someone else reads as unknown.
	if code.OwnerID != userID {
		return nil, otp.ErrNotFound
	}
	if code.Purpose != otp.PurposeChangeEmail {
		return nil, ErrWrongPurpose
	}

	pending, err := s.pending.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Only the code mailed to the pending address proves control of it.
	if pending.CodeID != code.ID {
		return nil, otp.ErrNotFound
	}

	if err := s.codes.Consume(ctx, code); err != nil {
		return nil, err
	}
	user, err := s.users.UpdateEmail(ctx, userID, pending.Email)
	if err != nil {
		return nil, err
	}
	s.resetThrottle(ctx, userID, code.Purpose)
	if err := s.pending.Delete(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear pending email", "user_id", userID, "error", err)
	}

	s.logger.Info("Email changed", "user_id", userID)
	return user, nil
}

// deliver throttles, issues and sends one code.
func (s *service) deliver(ctx context.Context, userID uuid.UUID, to string, purpose otp.Purpose) error {
	if err := s.throttle(ctx, userID, purpose); err != nil {
		return err
	}
	return s.issueAndSend(ctx, userID, to, purpose)
}

func (s *service) throttle(ctx context.Context, userID uuid.UUID, purpose otp.Purpose) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Allow(ctx, userID, purpose)
}

// resetThrottle clears the request counters once a code has been used.
func (s *service) resetThrottle(ctx context.Context, userID uuid.UUID, purpose otp.Purpose) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, userID, purpose); err != nil {
		s.logger.Warn("Failed to reset otp throttle", "user_id", userID, "purpose", purpose, "error", err)
	}
}

func (s *service) issueAndSend(ctx context.Context, userID uuid.UUID, to string, purpose otp.Purpose) error {
	code, err := s.codes.Issue(ctx, userID, purpose)
	if err != nil {
		return err
	}
	return s.send(ctx, userID, to, code)
}

func (s *service) send(ctx context.Context, userID uuid.UUID, to string, code *otp.Code) error {
	purpose := code.Purpose
	if err := s.sender.Send(ctx, to, purpose.Subject(), purpose.Body(code.Value, s.codes.Expiry())); err != nil {
		s.logger.Error("Failed to send one-time code", "user_id", userID, "purpose", purpose, "error", err)
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	return nil
}
