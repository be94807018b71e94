package accounts

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileInfo is the optional profile data captured at registration.
type ProfileInfo struct {
	Gender      string
	DateOfBirth *time.Time
	PhoneNumber string
}

// Registration is the input of Register.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Profile   ProfileInfo
}

// NameUpdate carries the editable account fields. Nil fields are left alone.
type NameUpdate struct {
	FirstName *string
	LastName  *string
}

// RegisterRequest is the request payload for creating an account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name" binding:"max=150"`
	LastName    string `json:"last_name" binding:"max=150"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=15"`
	Gender      string `json:"gender" binding:"omitempty,oneof=M F N"`
	// DateOfBirth is formatted YYYY-MM-DD.
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
}

// LoginRequest is the request payload for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SendOTPRequest is the request payload for send-otp and resend-verification
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Type  string `json:"type"`
}

// VerifyOTPRequest is the request payload for verifying a code
type VerifyOTPRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// ResetPasswordRequest is the request payload for resetting a password
type ResetPasswordRequest struct {
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAccountRequest is the request payload for PATCH /accounts/me
type UpdateAccountRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
}

// ChangeEmailRequest is the request payload for requesting an email change
type ChangeEmailRequest struct {
	NewEmail string `json:"new_email" binding:"required,email"`
}
