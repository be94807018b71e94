package accounts

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/otp"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/session"
)

// Handler handles account and authentication HTTP requests
type Handler struct {
	service Service
	cookie  config.SessionConfig
	logger  *slog.Logger
}

// NewHandler creates a new account handler
func NewHandler(service Service, cookie config.SessionConfig, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		cookie:  cookie,
		logger:  logger,
	}
}

// RegisterAuthRoutes mounts the public authentication endpoints.
func (h *Handler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.POST("/send-otp", h.SendOTP)
	rg.POST("/resend-verification", h.ResendVerification)
	rg.POST("/verify-otp", h.VerifyOTP)
	rg.POST("/activate-account", h.ActivateAccount)
	rg.POST("/reset-password", h.ResetPassword)
}

// RegisterAccountRoutes mounts the endpoints of the signed-in account.
func (h *Handler) RegisterAccountRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.PATCH("/me", h.UpdateMe)
	rg.POST("/me/email", h.RequestEmailChange)
	rg.POST("/me/email/confirm", h.ConfirmEmailChange)
}

// Register handles POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg := Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Profile: ProfileInfo{
			Gender:      req.Gender,
			PhoneNumber: req.PhoneNumber,
		},
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_of_birth must be YYYY-MM-DD"})
			return
		}
		reg.Profile.DateOfBirth = &dob
	}

	user, err := h.service.Register(c.Request.Context(), reg)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    user,
		"message": "Account created successfully. Please check your email for verification code.",
	})
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, sess, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInactive) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":                 "Account is not active. Please verify your email using the OTP sent to your email address.",
			"requires_verification": true,
			"email":                 user.Email,
		})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, sess)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"email":      user.Email,
		"session_id": sess.ID,
	})
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(h.cookie.CookieName)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "already logged out"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("Failed to delete session", "error", err)
	}

	c.SetCookie(h.cookie.CookieName, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// SendOTP handles POST /auth/send-otp
func (h *Handler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purpose := otp.PurposeAccountVerification
	if req.Type != "" {
		p, err := otp.ParsePurpose(req.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP type"})
			return
		}
		purpose = p
	}

	if err := h.service.SendOTP(c.Request.Context(), req.Email, purpose); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email does not exist"})
			return
		}
		h.fail(c, err)
		return
	}

	minutes := int(h.service.OTPExpiry().Minutes())
	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("OTP sent successfully. It will expire in %d minutes.", minutes),
		"expiry_minutes": minutes,
	})
}

// ResendVerification handles POST /auth/resend-verification
func (h *Handler) ResendVerification(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	if err := h.service.ResendVerification(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a verification code has been sent"})
}

// VerifyOTP handles POST /auth/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.VerifyOTP(c.Request.Context(), req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondVerified(c, result)
}

// ActivateAccount handles POST /auth/activate-account
func (h *Handler) ActivateAccount(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.ActivateAccount(c.Request.Context(), req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondVerified(c, result)
}

func (h *Handler) respondVerified(c *gin.Context, result *VerifyResult) {
	if result.Session == nil {
		c.JSON(http.StatusOK, gin.H{"message": "OTP verified successfully", "type": result.Purpose})
		return
	}

	h.setSessionCookie(c, result.Session)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Account activated successfully",
		"user_id":    result.User.ID,
		"email":      result.User.Email,
		"session_id": result.Session.ID,
	})
}

// ResetPassword handles POST /auth/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP and new password are required"})
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.OTP, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// Me handles GET /accounts/me
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PATCH /accounts/me
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.UpdateMe(c.Request.Context(), userID, NameUpdate{FirstName: req.FirstName, LastName: req.LastName})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RequestEmailChange handles POST /accounts/me/email
func (h *Handler) RequestEmailChange(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.RequestEmailChange(c.Request.Context(), userID, req.NewEmail); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent to your new email address"})
}

// ConfirmEmailChange handles POST /accounts/me/email/confirm
func (h *Handler) ConfirmEmailChange(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.ConfirmEmailChange(c.Request.Context(), userID, req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) setSessionCookie(c *gin.Context, sess *session.Session) {
	c.SetCookie(h.cookie.CookieName, sess.ID, h.cookie.MaxAge, "/", "", h.cookie.Secure, true)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, otp.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP"})
	case errors.Is(err, otp.ErrExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired. Please request a new one."})
	case errors.Is(err, ErrWrongPurpose), errors.Is(err, otp.ErrInvalidPurpose):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP type"})
	case errors.Is(err, otp.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists", "field": "email"})
	case errors.Is(err, ErrAlreadyActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account is already active"})
	case errors.Is(err, ErrNoPendingEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No email change is pending"})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, ErrEmailDelivery):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification code"})
	default:
		h.logger.Error("Account request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
