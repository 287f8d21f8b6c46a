package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/khan-rustam/sparkshift-server/internal/middleware"
	"github.com/khan-rustam/sparkshift-server/internal/models"
	"github.com/khan-rustam/sparkshift-server/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
	v    *validator.Validate
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		v:    validator.New(),
	}
}

// SendRegistrationOTP handles POST /api/auth/send-registration-otp
// @Tags Auth
// @Summary Send a registration verification code
// @Accept json
// @Produce json
// @Param body body models.SendRegistrationOTPRequest true "Email"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/send-registration-otp [post]
func (h *AuthHandler) SendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendRegistrationOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Email is required")
		return
	}

	if err := h.auth.SendRegistrationOTP(r.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeJSONError(w, http.StatusBadRequest, "email_taken", "User with this email already exists")
			return
		}
		log.Printf("Send registration OTP error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to send verification code")
		return
	}

	writeJSONMessage(w, http.StatusOK, "Verification code sent to your email")
}

// Register handles POST /api/auth/register
// @Tags Auth
// @Summary Complete registration with a verification code
// @Accept json
// @Produce json
// @Param body body models.RegisterRequest true "Registration"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "All fields are required")
		return
	}

	resp, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password, req.OTP)
	if err != nil {
		h.writeAuthError(w, err, "Server error during registration")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
// @Tags Auth
// @Summary Log in with email and password
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Email and password are required")
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// Same response for unknown email and wrong password.
			writeJSONError(w, http.StatusBadRequest, "invalid_credentials", "Invalid credentials")
			return
		}
		log.Printf("Login error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Server error during login")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Profile handles GET /api/auth/profile
// @Tags Auth
// @Summary Get the authenticated user's profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.CtxUserID).(string)
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing authenticated user")
		return
	}

	u, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		log.Printf("Profile error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Server error while fetching profile")
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// ForgotPassword handles POST /api/auth/forgot-password
// @Tags Auth
// @Summary Send a password reset code
// @Accept json
// @Produce json
// @Param body body models.ForgotPasswordRequest true "Email"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Email is required")
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		log.Printf("Password reset request error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to send OTP")
		return
	}

	writeJSONMessage(w, http.StatusOK, "OTP sent successfully")
}

// VerifyResetOTP handles POST /api/auth/verify-reset-otp
// @Tags Auth
// @Summary Verify a password reset code
// @Accept json
// @Produce json
// @Param body body models.VerifyResetOTPRequest true "Email and code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/verify-reset-otp [post]
func (h *AuthHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyResetOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Email and OTP are required")
		return
	}

	resetToken, err := h.auth.VerifyResetOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.writeAuthError(w, err, "Failed to verify OTP")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"resetToken": resetToken})
}

// ResetPassword handles POST /api/auth/reset-password
// @Tags Auth
// @Summary Apply a new password using a reset token
// @Accept json
// @Produce json
// @Param body body models.ResetPasswordRequest true "Email, new password and reset token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Email, new password and reset token are required")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.NewPassword, req.ResetToken); err != nil {
		switch {
		case errors.Is(err, services.ErrResetTokenInvalid):
			writeJSONError(w, http.StatusBadRequest, "invalid_token", "Invalid or expired reset token")
		case errors.Is(err, services.ErrUserNotFound):
			writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
		default:
			log.Printf("Password reset error: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to reset password")
		}
		return
	}

	writeJSONMessage(w, http.StatusOK, "Password reset successfully")
}

// RequestResetLink handles POST /api/auth/reset-password-request (legacy).
// @Tags Auth
// @Summary Request a password reset link token
// @Accept json
// @Produce json
// @Param body body models.ResetLinkRequest true "Email"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/auth/reset-password-request [post]
func (h *AuthHandler) RequestResetLink(w http.ResponseWriter, r *http.Request) {
	var req models.ResetLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Email is required")
		return
	}

	if err := h.auth.RequestResetLink(r.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		log.Printf("Reset link request error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Server error")
		return
	}

	writeJSONMessage(w, http.StatusOK, "Password reset link sent to email")
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		writeJSONError(w, http.StatusBadRequest, "email_taken", "User already exists")
	case errors.Is(err, services.ErrOTPNotFound):
		writeJSONError(w, http.StatusBadRequest, "otp_not_found", "No verification code found. Please request a new code.")
	case errors.Is(err, services.ErrOTPExpired):
		writeJSONError(w, http.StatusBadRequest, "otp_expired", "Verification code has expired. Please request a new code.")
	case errors.Is(err, services.ErrOTPLocked):
		writeJSONError(w, http.StatusBadRequest, "otp_locked", "Too many failed attempts. Please request a new code.")
	case errors.Is(err, services.ErrOTPMismatch):
		writeJSONError(w, http.StatusBadRequest, "otp_mismatch", "Invalid verification code")
	default:
		log.Printf("Auth error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", fallback)
	}
}
