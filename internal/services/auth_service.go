package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/khan-rustam/sparkshift-server/internal/models"
	"github.com/khan-rustam/sparkshift-server/internal/otp"
	"github.com/khan-rustam/sparkshift-server/internal/repository"
)

const (
	sessionTokenTTL   = 24 * time.Hour
	resetLinkTokenTTL = 1 * time.Hour
	resetOTPTokenTTL  = 15 * time.Minute

	purposeResetClaim = "password_reset"
	purposeLinkClaim  = "reset_link"
)

// OTPNotifier is the slice of the notification dispatcher the auth flows need.
type OTPNotifier interface {
	SendRegistrationOTP(email, code string)
	SendResetOTP(email, code string)
}

// AuthService orchestrates the OTP-gated credential flows: registration,
// login and password reset. It owns no state beyond its collaborators.
type AuthService struct {
	users     repository.UserRepository
	ledger    *otp.Ledger
	notifier  OTPNotifier
	jwtSecret []byte
	now       func() time.Time
}

func NewAuthService(users repository.UserRepository, ledger *otp.Ledger, notifier OTPNotifier, jwtSecret string) *AuthService {
	return &AuthService{
		users:     users,
		ledger:    ledger,
		notifier:  notifier,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// SendRegistrationOTP issues a verification code for a new email and queues
// it for delivery. Registered emails are rejected up front.
func (s *AuthService) SendRegistrationOTP(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	code, err := s.ledger.Issue(ctx, otp.PurposeRegistration, email)
	if err != nil {
		return err
	}
	s.notifier.SendRegistrationOTP(email, code)
	return nil
}

// Register completes registration: the email must still be free (the
// existence check runs again here to close the race with SendRegistrationOTP)
// and the submitted code must verify. On success the user row is created and
// a session token returned.
func (s *AuthService) Register(ctx context.Context, name, email, password, code string) (*models.AuthResponse, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.verifyOTP(ctx, otp.PurposeRegistration, email, code); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if name == "" {
		name = localPart(email)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.signSessionToken(u)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: authUser(u)}, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.signSessionToken(u)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: authUser(u)}, nil
}

// Profile returns the user for an authenticated id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// ForgotPassword issues a password-reset code for an existing account and
// queues it for delivery.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	code, err := s.ledger.Issue(ctx, otp.PurposePasswordReset, email)
	if err != nil {
		return err
	}
	s.notifier.SendResetOTP(email, code)
	return nil
}

// VerifyResetOTP checks the reset code and, when accepted, mints the
// short-lived token that authorizes the actual password change. The
// password itself is untouched here.
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	if err := s.verifyOTP(ctx, otp.PurposePasswordReset, email, code); err != nil {
		return "", err
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"email":   email,
		"purpose": purposeResetClaim,
		"iat":     now.Unix(),
		"exp":     now.Add(resetOTPTokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return token, nil
}

// ResetPassword stores a new password digest. The reset token minted by
// VerifyResetOTP is required and must be bound to the same email; applying
// a reset without a valid token is refused.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword, resetToken string) error {
	if err := s.checkResetToken(resetToken, email); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePasswordHashByEmail(ctx, email, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RequestResetLink is the legacy link-token reset path: a one-hour signed
// token is persisted on the user row. Delivering the link is out of scope.
func (s *AuthService) RequestResetLink(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(resetLinkTokenTTL)
	claims := jwt.MapClaims{
		"sub":     u.ID,
		"purpose": purposeLinkClaim,
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return fmt.Errorf("sign reset link token: %w", err)
	}

	if err := s.users.SetResetToken(ctx, u.ID, token, expiresAt); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}
	return nil
}

func (s *AuthService) verifyOTP(ctx context.Context, purpose otp.Purpose, email, code string) error {
	res, err := s.ledger.Verify(ctx, purpose, email, code)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case otp.OutcomeAccepted:
		return nil
	case otp.OutcomeNotFound:
		return ErrOTPNotFound
	case otp.OutcomeExpired:
		return ErrOTPExpired
	case otp.OutcomeLocked:
		return ErrOTPLocked
	default:
		return ErrOTPMismatch
	}
}

func (s *AuthService) signSessionToken(u *models.User) (string, error) {
	now := s.now().UTC()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  u.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(sessionTokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (s *AuthService) checkResetToken(tokenString, email string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || token == nil || !token.Valid {
		return ErrResetTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrResetTokenInvalid
	}
	purpose, _ := claims["purpose"].(string)
	boundEmail, _ := claims["email"].(string)
	if purpose != purposeResetClaim || boundEmail != email {
		return ErrResetTokenInvalid
	}
	return nil
}

func authUser(u *models.User) models.AuthUser {
	return models.AuthUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
