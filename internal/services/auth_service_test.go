package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/khan-rustam/sparkshift-server/internal/models"
	"github.com/khan-rustam/sparkshift-server/internal/otp"
	"github.com/khan-rustam/sparkshift-server/internal/repository"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return errors.New("duplicate email")
	}
	u := *user
	r.byEmail[user.Email] = &u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdatePasswordHashByEmail(ctx context.Context, email string, passwordHash string) error {
	u, ok := r.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, id string, token string, expiresAt time.Time) error {
	for _, u := range r.byEmail {
		if u.ID == id {
			u.ResetToken = &token
			u.ResetExpires = &expiresAt
			return nil
		}
	}
	return repository.ErrNotFound
}

type capturedOTP struct {
	registration map[string]string
	reset        map[string]string
}

func newCapturedOTP() *capturedOTP {
	return &capturedOTP{
		registration: make(map[string]string),
		reset:        make(map[string]string),
	}
}

func (c *capturedOTP) SendRegistrationOTP(email, code string) { c.registration[email] = code }
func (c *capturedOTP) SendResetOTP(email, code string)        { c.reset[email] = code }

func newTestAuthService() (*AuthService, *fakeUserRepo, *capturedOTP) {
	repo := newFakeUserRepo()
	notifier := newCapturedOTP()
	ledger := otp.NewLedger(otp.NewMemoryStore())
	svc := NewAuthService(repo, ledger, notifier, "test-secret")
	return svc, repo, notifier
}

func TestRegistrationFlow(t *testing.T) {
	svc, repo, notifier := newTestAuthService()
	ctx := context.Background()

	if err := svc.SendRegistrationOTP(ctx, "a@b.com"); err != nil {
		t.Fatalf("SendRegistrationOTP: %v", err)
	}
	code, ok := notifier.registration["a@b.com"]
	if !ok {
		t.Fatal("expected a registration code to be dispatched")
	}

	resp, err := svc.Register(ctx, "Alice", "a@b.com", "password123", code)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected session token")
	}
	if resp.User.Email != "a@b.com" || resp.User.Name != "Alice" {
		t.Fatalf("unexpected user payload %+v", resp.User)
	}
	if resp.User.Role != models.RoleUser {
		t.Fatalf("expected role %q, got %q", models.RoleUser, resp.User.Role)
	}

	u, err := repo.GetByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestRegisterDefaultsNameFromEmail(t *testing.T) {
	svc, _, notifier := newTestAuthService()
	ctx := context.Background()

	if err := svc.SendRegistrationOTP(ctx, "jordan@b.com"); err != nil {
		t.Fatalf("SendRegistrationOTP: %v", err)
	}
	resp, err := svc.Register(ctx, "", "jordan@b.com", "password123", notifier.registration["jordan@b.com"])
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.Name != "jordan" {
		t.Fatalf("expected name defaulted to local part, got %q", resp.User.Name)
	}
}

func TestSendRegistrationOTPRejectsTakenEmail(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	ctx := context.Background()

	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com"}

	if err := svc.SendRegistrationOTP(ctx, "a@b.com"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsRaceOnEmail(t *testing.T) {
	svc, repo, notifier := newTestAuthService()
	ctx := context.Background()

	if err := svc.SendRegistrationOTP(ctx, "a@b.com"); err != nil {
		t.Fatalf("SendRegistrationOTP: %v", err)
	}
	// Someone else claims the email between the OTP send and completion.
	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com"}

	_, err := svc.Register(ctx, "", "a@b.com", "password123", notifier.registration["a@b.com"])
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsWrongCode(t *testing.T) {
	svc, repo, notifier := newTestAuthService()
	ctx := context.Background()

	if err := svc.SendRegistrationOTP(ctx, "a@b.com"); err != nil {
		t.Fatalf("SendRegistrationOTP: %v", err)
	}
	wrong := "000000"
	if notifier.registration["a@b.com"] == wrong {
		wrong = "000001"
	}

	_, err := svc.Register(ctx, "", "a@b.com", "password123", wrong)
	if !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected ErrOTPMismatch, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "a@b.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected no user created, got %v", err)
	}
}

func TestRegisterWithoutCodeFails(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), "", "a@b.com", "password123", "123456")
	if !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound, got %v", err)
	}
}

func TestLoginIndistinguishableErrors(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com", PasswordHash: string(hash)}

	_, errUnknown := svc.Login(ctx, "nobody@b.com", "whatever")
	_, errWrongPass := svc.Login(ctx, "a@b.com", "wrong-password")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", errUnknown)
	}
	if !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrongPass)
	}
}

func TestLoginSuccessSignsToken(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com", Role: models.RoleAdmin, PasswordHash: string(hash)}

	resp, err := svc.Login(ctx, "a@b.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	token, err := jwt.Parse(resp.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		t.Fatalf("expected valid token: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != "u1" || claims["role"] != models.RoleAdmin {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestResetFlowEndToEnd(t *testing.T) {
	svc, repo, notifier := newTestAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com", PasswordHash: string(hash)}

	if err := svc.ForgotPassword(ctx, "a@b.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	code, ok := notifier.reset["a@b.com"]
	if !ok {
		t.Fatal("expected a reset code to be dispatched")
	}

	resetToken, err := svc.VerifyResetOTP(ctx, "a@b.com", code)
	if err != nil {
		t.Fatalf("VerifyResetOTP: %v", err)
	}
	if resetToken == "" {
		t.Fatal("expected reset token")
	}
	// Password untouched until ResetPassword runs.
	u, _ := repo.GetByEmail(ctx, "a@b.com")
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("old-password")); err != nil {
		t.Fatal("password changed before ResetPassword")
	}

	if err := svc.ResetPassword(ctx, "a@b.com", "new-password-1", resetToken); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	u, _ = repo.GetByEmail(ctx, "a@b.com")
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("new-password-1")); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}

	// The code was consumed by VerifyResetOTP.
	if _, err := svc.VerifyResetOTP(ctx, "a@b.com", code); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound on reuse, got %v", err)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	if err := svc.ForgotPassword(context.Background(), "nobody@b.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResetPasswordRequiresValidToken(t *testing.T) {
	svc, repo, notifier := newTestAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com", PasswordHash: string(hash)}
	repo.byEmail["c@d.com"] = &models.User{ID: "u2", Email: "c@d.com", PasswordHash: string(hash)}

	if err := svc.ResetPassword(ctx, "a@b.com", "new-password-1", "garbage"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for garbage token, got %v", err)
	}

	// A token minted for one email must not reset another account.
	if err := svc.ForgotPassword(ctx, "a@b.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token, err := svc.VerifyResetOTP(ctx, "a@b.com", notifier.reset["a@b.com"])
	if err != nil {
		t.Fatalf("VerifyResetOTP: %v", err)
	}
	if err := svc.ResetPassword(ctx, "c@d.com", "new-password-1", token); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for mismatched email, got %v", err)
	}
}

func TestResetTokenExpires(t *testing.T) {
	svc, repo, notifier := newTestAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com", PasswordHash: string(hash)}

	// Mint the token in the past so it is already expired when checked.
	svc.now = func() time.Time { return time.Now().Add(-resetOTPTokenTTL - time.Minute) }
	if err := svc.ForgotPassword(ctx, "a@b.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token, err := svc.VerifyResetOTP(ctx, "a@b.com", notifier.reset["a@b.com"])
	if err != nil {
		t.Fatalf("VerifyResetOTP: %v", err)
	}

	svc.now = time.Now
	if err := svc.ResetPassword(ctx, "a@b.com", "new-password-1", token); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for expired token, got %v", err)
	}
}

func TestRequestResetLinkPersistsToken(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	ctx := context.Background()

	repo.byEmail["a@b.com"] = &models.User{ID: "u1", Email: "a@b.com"}

	if err := svc.RequestResetLink(ctx, "a@b.com"); err != nil {
		t.Fatalf("RequestResetLink: %v", err)
	}

	u := repo.byEmail["a@b.com"]
	if u.ResetToken == nil || *u.ResetToken == "" {
		t.Fatal("expected persisted reset token")
	}
	if u.ResetExpires == nil {
		t.Fatal("expected reset token expiry")
	}
	remaining := time.Until(*u.ResetExpires)
	if remaining <= 50*time.Minute || remaining > time.Hour {
		t.Fatalf("expected roughly one hour expiry, got %v", remaining)
	}

	if err := svc.RequestResetLink(ctx, "nobody@b.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
