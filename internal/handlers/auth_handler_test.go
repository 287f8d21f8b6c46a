package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/khan-rustam/sparkshift-server/internal/otp"
	"github.com/khan-rustam/sparkshift-server/internal/repository"
	"github.com/khan-rustam/sparkshift-server/internal/services"
)

type codeCapture struct {
	registration map[string]string
	reset        map[string]string
}

func newCodeCapture() *codeCapture {
	return &codeCapture{registration: make(map[string]string), reset: make(map[string]string)}
}

func (c *codeCapture) SendRegistrationOTP(email, code string) { c.registration[email] = code }
func (c *codeCapture) SendResetOTP(email, code string)        { c.reset[email] = code }

var userRows = []string{"id", "email", "name", "password_hash", "role", "reset_token", "reset_token_expires_at", "created_at"}

func newAuthTestHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, *otp.Ledger, *codeCapture) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ledger := otp.NewLedger(otp.NewMemoryStore())
	capture := newCodeCapture()
	svc := services.NewAuthService(repository.NewUserRepository(db), ledger, capture, "dev")
	return NewAuthHandler(svc), mock, ledger, capture
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestSendRegistrationOTPDispatchesCode(t *testing.T) {
	h, mock, _, capture := newAuthTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("a@b.com").
		WillReturnError(sql.ErrNoRows)

	w := postJSON(t, h.SendRegistrationOTP, "/api/auth/send-registration-otp", map[string]string{"email": "a@b.com"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Verification code sent to your email" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
	if capture.registration["a@b.com"] == "" {
		t.Fatal("expected code dispatched")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSendRegistrationOTPRejectsExistingEmail(t *testing.T) {
	h, mock, _, _ := newAuthTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow("u1", "a@b.com", "A", "hash", "user", nil, nil, time.Now().UTC()))

	w := postJSON(t, h.SendRegistrationOTP, "/api/auth/send-registration-otp", map[string]string{"email": "a@b.com"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "User with this email already exists" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestRegisterSuccess(t *testing.T) {
	h, mock, ledger, _ := newAuthTestHandler(t)

	code, err := ledger.Issue(context.Background(), otp.PurposeRegistration, "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("a@b.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	w := postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"name":     "Alice",
		"email":    "a@b.com",
		"password": "password123",
		"otp":      code,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected session token")
	}
	if resp.User.Email != "a@b.com" || resp.User.Role != "user" {
		t.Fatalf("unexpected user %+v", resp.User)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRegisterRejectsWrongCode(t *testing.T) {
	h, mock, ledger, _ := newAuthTestHandler(t)

	code, err := ledger.Issue(context.Background(), otp.PurposeRegistration, "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("a@b.com").
		WillReturnError(sql.ErrNoRows)

	w := postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "password123",
		"otp":      wrong,
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Invalid verification code" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestRegisterValidatesPayload(t *testing.T) {
	h, _, _, _ := newAuthTestHandler(t)

	// Missing OTP entirely.
	w := postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "password123",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing otp, got %d", w.Code)
	}

	// Short password.
	w = postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "short",
		"otp":      "123456",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", w.Code)
	}
}

func TestLoginSameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	h, mock, _, _ := newAuthTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("nobody@b.com").
		WillReturnError(sql.ErrNoRows)

	unknown := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email":    "nobody@b.com",
		"password": "whatever",
	})

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow("u1", "a@b.com", "A", string(hash), "user", nil, nil, time.Now().UTC()))

	wrongPass := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "wrong-password",
	})

	if unknown.Code != http.StatusBadRequest || wrongPass.Code != http.StatusBadRequest {
		t.Fatalf("expected 400/400, got %d/%d", unknown.Code, wrongPass.Code)
	}
	if unknown.Body.String() != wrongPass.Body.String() {
		t.Fatalf("responses must be indistinguishable: %q vs %q", unknown.Body.String(), wrongPass.Body.String())
	}
}

func TestForgotPasswordUnknownEmailIs404(t *testing.T) {
	h, mock, _, _ := newAuthTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("nobody@b.com").
		WillReturnError(sql.ErrNoRows)

	w := postJSON(t, h.ForgotPassword, "/api/auth/forgot-password", map[string]string{"email": "nobody@b.com"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "User not found" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestResetPasswordViaOTPToken(t *testing.T) {
	h, mock, _, capture := newAuthTestHandler(t)

	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(userRows).
			AddRow("u1", "a@b.com", "A", "old-hash", "user", nil, nil, time.Now().UTC())
	}

	// Request the reset code.
	mock.ExpectQuery("SELECT (.+) FROM users").WithArgs("a@b.com").WillReturnRows(row())
	w := postJSON(t, h.ForgotPassword, "/api/auth/forgot-password", map[string]string{"email": "a@b.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// Exchange the code for a reset token.
	w = postJSON(t, h.VerifyResetOTP, "/api/auth/verify-reset-otp", map[string]string{
		"email": "a@b.com",
		"otp":   capture.reset["a@b.com"],
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify-reset-otp: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var verifyResp struct {
		ResetToken string `json:"resetToken"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &verifyResp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if verifyResp.ResetToken == "" {
		t.Fatal("expected resetToken")
	}

	// Apply the new password.
	mock.ExpectExec("UPDATE users SET password_hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	w = postJSON(t, h.ResetPassword, "/api/auth/reset-password", map[string]string{
		"email":       "a@b.com",
		"newPassword": "new-password-1",
		"resetToken":  verifyResp.ResetToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reset-password: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Password reset successfully" {
		t.Fatalf("unexpected message %v", resp["message"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResetPasswordRejectsMissingToken(t *testing.T) {
	h, _, _, _ := newAuthTestHandler(t)

	w := postJSON(t, h.ResetPassword, "/api/auth/reset-password", map[string]string{
		"email":       "a@b.com",
		"newPassword": "new-password-1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing token, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestRequestResetLinkPersistsToken(t *testing.T) {
	h, mock, _, _ := newAuthTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(userRows).
			AddRow("u1", "a@b.com", "A", "hash", "user", nil, nil, time.Now().UTC()))
	mock.ExpectExec("UPDATE users SET reset_token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postJSON(t, h.RequestResetLink, "/api/auth/reset-password-request", map[string]string{"email": "a@b.com"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Password reset link sent to email" {
		t.Fatalf("unexpected message %v", resp["message"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
