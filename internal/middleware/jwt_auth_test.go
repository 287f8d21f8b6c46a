package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	var gotUserID, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(CtxUserID).(string)
		gotRole, _ = r.Context().Value(CtxRole).(string)
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTAuth("dev")(next)

	now := time.Now()
	token := signToken(t, "dev", jwt.MapClaims{
		"sub":   "u1",
		"email": "a@b.com",
		"role":  "admin",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if gotUserID != "u1" || gotRole != "admin" {
		t.Fatalf("expected claims on context, got %q/%q", gotUserID, gotRole)
	}
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	handler := JWTAuth("dev")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(""))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	handler := JWTAuth("dev")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	now := time.Now()
	token := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "u1",
		"exp": now.Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(token))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	handler := JWTAuth("dev")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	token := signToken(t, "dev", jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(token))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuthRejectsTokenWithoutSubject(t *testing.T) {
	handler := JWTAuth("dev")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	token := signToken(t, "dev", jwt.MapClaims{
		"email": "a@b.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(token))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
