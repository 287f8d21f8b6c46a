// Package otp issues and verifies the one-time codes that gate
// registration and password reset. Challenges are single-use, expire
// ten minutes after issue and lock after three failed attempts.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

type Purpose string

const (
	PurposeRegistration  Purpose = "register"
	PurposePasswordReset Purpose = "reset"
)

const (
	// ChallengeTTL is how long an issued code stays verifiable.
	ChallengeTTL = 10 * time.Minute
	// MaxAttempts locks the challenge once reached.
	MaxAttempts = 3
)

// Challenge is the pending code for one (purpose, email) key. At most one
// challenge lives per key; issuing again overwrites it.
type Challenge struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Store persists pending challenges keyed by (purpose, email). A Get for a
// missing key returns (nil, nil).
type Store interface {
	Get(ctx context.Context, purpose Purpose, email string) (*Challenge, error)
	Put(ctx context.Context, purpose Purpose, email string, ch *Challenge) error
	Delete(ctx context.Context, purpose Purpose, email string) error
}

type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeNotFound
	OutcomeExpired
	OutcomeMismatch
	OutcomeLocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeLocked:
		return "locked"
	}
	return "unknown"
}

// Result carries the verification outcome. AttemptsRemaining is meaningful
// only for OutcomeMismatch.
type Result struct {
	Outcome           Outcome
	AttemptsRemaining int
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// NewLedgerWithClock is NewLedger with an injectable time source.
func NewLedgerWithClock(store Store, now func() time.Time) *Ledger {
	return &Ledger{store: store, now: now}
}

// Issue generates a fresh six-digit code for the key, overwriting any
// existing challenge and resetting the attempt counter. The code is
// returned once, for delivery.
func (l *Ledger) Issue(ctx context.Context, purpose Purpose, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	now := l.now().UTC()
	ch := &Challenge{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(ChallengeTTL),
		Attempts:  0,
	}
	if err := l.store.Put(ctx, purpose, email, ch); err != nil {
		return "", fmt.Errorf("store otp challenge: %w", err)
	}
	return code, nil
}

// Verify checks a submitted code against the pending challenge. Accepted,
// Expired and Locked all remove the challenge; Mismatch increments the
// attempt counter and reports how many tries remain.
func (l *Ledger) Verify(ctx context.Context, purpose Purpose, email string, submitted string) (Result, error) {
	ch, err := l.store.Get(ctx, purpose, email)
	if err != nil {
		return Result{}, fmt.Errorf("load otp challenge: %w", err)
	}
	if ch == nil {
		return Result{Outcome: OutcomeNotFound}, nil
	}

	if l.now().UTC().After(ch.ExpiresAt) {
		if err := l.store.Delete(ctx, purpose, email); err != nil {
			return Result{}, fmt.Errorf("delete expired challenge: %w", err)
		}
		return Result{Outcome: OutcomeExpired}, nil
	}

	if ch.Code != submitted {
		ch.Attempts++
		if ch.Attempts >= MaxAttempts {
			if err := l.store.Delete(ctx, purpose, email); err != nil {
				return Result{}, fmt.Errorf("delete locked challenge: %w", err)
			}
			return Result{Outcome: OutcomeLocked}, nil
		}
		if err := l.store.Put(ctx, purpose, email, ch); err != nil {
			return Result{}, fmt.Errorf("record failed attempt: %w", err)
		}
		return Result{Outcome: OutcomeMismatch, AttemptsRemaining: MaxAttempts - ch.Attempts}, nil
	}

	// Single use: a matching code consumes the challenge.
	if err := l.store.Delete(ctx, purpose, email); err != nil {
		return Result{}, fmt.Errorf("consume challenge: %w", err)
	}
	return Result{Outcome: OutcomeAccepted}, nil
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
