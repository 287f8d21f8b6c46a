package services

import "errors"

var (
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by reset flows for an unknown email.
	ErrUserNotFound = errors.New("user not found")
	// ErrOTPNotFound means no pending code exists for the key.
	ErrOTPNotFound = errors.New("no verification code found")
	// ErrOTPExpired means the code's ten-minute window has passed.
	ErrOTPExpired = errors.New("verification code has expired")
	// ErrOTPMismatch means the submitted code is wrong but attempts remain.
	ErrOTPMismatch = errors.New("invalid verification code")
	// ErrOTPLocked means the third failed attempt consumed the challenge.
	ErrOTPLocked = errors.New("too many failed attempts")
	// ErrResetTokenInvalid means the reset token is missing, expired, or
	// bound to a different email.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)
