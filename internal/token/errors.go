package token

import "errors"

var (
	// ErrInvalidToken covers signature mismatch, structural decode
	// failure, wrong token type and expiry of self-contained tokens.
	// Callers cannot tell these apart; logs may.
	ErrInvalidToken = errors.New("invalid token")

	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	// ErrTokenReused signals that an already-revoked refresh token was
	// presented again. By the time a caller sees this error, every
	// active refresh token of the owning user has been revoked.
	ErrTokenReused = errors.New("refresh token reuse detected")
)
