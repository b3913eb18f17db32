package token

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/repository"
)

// Manager owns the refresh token lifecycle: issue, single-use rotation,
// revocation, and the revoke-everything response to detected reuse.
type Manager struct {
	codec  *Codec
	tokens repository.RefreshTokenRepository
	ttl    time.Duration

	now func() time.Time // overridable in tests
}

// NewManager creates a Manager. Zero TTL falls back to 7 days.
func NewManager(codec *Codec, tokens repository.RefreshTokenRepository, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{
		codec:  codec,
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue generates a new refresh token for the user: a random jti,
// a persisted row, and the signed token string handed to the client.
func (m *Manager) Issue(ctx context.Context, userID string) (string, *domain.RefreshToken, error) {
	now := m.now()
	row := &domain.RefreshToken{
		ID:        uuid.New().String(),
		JTI:       uuid.New().String(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		Revoked:   false,
		CreatedAt: now,
	}
	if err := m.tokens.Create(ctx, row); err != nil {
		return "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	tokenString, err := m.codec.IssueRefreshToken(userID, row.JTI, row.ExpiresAt)
	if err != nil {
		return "", nil, err
	}
	return tokenString, row, nil
}

// Rotate exchanges a presented refresh token for a new one, revoking the
// old row. Exactly one concurrent rotation of the same jti can succeed;
// every other caller observes the revoked row and fails as reuse, which
// revokes all of the user's active tokens.
//
// The reuse check runs before the expiry check: a revoked token that has
// also expired is still treated as a theft signal.
func (m *Manager) Rotate(ctx context.Context, presented string) (string, *domain.RefreshToken, error) {
	jti, _, err := m.codec.ParseRefreshToken(presented)
	if err != nil {
		return "", nil, err
	}

	row, err := m.tokens.GetByJTI(ctx, jti)
	if err != nil {
		return "", nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if row == nil {
		return "", nil, ErrTokenNotFound
	}

	if row.Revoked {
		return "", nil, m.reuseDetected(ctx, row)
	}
	if row.Expired(m.now()) {
		return "", nil, ErrTokenExpired
	}

	newJTI := uuid.New().String()
	won, err := m.tokens.MarkRevoked(ctx, row.JTI, &newJTI)
	if err != nil {
		return "", nil, fmt.Errorf("revoke rotated token: %w", err)
	}
	if !won {
		// A concurrent rotation got here first.
		return "", nil, m.reuseDetected(ctx, row)
	}

	now := m.now()
	newRow := &domain.RefreshToken{
		ID:        uuid.New().String(),
		JTI:       newJTI,
		UserID:    row.UserID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		Revoked:   false,
		CreatedAt: now,
	}
	if err := m.tokens.Create(ctx, newRow); err != nil {
		return "", nil, fmt.Errorf("store rotated token: %w", err)
	}

	tokenString, err := m.codec.IssueRefreshToken(row.UserID, newJTI, newRow.ExpiresAt)
	if err != nil {
		return "", nil, err
	}
	return tokenString, newRow, nil
}

// reuseDetected is the security response to a replayed refresh token:
// force full re-authentication by revoking every active token the user
// holds, then report the reuse.
func (m *Manager) reuseDetected(ctx context.Context, row *domain.RefreshToken) error {
	if err := m.tokens.RevokeAllForUser(ctx, row.UserID); err != nil {
		return fmt.Errorf("revoke user tokens after reuse: %w", err)
	}
	return ErrTokenReused
}

// Revoke revokes a single token by jti. Idempotent; revoking an already
// revoked or unknown jti is a no-op.
func (m *Manager) Revoke(ctx context.Context, jti string) error {
	_, err := m.tokens.MarkRevoked(ctx, jti, nil)
	return err
}

// RevokeAllForUser revokes every active token of a user. Idempotent.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID string) error {
	return m.tokens.RevokeAllForUser(ctx, userID)
}
