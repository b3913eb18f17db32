package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/substring/auth-backend/internal/domain"
)

// PostgresRefreshTokenRepository implements RefreshTokenRepository using PostgreSQL
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenRepository creates a new PostgresRefreshTokenRepository
func NewPostgresRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

// Create persists a new refresh token row
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, jti, user_id, issued_at, expires_at, revoked, replaced_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.JTI,
		token.UserID,
		token.IssuedAt,
		token.ExpiresAt,
		token.Revoked,
		token.ReplacedBy,
		token.CreatedAt,
	)
	return err
}

// GetByJTI retrieves a refresh token by its JTI
func (r *PostgresRefreshTokenRepository) GetByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, jti, user_id, issued_at, expires_at, revoked, replaced_by, created_at
		FROM refresh_tokens
		WHERE jti = $1
	`
	token := &domain.RefreshToken{}
	err := r.pool.QueryRow(ctx, query, jti).Scan(
		&token.ID,
		&token.JTI,
		&token.UserID,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.Revoked,
		&token.ReplacedBy,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// MarkRevoked flips revoked false->true for the given JTI. The WHERE
// clause on revoked makes this a compare-and-set: of any number of
// concurrent callers exactly one sees a row updated.
func (r *PostgresRefreshTokenRepository) MarkRevoked(ctx context.Context, jti string, replacedBy *string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, replaced_by = COALESCE($2, replaced_by)
		WHERE jti = $1 AND revoked = FALSE
	`
	tag, err := r.pool.Exec(ctx, query, jti, replacedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllForUser revokes every active token of a user
func (r *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
