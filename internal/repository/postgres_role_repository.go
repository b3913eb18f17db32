package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/substring/auth-backend/internal/domain"
)

// PostgresRoleRepository implements RoleRepository using PostgreSQL
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRoleRepository creates a new PostgresRoleRepository
func NewPostgresRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

// GetByName retrieves a role by name
func (r *PostgresRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	query := `SELECT id, name FROM roles WHERE name = $1`
	role := &domain.Role{}
	err := r.pool.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

// EnsureByName creates the role if absent and returns it. Safe to call
// concurrently and on every startup.
func (r *PostgresRoleRepository) EnsureByName(ctx context.Context, name string) (*domain.Role, error) {
	query := `INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, uuid.New().String(), name); err != nil {
		return nil, err
	}
	return r.GetByName(ctx, name)
}
