package repository

import (
	"context"

	"github.com/substring/auth-backend/internal/domain"
)

// Reads return (nil, nil) when the record is absent; "not found" is not
// an error at this layer.

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user together with its role assignments
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID, roles included
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail retrieves a user by email (case-insensitive), roles included
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update updates mutable user fields (name, enabled)
	Update(ctx context.Context, user *domain.User) error
	// Delete deletes a user
	Delete(ctx context.Context, id string) error
	// List retrieves all users
	List(ctx context.Context) ([]*domain.User, error)
	// ExistsByEmail checks if a user exists with the given email
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RoleRepository defines the interface for role data access
type RoleRepository interface {
	// GetByName retrieves a role by name
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	// EnsureByName creates the role if absent and returns it. Idempotent,
	// used by the startup seeding step.
	EnsureByName(ctx context.Context, name string) (*domain.Role, error)
}

// RefreshTokenRepository defines the interface for refresh token data access
type RefreshTokenRepository interface {
	// Create persists a new refresh token row
	Create(ctx context.Context, token *domain.RefreshToken) error
	// GetByJTI retrieves a refresh token by its JTI
	GetByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error)
	// MarkRevoked flips revoked false->true for the given JTI, recording
	// the rotation successor when there is one. Returns true only for the
	// caller that performed the flip: concurrent rotations of the same JTI
	// see false and must treat the token as reused.
	MarkRevoked(ctx context.Context, jti string, replacedBy *string) (bool, error)
	// RevokeAllForUser revokes every active token of a user. Idempotent.
	RevokeAllForUser(ctx context.Context, userID string) error
}
