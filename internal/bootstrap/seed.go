package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/repository"
)

// SeedRoles ensures the closed role set exists before the service
// accepts traffic. Idempotent, safe to run on every startup and from
// multiple replicas concurrently.
func SeedRoles(ctx context.Context, roles repository.RoleRepository, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	for _, name := range domain.DefaultRoles {
		role, err := roles.EnsureByName(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
		log.Info("role ready", zap.String("role", role.Name), zap.String("role_id", role.ID))
	}

	return nil
}
