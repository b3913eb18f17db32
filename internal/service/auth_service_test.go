package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/dto"
	"github.com/substring/auth-backend/internal/hash"
	"github.com/substring/auth-backend/internal/token"
)

// mockUserRepository is an in-memory UserRepository
type mockUserRepository struct {
	users      map[string]*domain.User
	emailIndex map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:      make(map[string]*domain.User),
		emailIndex: make(map[string]*domain.User),
	}
}

func (r *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.users[user.ID] = user
	r.emailIndex[user.Email] = user
	return nil
}

func (r *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.users[id], nil
}

func (r *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.emailIndex[domain.NormalizeEmail(email)], nil
}

func (r *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.users[user.ID] = user
	r.emailIndex[user.Email] = user
	return nil
}

func (r *mockUserRepository) Delete(ctx context.Context, id string) error {
	user := r.users[id]
	if user != nil {
		delete(r.emailIndex, user.Email)
		delete(r.users, id)
	}
	return nil
}

func (r *mockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := r.emailIndex[domain.NormalizeEmail(email)]
	return ok, nil
}

// mockRoleRepository serves the seeded closed role set
type mockRoleRepository struct {
	roles map[string]*domain.Role
}

func newMockRoleRepository() *mockRoleRepository {
	return &mockRoleRepository{
		roles: map[string]*domain.Role{
			domain.RoleAdmin: {ID: "role-admin-id", Name: domain.RoleAdmin},
			domain.RoleGuest: {ID: "role-guest-id", Name: domain.RoleGuest},
		},
	}
}

func (r *mockRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.roles[name], nil
}

func (r *mockRoleRepository) EnsureByName(ctx context.Context, name string) (*domain.Role, error) {
	if role, ok := r.roles[name]; ok {
		return role, nil
	}
	role := &domain.Role{ID: "role-" + name, Name: name}
	r.roles[name] = role
	return role, nil
}

// mockTokenRepository mirrors the Postgres compare-and-set semantics
type mockTokenRepository struct {
	mu   sync.Mutex
	rows map[string]*domain.RefreshToken
}

func newMockTokenRepository() *mockTokenRepository {
	return &mockTokenRepository{rows: make(map[string]*domain.RefreshToken)}
}

func (r *mockTokenRepository) Create(ctx context.Context, tok *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tok
	r.rows[tok.JTI] = &cp
	return nil
}

func (r *mockTokenRepository) GetByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[jti]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *mockTokenRepository) MarkRevoked(ctx context.Context, jti string, replacedBy *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[jti]
	if !ok || row.Revoked {
		return false, nil
	}
	row.Revoked = true
	if replacedBy != nil {
		row.ReplacedBy = replacedBy
	}
	return true, nil
}

func (r *mockTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID {
			row.Revoked = true
		}
	}
	return nil
}

func newTestService(t *testing.T) (AuthService, *mockUserRepository, *mockTokenRepository) {
	t.Helper()

	userRepo := newMockUserRepository()
	tokenRepo := newMockTokenRepository()
	codec := token.NewCodec(&token.CodecConfig{
		Secret:         "test-secret-key",
		Issuer:         "auth-backend-test",
		AccessTokenTTL: 15 * time.Minute,
	})
	mgr := token.NewManager(codec, tokenRepo, 24*time.Hour)

	svc := NewAuthService(
		userRepo,
		newMockRoleRepository(),
		hash.NewBcrypt(4), // minimum cost for fast tests
		codec,
		mgr,
		nil,
		&AuthServiceConfig{DefaultRole: domain.RoleGuest},
		nil,
	)
	return svc, userRepo, tokenRepo
}

func TestAuthService_Register(t *testing.T) {
	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	t.Run("successful registration", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "Test@Example.com",
			Password: "Password1!",
			Name:     "Test User",
		}

		user, err := svc.Register(ctx, req)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if user.Email != "test@example.com" {
			t.Errorf("Email = %v, want normalized test@example.com", user.Email)
		}
		if !user.HasRole(domain.RoleGuest) {
			t.Errorf("Roles = %v, want default %v", user.RoleNames(), domain.RoleGuest)
		}
		if !user.Enabled {
			t.Error("new user should be enabled")
		}
		if user.PasswordHash == req.Password {
			t.Error("password stored in plaintext")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "test@example.com",
			Password: "Password2!",
			Name:     "Another User",
		}

		if _, err := svc.Register(ctx, req); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Register() error = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("duplicate email different case", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "TEST@EXAMPLE.COM",
			Password: "Password2!",
			Name:     "Case User",
		}

		if _, err := svc.Register(ctx, req); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Register() error = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "weak@example.com",
			Password: "alllowercase",
			Name:     "Weak User",
		}

		if _, err := svc.Register(ctx, req); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("Register() error = %v, want ErrWeakPassword", err)
		}
		if _, ok := userRepo.emailIndex["weak@example.com"]; ok {
			t.Error("user created despite weak password")
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "login@example.com",
		Password: "Password1!",
		Name:     "Login User",
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	t.Run("successful login", func(t *testing.T) {
		resp, err := svc.Login(ctx, &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "Password1!",
		})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		if resp.AccessToken == "" {
			t.Error("AccessToken is empty")
		}
		if resp.RefreshToken == "" {
			t.Error("RefreshToken is empty")
		}
		if resp.TokenType != "Bearer" {
			t.Errorf("TokenType = %v, want Bearer", resp.TokenType)
		}
		if resp.ExpiresIn != int64((15 * time.Minute).Seconds()) {
			t.Errorf("ExpiresIn = %d, want 900", resp.ExpiresIn)
		}
		if resp.User.Email != "login@example.com" {
			t.Errorf("User.Email = %v, want login@example.com", resp.User.Email)
		}
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, errWrongPass := svc.Login(ctx, &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "WrongPassword1!",
		})
		_, errUnknown := svc.Login(ctx, &dto.LoginRequest{
			Email:    "nobody@example.com",
			Password: "Password1!",
		})

		if !errors.Is(errWrongPass, ErrInvalidCredentials) {
			t.Errorf("wrong password error = %v, want ErrInvalidCredentials", errWrongPass)
		}
		if !errors.Is(errUnknown, ErrInvalidCredentials) {
			t.Errorf("unknown email error = %v, want ErrInvalidCredentials", errUnknown)
		}
	})

	t.Run("disabled account", func(t *testing.T) {
		user := userRepo.emailIndex["login@example.com"]
		user.Enabled = false
		defer func() { user.Enabled = true }()

		if _, err := svc.Login(ctx, &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "Password1!",
		}); !errors.Is(err, ErrAccountDisabled) {
			t.Errorf("Login() error = %v, want ErrAccountDisabled", err)
		}
	})
}

func TestAuthService_Refresh(t *testing.T) {
	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "refresh@example.com",
		Password: "Password1!",
		Name:     "Refresh User",
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	loginResp, err := svc.Login(ctx, &dto.LoginRequest{
		Email:    "refresh@example.com",
		Password: "Password1!",
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	t.Run("successful refresh rotates the token", func(t *testing.T) {
		resp, err := svc.Refresh(ctx, loginResp.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if resp.RefreshToken == loginResp.RefreshToken {
			t.Error("Refresh() did not rotate the refresh token")
		}
		if resp.AccessToken == "" {
			t.Error("AccessToken is empty")
		}

		// The consumed token is now a reuse signal
		if _, err := svc.Refresh(ctx, loginResp.RefreshToken); !errors.Is(err, token.ErrTokenReused) {
			t.Errorf("Refresh(replayed) error = %v, want ErrTokenReused", err)
		}

		// And the rotated descendant died with it
		if _, err := svc.Refresh(ctx, resp.RefreshToken); !errors.Is(err, token.ErrTokenReused) {
			t.Errorf("Refresh(descendant) error = %v, want ErrTokenReused", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := svc.Refresh(ctx, "not-a-token"); !errors.Is(err, token.ErrInvalidToken) {
			t.Errorf("Refresh() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("disabled account cannot refresh", func(t *testing.T) {
		resp, err := svc.Login(ctx, &dto.LoginRequest{
			Email:    "refresh@example.com",
			Password: "Password1!",
		})
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		user := userRepo.emailIndex["refresh@example.com"]
		user.Enabled = false
		defer func() { user.Enabled = true }()

		if _, err := svc.Refresh(ctx, resp.RefreshToken); !errors.Is(err, ErrAccountDisabled) {
			t.Errorf("Refresh() error = %v, want ErrAccountDisabled", err)
		}
	})

	t.Run("refreshed roles come from storage", func(t *testing.T) {
		resp, err := svc.Login(ctx, &dto.LoginRequest{
			Email:    "refresh@example.com",
			Password: "Password1!",
		})
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		// Promote the user after the pair was issued
		user := userRepo.emailIndex["refresh@example.com"]
		user.Roles = append(user.Roles, domain.Role{ID: "role-admin-id", Name: domain.RoleAdmin})

		refreshed, err := svc.Refresh(ctx, resp.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}

		found := false
		for _, r := range refreshed.User.Roles {
			if r == domain.RoleAdmin {
				found = true
			}
		}
		if !found {
			t.Errorf("refreshed roles = %v, want to include %v", refreshed.User.Roles, domain.RoleAdmin)
		}
	})
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "logout@example.com",
		Password: "Password1!",
		Name:     "Logout User",
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	resp, err := svc.Login(ctx, &dto.LoginRequest{
		Email:    "logout@example.com",
		Password: "Password1!",
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := svc.Logout(ctx, resp.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	// Second logout of the same token is a no-op
	if err := svc.Logout(ctx, resp.RefreshToken); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}

	// The revoked token cannot be rotated; logout revocation is not reuse
	// of a rotated token, but presenting it is still flagged
	if _, err := svc.Refresh(ctx, resp.RefreshToken); !errors.Is(err, token.ErrTokenReused) {
		t.Errorf("Refresh(after logout) error = %v, want ErrTokenReused", err)
	}
}

func TestAuthService_LogoutAll(t *testing.T) {
	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "all@example.com",
		Password: "Password1!",
		Name:     "All User",
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	first, err := svc.Login(ctx, &dto.LoginRequest{Email: "all@example.com", Password: "Password1!"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	second, err := svc.Login(ctx, &dto.LoginRequest{Email: "all@example.com", Password: "Password1!"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	user := userRepo.emailIndex["all@example.com"]
	if err := svc.LogoutAll(ctx, user.ID); err != nil {
		t.Fatalf("LogoutAll() error = %v", err)
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); err == nil {
		t.Error("Refresh(first) succeeded after LogoutAll")
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); err == nil {
		t.Error("Refresh(second) succeeded after LogoutAll")
	}
}

func TestAuthService_UpdateUser(t *testing.T) {
	svc, userRepo, tokenRepo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "update@example.com",
		Password: "Password1!",
		Name:     "Before",
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "update@example.com", Password: "Password1!"}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	user := userRepo.emailIndex["update@example.com"]

	t.Run("rename", func(t *testing.T) {
		updated, err := svc.UpdateUser(ctx, user.ID, &dto.UpdateUserRequest{Name: "After"})
		if err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
		if updated.Name != "After" {
			t.Errorf("Name = %v, want After", updated.Name)
		}
	})

	t.Run("disable revokes tokens", func(t *testing.T) {
		disabled := false
		if _, err := svc.UpdateUser(ctx, user.ID, &dto.UpdateUserRequest{Name: "After", Enabled: &disabled}); err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}

		for _, row := range tokenRepo.rows {
			if row.UserID == user.ID && !row.Revoked {
				t.Error("active token survived account disable")
			}
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := svc.UpdateUser(ctx, "missing-id", &dto.UpdateUserRequest{Name: "X"}); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("UpdateUser() error = %v, want ErrUserNotFound", err)
		}
	})
}

func TestAuthService_DeleteUser(t *testing.T) {
	svc, userRepo, tokenRepo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "delete@example.com",
		Password: "Password1!",
		Name:     "Delete User",
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "delete@example.com", Password: "Password1!"}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	user := userRepo.emailIndex["delete@example.com"]

	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := svc.GetUser(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser() error = %v, want ErrUserNotFound", err)
	}
	for _, row := range tokenRepo.rows {
		if row.UserID == user.ID && !row.Revoked {
			t.Error("active token survived user deletion")
		}
	}
}
