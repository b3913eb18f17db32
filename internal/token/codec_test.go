package token

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec() *Codec {
	return NewCodec(&CodecConfig{
		Secret:         "test-secret-key",
		Issuer:         "auth-backend-test",
		AccessTokenTTL: 15 * time.Minute,
		Leeway:         30 * time.Second,
	})
}

func TestCodec_AccessTokenRoundTrip(t *testing.T) {
	codec := newTestCodec()

	tokenString, err := codec.IssueAccessToken("user-1", []string{"ROLE_ADMIN", "ROLE_GUEST"})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if tokenString == "" {
		t.Fatal("IssueAccessToken() returned empty token")
	}

	claims, err := codec.ParseAccessToken(tokenString)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("UserID = %v, want user-1", claims.UserID)
	}
	if len(claims.Roles) != 2 {
		t.Fatalf("Roles = %v, want 2 entries", claims.Roles)
	}
	if !claims.HasRole("ROLE_ADMIN") {
		t.Error("HasRole(ROLE_ADMIN) = false, want true")
	}
	if claims.HasRole("ROLE_NOPE") {
		t.Error("HasRole(ROLE_NOPE) = true, want false")
	}
	if claims.JTI == "" {
		t.Error("JTI is empty")
	}
}

func TestCodec_RefreshTokenRoundTrip(t *testing.T) {
	codec := newTestCodec()

	expiresAt := time.Now().Add(24 * time.Hour)
	tokenString, err := codec.IssueRefreshToken("user-2", "jti-abc", expiresAt)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	jti, userID, err := codec.ParseRefreshToken(tokenString)
	if err != nil {
		t.Fatalf("ParseRefreshToken() error = %v", err)
	}
	if jti != "jti-abc" {
		t.Errorf("jti = %v, want jti-abc", jti)
	}
	if userID != "user-2" {
		t.Errorf("userID = %v, want user-2", userID)
	}
}

func TestCodec_TypeConfusion(t *testing.T) {
	codec := newTestCodec()

	access, err := codec.IssueAccessToken("user-1", nil)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	refresh, err := codec.IssueRefreshToken("user-1", "jti-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	// An access token presented as a refresh token and vice versa must
	// both fail with the single invalid-token error.
	if _, _, err := codec.ParseRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseRefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
	if _, err := codec.ParseAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseAccessToken(refresh) error = %v, want ErrInvalidToken", err)
	}
}

func TestCodec_TamperedToken(t *testing.T) {
	codec := newTestCodec()

	tokenString, err := codec.IssueAccessToken("user-1", []string{"ROLE_GUEST"})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	tampered := tokenString[:len(tokenString)-2] + "xx"
	if _, err := codec.ParseAccessToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseAccessToken(tampered) error = %v, want ErrInvalidToken", err)
	}
}

func TestCodec_WrongSecret(t *testing.T) {
	codec := newTestCodec()
	other := NewCodec(&CodecConfig{
		Secret:         "a-different-secret",
		Issuer:         "auth-backend-test",
		AccessTokenTTL: 15 * time.Minute,
	})

	tokenString, err := other.IssueAccessToken("user-1", nil)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	if _, err := codec.ParseAccessToken(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseAccessToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestCodec_GarbageInput(t *testing.T) {
	codec := newTestCodec()

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := codec.ParseAccessToken(input); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseAccessToken(%q) error = %v, want ErrInvalidToken", input, err)
		}
	}
}

func TestCodec_ExpiryAndLeeway(t *testing.T) {
	codec := newTestCodec()

	issued := time.Now()
	codec.now = func() time.Time { return issued }

	tokenString, err := codec.IssueAccessToken("user-1", nil)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	t.Run("valid before expiry", func(t *testing.T) {
		codec.now = func() time.Time { return issued.Add(14 * time.Minute) }
		if _, err := codec.ParseAccessToken(tokenString); err != nil {
			t.Errorf("ParseAccessToken() error = %v, want nil", err)
		}
	})

	t.Run("valid within leeway past expiry", func(t *testing.T) {
		codec.now = func() time.Time { return issued.Add(15*time.Minute + 10*time.Second) }
		if _, err := codec.ParseAccessToken(tokenString); err != nil {
			t.Errorf("ParseAccessToken() error = %v, want nil (within leeway)", err)
		}
	})

	t.Run("invalid past leeway", func(t *testing.T) {
		codec.now = func() time.Time { return issued.Add(15*time.Minute + 31*time.Second) }
		if _, err := codec.ParseAccessToken(tokenString); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseAccessToken() error = %v, want ErrInvalidToken", err)
		}
	})
}
