package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/token"
)

func newTestRouter(codec *token.Codec, requiredRole string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	group := r.Group("/", Auth(codec))
	if requiredRole != "" {
		group.Use(RequireRole(requiredRole))
	}
	group.GET("/protected", func(c *gin.Context) {
		claims, _ := ClaimsFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func newMiddlewareCodec() *token.Codec {
	return token.NewCodec(&token.CodecConfig{
		Secret:         "test-secret-key",
		Issuer:         "auth-backend-test",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	codec := newMiddlewareCodec()
	router := newTestRouter(codec, "")

	t.Run("valid token", func(t *testing.T) {
		access, err := codec.IssueAccessToken("user-1", []string{domain.RoleGuest})
		if err != nil {
			t.Fatalf("IssueAccessToken() error = %v", err)
		}

		w := doRequest(router, "Bearer "+access)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		w := doRequest(router, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("not a bearer token", func(t *testing.T) {
		w := doRequest(router, "Basic dXNlcjpwYXNz")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		w := doRequest(router, "Bearer not-a-jwt")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("refresh token rejected on access endpoints", func(t *testing.T) {
		refresh, err := codec.IssueRefreshToken("user-1", "jti-1", time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("IssueRefreshToken() error = %v", err)
		}

		w := doRequest(router, "Bearer "+refresh)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

func TestRequireRole(t *testing.T) {
	codec := newMiddlewareCodec()
	router := newTestRouter(codec, domain.RoleAdmin)

	t.Run("admin allowed", func(t *testing.T) {
		access, err := codec.IssueAccessToken("admin-1", []string{domain.RoleGuest, domain.RoleAdmin})
		if err != nil {
			t.Fatalf("IssueAccessToken() error = %v", err)
		}

		w := doRequest(router, "Bearer "+access)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("guest forbidden", func(t *testing.T) {
		access, err := codec.IssueAccessToken("guest-1", []string{domain.RoleGuest})
		if err != nil {
			t.Fatalf("IssueAccessToken() error = %v", err)
		}

		w := doRequest(router, "Bearer "+access)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}

func TestClaimsFromContext_Empty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := ClaimsFromContext(c); ok {
		t.Error("ClaimsFromContext() = ok on empty context")
	}
}
