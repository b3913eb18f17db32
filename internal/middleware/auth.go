package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/token"
	"github.com/substring/auth-backend/pkg/response"
)

const claimsKey = "auth_claims"

// Auth validates the bearer access token and stores the verified claims
// in the request context. Missing or invalid tokens get a 401.
func Auth(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "MISSING_TOKEN", "Authorization header is required")
			c.Abort()
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			response.Unauthorized(c, "INVALID_TOKEN", "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := codec.ParseAccessToken(authHeader[len(bearerPrefix):])
		if err != nil {
			response.Unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole gates a route on role membership. The decision is made
// entirely from the verified token's role set; storage is never
// consulted, so role changes apply on the next token issuance.
func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Unauthorized(c, "UNAUTHORIZED", "User not authenticated")
			c.Abort()
			return
		}
		if !claims.HasRole(required) {
			response.Forbidden(c, "FORBIDDEN", "Insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFromContext returns the verified claims stored by Auth.
func ClaimsFromContext(c *gin.Context) (*domain.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}
