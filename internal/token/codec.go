package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/substring/auth-backend/internal/domain"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// CodecConfig holds signing configuration. The key is loaded once at
// startup and immutable afterwards.
type CodecConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	// Leeway is the clock skew tolerance applied symmetrically to
	// expiry and issued-at checks.
	Leeway time.Duration
}

// Codec encodes and verifies signed, self-contained tokens (HS256).
// Access tokens carry identity and roles and are never persisted.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration

	now func() time.Time // overridable in tests
}

// NewCodec creates a Codec. Zero TTL falls back to 15 minutes.
func NewCodec(cfg *CodecConfig) *Codec {
	ttl := cfg.AccessTokenTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &Codec{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		leeway: cfg.Leeway,
		now:    time.Now,
	}
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Codec) AccessTokenTTL() time.Duration {
	return c.ttl
}

type signedClaims struct {
	Roles []string `json:"roles,omitempty"`
	Type  string   `json:"typ"`
	jwt.RegisteredClaims
}

// IssueAccessToken mints a signed access token carrying the user id and
// role names.
func (c *Codec) IssueAccessToken(userID string, roles []string) (string, error) {
	now := c.now()
	claims := signedClaims{
		Roles: roles,
		Type:  typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// IssueRefreshToken mints a signed refresh token that carries only the
// jti and subject needed to look up the stored row.
func (c *Codec) IssueRefreshToken(userID, jti string, expiresAt time.Time) (string, error) {
	claims := signedClaims{
		Type: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// ParseAccessToken verifies signature, expiry and token type and returns
// the embedded claims. Every failure mode collapses into ErrInvalidToken.
func (c *Codec) ParseAccessToken(tokenString string) (*domain.Claims, error) {
	claims, err := c.parse(tokenString, typeAccess)
	if err != nil {
		return nil, err
	}
	return &domain.Claims{
		UserID: claims.Subject,
		Roles:  claims.Roles,
		JTI:    claims.ID,
	}, nil
}

// ParseRefreshToken verifies a presented refresh token and returns its
// jti and subject. Storage state (revoked, rotated) is the Manager's
// concern, not the codec's.
func (c *Codec) ParseRefreshToken(tokenString string) (jti, userID string, err error) {
	claims, err := c.parse(tokenString, typeRefresh)
	if err != nil {
		return "", "", err
	}
	return claims.ID, claims.Subject, nil
}

func (c *Codec) parse(tokenString, wantType string) (*signedClaims, error) {
	claims := &signedClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return c.secret, nil
		},
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
