package domain

import "time"

// RefreshToken is a persisted refresh token row, keyed by JTI. A row is
// mutated only to flip Revoked to true; rows are never deleted here
// (retention cleanup runs outside the service).
type RefreshToken struct {
	ID         string     `json:"id"`
	JTI        string     `json:"jti"`
	UserID     string     `json:"user_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Revoked    bool       `json:"revoked"`
	ReplacedBy *string    `json:"replaced_by,omitempty"` // JTI of the rotation successor
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair represents access and refresh tokens returned to a client
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until access token expires
	TokenType    string `json:"token_type"` // always "Bearer"
}

// Claims is the verified content of an access token. Authorization
// decisions are made entirely from the embedded role set; storage is
// never re-queried, so role changes take effect on the next issuance.
type Claims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	JTI    string   `json:"jti"`
}

// HasRole reports whether the claims carry the required role. Pure
// function over the embedded role set.
func (c *Claims) HasRole(required string) bool {
	for _, r := range c.Roles {
		if r == required {
			return true
		}
	}
	return false
}
