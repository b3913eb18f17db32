package hash

import "golang.org/x/crypto/bcrypt"

// Hasher is a one-way password hash capability. Implementations must be
// deliberately slow and salted. Plaintext never leaves this package.
type Hasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches the stored hash. A
	// malformed stored hash yields false, never a panic or error.
	Verify(plaintext, hash string) bool
}

// Bcrypt implements Hasher with golang.org/x/crypto/bcrypt
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher. Zero cost falls back to the
// library default.
func NewBcrypt(cost int) *Bcrypt {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (b *Bcrypt) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
