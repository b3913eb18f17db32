package hash

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	hasher := NewBcrypt(bcrypt.MinCost)

	hashed, err := hasher.Hash("Password1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hashed == "Password1!" {
		t.Fatal("Hash() returned the plaintext")
	}

	if !hasher.Verify("Password1!", hashed) {
		t.Error("Verify() = false for correct password")
	}
	if hasher.Verify("WrongPassword1!", hashed) {
		t.Error("Verify() = true for wrong password")
	}
}

func TestBcrypt_VerifyMalformedHash(t *testing.T) {
	hasher := NewBcrypt(bcrypt.MinCost)

	for _, stored := range []string{"", "not-a-bcrypt-hash", "$2a$garbage"} {
		if hasher.Verify("Password1!", stored) {
			t.Errorf("Verify() = true for malformed hash %q", stored)
		}
	}
}

func TestNewBcrypt_DefaultCost(t *testing.T) {
	hasher := NewBcrypt(0)

	hashed, err := hasher.Hash("Password1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}

func TestBcrypt_SaltedHashesDiffer(t *testing.T) {
	hasher := NewBcrypt(bcrypt.MinCost)

	first, err := hasher.Hash("Password1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := hasher.Hash("Password1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical, salt missing")
	}
}
