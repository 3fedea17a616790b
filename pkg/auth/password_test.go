package auth

import (
	"errors"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash should not equal the plaintext")
	}
	if !CheckPassword("correct horse", hash) {
		t.Fatalf("correct password should verify")
	}
	if CheckPassword("wrong horse", hash) {
		t.Fatalf("wrong password should not verify")
	}
	if CheckPassword("correct horse", "not-a-bcrypt-hash") {
		t.Fatalf("garbage hash should not verify")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("abc123"); err != nil {
		t.Fatalf("six characters should pass: %v", err)
	}
	if err := ValidatePassword("abc12"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("err = %v, want %v", err, ErrPasswordTooShort)
	}
}
