package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	password := []byte("correct horse battery")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == string(password) {
		t.Fatal("Hash must return a non-empty value distinct from the password")
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Fatalf("Compare with wrong password: want mismatch, got %v", err)
	}
}

func TestHasher_RejectsOverlongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	long := strings.Repeat("a", maxPasswordLen+1)
	if _, err := h.Hash([]byte(long)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("want ErrPasswordTooLong, got %v", err)
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, bcrypt.DefaultCost},
		{-1, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{99, bcrypt.MaxCost},
		{12, 12},
	}
	for _, tc := range cases {
		if got := NewHasher(tc.in).cost; got != tc.want {
			t.Errorf("NewHasher(%d).cost = %d, want %d", tc.in, got, tc.want)
		}
	}
}
