package security

import (
	"errors"
	"testing"
	"time"

	"github.com/payda-app/payda/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: 7, Name: "Ayşe", Role: models.RoleDonor}
	token, err := GenerateToken("s3cret", user, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken("s3cret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Role != models.RoleDonor || claims.Name != "Ayşe" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := ParseToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	token, err := GenerateToken("s3cret", &models.User{ID: 1, Role: models.RoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("s3cret", token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
	if _, err := GenerateToken("", &models.User{ID: 1}, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestPasswordHashing(t *testing.T) {
	bcryptCost = bcrypt.MinCost
	t.Cleanup(func() { bcryptCost = 12 })

	hash, err := HashPassword("parola")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "parola") || CheckPassword(hash, "yanlış") {
		t.Fatalf("password check mismatch")
	}
	if CheckPassword("", "") {
		t.Fatalf("empty hash must not match")
	}
	if _, err := HashPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(16)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := GenerateSecret(16)
	if len(a) != 32 || a == b {
		t.Fatalf("unexpected secrets %q %q", a, b)
	}
}
