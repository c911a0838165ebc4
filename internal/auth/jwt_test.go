package auth

import (
	"errors"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateJWT(secret, "alice", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := ValidateJWT(secret, token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.PlayerID != "alice" || !claims.IsAdmin() {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateRejects(t *testing.T) {
	expired, _ := GenerateJWT(secret, "alice", "", -time.Minute)
	other, _ := GenerateJWT("ffffffffffffffffffffffffffffffff", "alice", "", time.Hour)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": other,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ValidateJWT(secret, token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestShortSecretRefused(t *testing.T) {
	if _, err := GenerateJWT("short", "alice", "", time.Hour); err == nil {
		t.Fatal("short secret accepted")
	}
}
