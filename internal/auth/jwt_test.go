package auth

import (
	"testing"
	"time"

	"matri-go/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecretKey: "test-secret",
		JWTExpiry:    time.Hour,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken("user-123", cfg)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	claims, err := ValidateToken(token, cfg.JWTSecretKey)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
	if claims.ID == "" {
		t.Error("expected a JWT ID claim")
	}
}

func TestValidateTokenWrongKey(t *testing.T) {
	token, err := GenerateToken("user-123", testAuthConfig())
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if _, err := ValidateToken(token, "a-different-secret"); err == nil {
		t.Error("expected validation to fail with the wrong key")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTExpiry = -time.Minute
	token, err := GenerateToken("user-123", cfg)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if _, err := ValidateToken(token, cfg.JWTSecretKey); err == nil {
		t.Error("expected validation to fail for an expired token")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.jwt", "test-secret"); err == nil {
		t.Error("expected validation to fail for a malformed token")
	}
}
