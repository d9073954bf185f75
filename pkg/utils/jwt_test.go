package utils

import (
	"testing"
	"time"

	"shiftline-backend/pkg/models"
)

func TestOnboardingTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, expiresAt, err := svc.GenerateOnboardingToken("sess-1", models.RoleManager)
	if err != nil {
		t.Fatalf("GenerateOnboardingToken: %v", err)
	}
	if expiresAt <= time.Now().Unix() {
		t.Errorf("expiry %d is not in the future", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.SessionID != "sess-1" {
		t.Errorf("session id = %q", claims.SessionID)
	}
	if claims.Role != string(models.RoleManager) {
		t.Errorf("role = %q", claims.Role)
	}
	if claims.Type != "onboarding" {
		t.Errorf("type = %q", claims.Type)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := NewJWTService("secret-a").GenerateOnboardingToken("sess-1", models.RoleManager)
	if err != nil {
		t.Fatalf("GenerateOnboardingToken: %v", err)
	}
	if _, err := NewJWTService("secret-b").ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret should be rejected")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewJWTService("test-secret")
	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Fatal("garbage token should be rejected")
	}
}
