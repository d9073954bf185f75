package utils

import (
	"strings"
	"testing"
)

func TestGenerateRestaurantCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateRestaurantCode()
		if err != nil {
			t.Fatalf("GenerateRestaurantCode: %v", err)
		}
		if !strings.HasPrefix(code, "RST-") {
			t.Fatalf("code %q missing RST- prefix", code)
		}
		suffix := strings.TrimPrefix(code, "RST-")
		if len(suffix) != 6 {
			t.Fatalf("code %q suffix length = %d, want 6", code, len(suffix))
		}
		if suffix != strings.ToUpper(suffix) {
			t.Fatalf("code %q should be uppercase", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("codes should vary")
	}
}

func TestGenerateURLToken(t *testing.T) {
	tok, err := GenerateURLToken(24)
	if err != nil {
		t.Fatalf("GenerateURLToken: %v", err)
	}
	if tok == "" {
		t.Fatal("empty token")
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("token %q is not URL safe", tok)
	}
}
