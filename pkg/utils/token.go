package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// GenerateURLToken returns a URL-safe random token from n random bytes
// (about 4/3*n characters). Recommended n is 24 or 32.
func GenerateURLToken(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// RawURLEncoding avoids '=' padding and '+' '/' characters
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateRestaurantCode returns a short human-shareable tenant code,
// e.g. "RST-8FK2QX". Staff use it to join the restaurant later.
func GenerateRestaurantCode() (string, error) {
	tok, err := GenerateURLToken(6)
	if err != nil {
		return "", err
	}
	code := strings.ToUpper(strings.NewReplacer("-", "X", "_", "Z").Replace(tok))
	if len(code) > 6 {
		code = code[:6]
	}
	return "RST-" + code, nil
}
