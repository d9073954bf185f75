package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shiftline-backend/pkg/models"
)

// JWTService signs and validates onboarding session tokens.
type JWTService struct {
	secretKey []byte
}

// NewJWTService creates a JWTService with the given HMAC secret.
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
	}
}

// Onboarding tokens outlive browser reloads; the flow itself is the thing
// that ends them, so the expiry is generous.
const onboardingTokenTTL = 7 * 24 * time.Hour

// GenerateOnboardingToken issues the token that ties a client to its
// onboarding session record.
func (j *JWTService) GenerateOnboardingToken(sessionID string, role models.OnboardingRole) (string, int64, error) {
	now := time.Now()
	expiry := now.Add(onboardingTokenTTL)

	claims := &models.OnboardingTokenClaims{
		SessionID: sessionID,
		Role:      string(role),
		Type:      "onboarding",
		Exp:       expiry.Unix(),
		Iat:       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate onboarding token: %w", err)
	}

	return tokenString, expiry.Unix(), nil
}

// ValidateToken parses and validates an onboarding token.
func (j *JWTService) ValidateToken(tokenString string) (*models.OnboardingTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.OnboardingTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.OnboardingTokenClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Type != "onboarding" {
		return nil, fmt.Errorf("invalid token type: %s", claims.Type)
	}

	if time.Now().Unix() > claims.Exp {
		return nil, fmt.Errorf("token expired")
	}

	return claims, nil
}
