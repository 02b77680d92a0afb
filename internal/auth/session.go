package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/rentacar/internal/models"
)

// BearerHeader formats token as an Authorization header value.
func BearerHeader(token string) string {
	return "Bearer " + token
}

// ExtractToken extracts the token from an Authorization header
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

// ParseClaims reads the claims of a JWT without verifying its signature.
// The client never holds the signing key; the claims are for display only.
// Opaque tokens return ErrInvalidToken.
func ParseClaims(tokenString string) (*models.Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claimsFromMap(claims)
}

func claimsFromMap(claims jwt.MapClaims) (*models.Claims, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	out := &models.Claims{Subject: sub}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
