// Package security provides JWT token utilities for the operator
// control plane.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// OperatorRole is the role claim carried by operator tokens.
const OperatorRole = "operator"

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// IsOperatorClaims reports whether the claims carry the operator role.
func IsOperatorClaims(claims jwt.MapClaims) bool {
	role, ok := claims["role"].(string)
	return ok && role == OperatorRole
}

// GenerateOperatorToken creates a short-lived JWT for the gateway
// operator after a successful password check.
func GenerateOperatorToken(jwtSecret string) (string, error) {
	runID := GenerateULID()
	claims := jwt.MapClaims{
		"role": OperatorRole,
		"jti":  runID,
		"iat":  time.Now().UTC().Unix(),
		"exp":  time.Now().UTC().Add(12 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// CheckOperatorPassword compares a plaintext password against the
// configured bcrypt hash.
func CheckOperatorPassword(password, passwordHash string) error {
	if passwordHash == "" {
		return errors.New("operator password not configured")
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
}
