package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// RequestIDKey is the context key the middleware stores the request id under.
const RequestIDKey = contextKey("requestID")

const adminTokenTTL = 12 * time.Hour

func jwtSecret() ([]byte, error) {
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("ADMIN_JWT_SECRET is not set")
	}
	return []byte(secret), nil
}

// GenerateAdminToken signs a short-lived HS256 token for the faucet admin.
func GenerateAdminToken() (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"role": "admin",
		"iss":  "xmrt-faucet",
		"iat":  now.Unix(),
		"exp":  now.Add(adminTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateAdminToken parses the token and checks signature, expiry and role.
func ValidateAdminToken(tokenString string) error {
	secret, err := jwtSecret()
	if err != nil {
		return err
	}
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return errors.New("invalid token")
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return errors.New("admin role required")
	}
	return nil
}
