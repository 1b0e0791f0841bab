// Package auth mints and verifies session tokens.
//
// A token is an HS256 JWT whose ID is the session id and whose subject is
// the username. A valid signature only proves the server issued the token;
// whether the session is still live is decided by the session table.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims carries the session id (jti) and username (sub).
type SessionClaims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs a new session token for username and returns it along
// with its session id.
func GenerateToken(username string, secretKey []byte) (token string, sessionID string, err error) {
	sessionID = uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      sessionID,
			Subject: username,
		},
	})

	token, err = t.SignedString(secretKey)
	if err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// ParseToken verifies the signature of tokenString and returns its claims.
func ParseToken(tokenString string, secretKey []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
