// Package auth issues and verifies the bearer tokens that identify uploaders.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kwarc/cheatsheets/internal/common"
)

// Claims carries the uploader identity. Name and Email fill issued sheets;
// Instructor grants the upload-window bypass and archive access.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"uid"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Instructor bool   `json:"instructor,omitempty"`
}

// Identity is what handlers learn about the caller.
type Identity struct {
	UserID     string
	Name       string
	Email      string
	Instructor bool
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:     id.UserID,
		Name:       id.Name,
		Email:      id.Email,
		Instructor: id.Instructor,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString and returns the caller identity.
// Expired tokens yield common.ErrTokenExpired, anything else invalid
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{
		UserID:     claims.UserID,
		Name:       claims.Name,
		Email:      claims.Email,
		Instructor: claims.Instructor,
	}, nil
}
