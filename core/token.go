package core

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for any credential failure: malformed token,
// bad signature, or expiry. Callers must not be able to tell these apart.
var ErrUnauthorized = errors.New("unauthorized")

// Claims binds the principal identity to a signed, time-limited token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// IssueToken produces an HS256-signed bearer token for the principal.
func IssueToken(userID, email string, secret []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
		Email:  email,
	})
	return token.SignedString(secret)
}

// VerifyToken checks signature and expiry and returns the embedded
// principal identity. Detecting a missing Authorization header is the
// caller's job; this only judges the token it is handed.
func VerifyToken(tokenString string, secret []byte) (userID, email string, err error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrUnauthorized
	}
	if claims.UserID == "" {
		return "", "", ErrUnauthorized
	}
	return claims.UserID, claims.Email, nil
}
