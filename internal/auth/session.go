package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session cookies are HS256 JWTs minted by the login frontend. This service
// only verifies them; issuing lives here so tests and local tooling can mint
// cookies against the same secret.

var ErrInvalidSession = errors.New("invalid or expired session cookie")

type SessionClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// VerifySessionCookie returns the user ID carried by a valid session cookie.
func VerifySessionCookie(cookie string, secret []byte) (string, error) {
	if cookie == "" {
		return "", ErrInvalidSession
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(cookie, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}

	if claims.UID == "" {
		return "", ErrInvalidSession
	}

	return claims.UID, nil
}

// IssueSessionCookie mints a session cookie for the given user ID.
func IssueSessionCookie(uid string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "pages-chatbot-platform",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
