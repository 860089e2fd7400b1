package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"wayfarer/pkg/errors"
)

// JWTVerifier validates HS256 bearer tokens carrying a userId claim. Used in
// development and tests, where Firebase credentials are not available.
type JWTVerifier struct {
	secret []byte
	expiry time.Duration
}

func NewJWTVerifier(secret string, expiry time.Duration) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		expiry: expiry,
	}
}

type tokenClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (string, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("Unexpected signing method", nil)
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}
	if claims.UserID == "" {
		return "", errors.Unauthorized("Invalid token claims", nil)
	}

	return claims.UserID, nil
}

// Generate issues a token for the given user id. Development helper.
func (v *JWTVerifier) Generate(userID string) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
