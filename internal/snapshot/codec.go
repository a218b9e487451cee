// Package snapshot encodes the client-held cart into a signed token suitable
// for a cookie and decodes it back.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"storefront/internal/domain"
)

const issuer = "storefront-cart"

type cartClaims struct {
	Cart domain.Snapshot `json:"cart"`
	jwt.RegisteredClaims
}

// JWTCodec signs cart snapshots as HS256 tokens.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTCodec returns a codec signing with secret. Tokens expire after ttl.
func NewJWTCodec(secret string, ttl time.Duration) (*JWTCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("cart cookie secret must be at least 16 bytes")
	}
	return &JWTCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Encode signs the snapshot.
func (c *JWTCodec) Encode(s domain.Snapshot) (string, error) {
	now := c.now()
	claims := cartClaims{
		Cart: s,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign cart token: %w", err)
	}
	return token, nil
}

// Decode verifies and decodes a token. It reports false for an empty,
// tampered, expired or otherwise unreadable token; callers treat that as
// "no client snapshot".
func (c *JWTCodec) Decode(token string) (*domain.Snapshot, bool) {
	if token == "" {
		return nil, false
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims cartClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Issuer != issuer {
		return nil, false
	}
	if claims.Cart.Items == nil {
		claims.Cart.Items = map[string]domain.LineItem{}
	}
	return &claims.Cart, true
}
