// Package auth implements issuing and verifying the signed session tokens
// that carry the authenticated user's identity between requests.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer   = "ripple-api"
	audience = "ripple-client"
)

// ErrInvalidToken is returned by Verify for any token that is malformed,
// tampered with, expired, or otherwise not issued by this codec.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded identity carried by a session token.
type Claims struct {
	UserID   uint
	IssuedAt time.Time
}

// Codec signs and verifies session tokens with a process-wide secret.
// Rotating the secret invalidates all outstanding tokens; no revocation
// list is maintained.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec returns a codec signing with the given secret. A ttl of zero
// issues tokens without an expiry claim.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for the given user ID. The subject claim carries the
// user's primary key as a string; email is deliberately not embedded.
func (c *Codec) Issue(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10), // Subject (user ID as string)
		"iss": issuer,
		"aud": audience,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}
	if c.ttl > 0 {
		claims["exp"] = now.Add(c.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the token's signature and structure and returns the decoded
// claims. Every failure mode is reported as ErrInvalidToken.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if iss, issOk := claims["iss"].(string); !issOk || iss != issuer {
		return nil, ErrInvalidToken
	}
	if aud, audOk := claims["aud"].(string); !audOk || aud != audience {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	out := &Claims{UserID: uint(userID)}
	if iat, iatOk := claims["iat"].(float64); iatOk {
		out.IssuedAt = time.Unix(int64(iat), 0)
	}
	return out, nil
}
