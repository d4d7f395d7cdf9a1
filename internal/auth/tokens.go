// Package auth holds the credential primitives: signed tokens and password hashing.
package auth

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Kind separates token families; a token of one kind never verifies as another.
type Kind string

const (
	KindAccess       Kind = "access"
	KindRefresh      Kind = "refresh"
	KindConfirmation Kind = "confirmation"
)

type Claims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

// KindConfig is the signing secret and lifetime of one token kind.
type KindConfig struct {
	Secret []byte
	TTL    time.Duration
}

// Codec issues and verifies HS256 tokens. Subject is a user id for access and
// refresh tokens and an email address for confirmation tokens.
type Codec struct {
	kinds map[Kind]KindConfig
	now   func() time.Time
}

func NewCodec(access, refresh, confirmation KindConfig) (*Codec, error) {
	kinds := map[Kind]KindConfig{
		KindAccess:       access,
		KindRefresh:      refresh,
		KindConfirmation: confirmation,
	}
	for k, cfg := range kinds {
		if len(cfg.Secret) == 0 {
			return nil, fmt.Errorf("%s token secret is empty", k)
		}
		if cfg.TTL <= 0 {
			return nil, fmt.Errorf("%s token ttl must be positive", k)
		}
	}
	if bytes.Equal(access.Secret, refresh.Secret) ||
		bytes.Equal(access.Secret, confirmation.Secret) ||
		bytes.Equal(refresh.Secret, confirmation.Secret) {
		return nil, errors.New("token secrets must be distinct")
	}
	return &Codec{kinds: kinds, now: time.Now}, nil
}

// SetClock replaces the time source used for iat/exp and for verification.
func (c *Codec) SetClock(now func() time.Time) { c.now = now }

// TTL reports the configured lifetime of kind.
func (c *Codec) TTL(kind Kind) time.Duration { return c.kinds[kind].TTL }

// Issue signs a new token of kind for subject. Every token gets a fresh random
// jti; for refresh tokens it is the session id kept in the user's refresh set.
func (c *Codec) Issue(kind Kind, subject string) (string, *Claims, error) {
	cfg, ok := c.kinds[kind]
	if !ok {
		return "", nil, fmt.Errorf("unknown token kind %q", kind)
	}
	now := c.now()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, claims, nil
}

// Verify checks signature, algorithm, expiry and kind. Every failure wraps
// ErrInvalidToken.
func (c *Codec) Verify(kind Kind, tokenStr string) (*Claims, error) {
	cfg, ok := c.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, kind)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
