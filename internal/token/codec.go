// Package token encodes and decodes the signed access/refresh token payloads.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type discriminates access tokens from refresh tokens.
type Type string

const (
	// TypeAccess marks short-lived tokens presented on API requests.
	TypeAccess Type = "access"
	// TypeRefresh marks long-lived tokens exchanged for new pairs.
	TypeRefresh Type = "refresh"
)

var (
	// ErrInvalidSignature indicates the signature did not verify.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrMalformed indicates the token structure could not be parsed.
	ErrMalformed = errors.New("token: malformed")
)

// Claims is the decoded token payload.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	Type      Type
}

// Codec signs and verifies token payloads with a symmetric key.
//
// Decode verifies signature and structure only. Expiry is deliberately left
// to the caller so an expired token can be told apart from a forged one.
type Codec struct {
	secret []byte
}

// NewCodec builds a Codec for the given signing key and algorithm name.
func NewCodec(secret []byte, algorithm string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing key required")
	}
	if algorithm != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("token: unsupported algorithm %q", algorithm)
	}
	return &Codec{secret: secret}, nil
}

// Encode produces a compact signed token for the claims.
func (c *Codec) Encode(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  claims.Subject,
		"exp":  claims.ExpiresAt.Unix(),
		"type": string(claims.Type),
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the payload. An expired token
// decodes successfully; only signature and structural failures are errors.
func (c *Codec) Decode(raw string) (Claims, error) {
	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, ErrInvalidSignature
		}
		return Claims{}, ErrMalformed
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrMalformed
	}
	sub, _ := mc["sub"].(string)
	exp, expOK := mc["exp"].(float64)
	typ, _ := mc["type"].(string)
	if sub == "" || !expOK || typ == "" {
		return Claims{}, ErrMalformed
	}

	return Claims{
		Subject:   sub,
		ExpiresAt: time.Unix(int64(exp), 0).UTC(),
		Type:      Type(typ),
	}, nil
}
