package security

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSignature means the token parsed but was not signed by this Signer.
	ErrSignature = errors.New("signature mismatch")
	// ErrMalformed means the token could not be decoded at all.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired means the token carried an exp claim in the past.
	ErrExpired = errors.New("token expired")
)

// Signer produces and verifies compact HS256 tokens keyed by a server secret.
// Payloads are integrity protected only; anyone holding a token can read it.
type Signer struct {
	key    []byte
	parser *jwt.Parser
}

func NewSigner(secret string) *Signer {
	return &Signer{
		key: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
		),
	}
}

func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Parse verifies raw and decodes it into claims.
func (s *Signer) Parse(raw string, claims jwt.Claims) error {
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
