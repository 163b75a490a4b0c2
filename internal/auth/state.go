package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marcogenualdo/upload-gate/pkg/security"
)

// State is the payload carried through the provider's authorize redirect.
// Nonce must match the value the login handler left in the browser.
type State struct {
	RedirectURL string `json:"redirect_url"`
	Nonce       string `json:"nonce,omitempty"`
}

type stateClaims struct {
	State
	jwt.RegisteredClaims
}

// StateCodec signs and verifies State values. A zero ttl disables expiry.
type StateCodec struct {
	signer *security.Signer
	ttl    time.Duration
	now    func() time.Time
}

func NewStateCodec(secret string, ttl time.Duration) *StateCodec {
	return &StateCodec{
		signer: security.NewSigner(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (c *StateCodec) Encode(state State) (string, error) {
	claims := stateClaims{State: state}
	if c.ttl > 0 {
		now := c.now()
		claims.IssuedAt = jwt.NewNumericDate(now)
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	return c.signer.Sign(claims)
}

func (c *StateCodec) Decode(token string) (State, error) {
	var claims stateClaims
	err := c.signer.Parse(token, &claims)

	switch {
	case err == nil:
		return claims.State, nil
	case errors.Is(err, security.ErrSignature):
		return State{}, errors.Join(ErrStateIntegrity, err)
	case errors.Is(err, security.ErrExpired):
		return State{}, errors.Join(ErrStateExpired, err)
	default:
		return State{}, errors.Join(ErrStateMalformed, err)
	}
}
