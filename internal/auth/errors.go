package auth

import (
	"errors"
	"fmt"
)

// State token failures. None of them are recoverable: the login flow has to
// start over.
var (
	ErrStateIntegrity = errors.New("state token integrity check failed")
	ErrStateMalformed = errors.New("state token malformed")
	ErrStateExpired   = errors.New("state token expired")
)

// ErrProtocol marks a provider response whose shape was not the one expected.
var ErrProtocol = errors.New("unexpected provider response")

// ProviderError is an explicit rejection from the provider's token endpoint.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider said %q", e.Code)
	}
	return fmt.Sprintf("provider said %q: %s", e.Code, e.Description)
}
