// Package auth implements the client-authentication middleware this
// gateway requires upstream of the core translation pipeline.
package auth

import (
	"context"
	"errors"
	"net/http"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// No means credentials are present but invalid. The chain stops and the
	// request is rejected. It is the zero value, so a Chain whose
	// DefaultDecision is left unset rejects when every authenticator abstains.
	No AuthDecision = iota
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes
	// Abstain means this authenticator cannot handle the credentials
	// presented. The chain continues to the next authenticator.
	Abstain
)

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity
	Err      error
}

// Identity represents an authenticated caller.
type Identity struct {
	Subject     string
	ServiceTier string
	Metadata    map[string]string
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
)

// Chain evaluates authenticators in order using three-outcome voting.
type Chain struct {
	Authenticators  []Authenticator
	DefaultDecision AuthDecision
}

// Authenticate runs the chain, stopping on the first Yes or No.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}
	if c.DefaultDecision == Yes {
		return AuthResult{Decision: Yes, Identity: &Identity{Subject: "anonymous"}}
	}
	return AuthResult{Decision: No, Err: ErrUnauthenticated}
}
