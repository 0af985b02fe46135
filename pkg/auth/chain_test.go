package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fixed struct{ res AuthResult }

func (f fixed) Authenticate(context.Context, *http.Request) AuthResult { return f.res }

func TestChainStopsOnFirstDecision(t *testing.T) {
	yes := fixed{AuthResult{Decision: Yes, Identity: &Identity{Subject: "u"}}}
	no := fixed{AuthResult{Decision: No, Err: ErrUnauthenticated}}
	abstain := fixed{AuthResult{Decision: Abstain}}

	r := httptest.NewRequest("GET", "/", nil)

	c := &Chain{Authenticators: []Authenticator{abstain, yes, no}}
	if res := c.Authenticate(context.Background(), r); res.Decision != Yes || res.Identity.Subject != "u" {
		t.Fatalf("expected Yes from second authenticator, got %#v", res)
	}

	c2 := &Chain{Authenticators: []Authenticator{no, yes}}
	if res := c2.Authenticate(context.Background(), r); res.Decision != No {
		t.Fatalf("expected No to stop the chain, got %#v", res)
	}
}

func TestChainDefaultDecision(t *testing.T) {
	abstain := fixed{AuthResult{Decision: Abstain}}
	r := httptest.NewRequest("GET", "/", nil)

	open := &Chain{Authenticators: []Authenticator{abstain}, DefaultDecision: Yes}
	res := open.Authenticate(context.Background(), r)
	if res.Decision != Yes || res.Identity.Subject != "anonymous" {
		t.Fatalf("expected anonymous identity when chain is open, got %#v", res)
	}

	closed := &Chain{Authenticators: []Authenticator{abstain}}
	if res := closed.Authenticate(context.Background(), r); res.Decision != No || res.Err != ErrUnauthenticated {
		t.Fatalf("expected rejection when chain is closed, got %#v", res)
	}
}
