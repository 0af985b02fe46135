// Package apikey validates the API key clients forward to this gateway,
// which in turn the north-bound auth middleware requires.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/oaigw/gateway/pkg/auth"
)

// Entry maps a raw key to the identity and safety-filtering/keep-alive
// policy it carries.
type Entry struct {
	Key                string
	Identity           auth.Identity
	SafetyFilteringOff bool
	KeepAliveEnabled   bool
}

// metadata keys the gateway's safety-filtering/keep-alive policy is carried
// under in auth.Identity.Metadata, so downstream handlers only need the
// Identity already attached to the request context.
const (
	metaSafetyFilteringOff = "safety_filtering_off"
	metaKeepAliveEnabled   = "keep_alive_enabled"
)

type hashedEntry struct {
	hash     [32]byte
	identity auth.Identity
}

// Authenticator validates bearer tokens against a static key store, hashed
// at construction so plaintext keys are never retained in memory.
type Authenticator struct {
	keys []hashedEntry
}

// New builds an Authenticator from the configured key entries.
func New(entries []Entry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		identity := e.Identity
		if identity.Metadata == nil {
			identity.Metadata = map[string]string{}
		} else {
			cloned := make(map[string]string, len(identity.Metadata)+2)
			for k, v := range identity.Metadata {
				cloned[k] = v
			}
			identity.Metadata = cloned
		}
		identity.Metadata[metaSafetyFilteringOff] = strconv.FormatBool(e.SafetyFilteringOff)
		identity.Metadata[metaKeepAliveEnabled] = strconv.FormatBool(e.KeepAliveEnabled)

		a.keys = append(a.keys, hashedEntry{
			hash:     sha256.Sum256([]byte(e.Key)),
			identity: identity,
		})
	}
	return a
}

// Authenticate extracts the bearer token and validates it against the key
// store. Abstains when no Authorization header is a Bearer token, so other
// authenticators in the chain get a chance.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	tokenHash := sha256.Sum256([]byte(token))
	for _, entry := range a.keys {
		if subtle.ConstantTimeCompare(tokenHash[:], entry.hash[:]) == 1 {
			id := entry.identity
			return auth.AuthResult{Decision: auth.Yes, Identity: &id}
		}
	}
	return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
}
