// Package credentials implements the managed pool of upstream credentials:
// a round-robin selector over direct-backend API keys, and an OAuth2 token
// source pool for the alternate, service-account-authenticated backend.
package credentials

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// APIKeyPool selects among a set of direct-backend API keys in round-robin
// order, skipping keys that are currently marked unhealthy.
type APIKeyPool struct {
	keys []apiKeyEntry
	next uint64
}

type apiKeyEntry struct {
	ID      string
	Key     string
	healthy atomic.Bool
}

// NewAPIKeyPool builds a pool from id->key pairs. All keys start healthy.
func NewAPIKeyPool(keys map[string]string) *APIKeyPool {
	p := &APIKeyPool{}
	for id, key := range keys {
		e := apiKeyEntry{ID: id, Key: key}
		e.healthy.Store(true)
		p.keys = append(p.keys, e)
	}
	return p
}

// Select returns the next healthy key in round-robin order.
func (p *APIKeyPool) Select() (id, key string, ok bool) {
	n := len(p.keys)
	if n == 0 {
		return "", "", false
	}
	start := atomic.AddUint64(&p.next, 1)
	for i := 0; i < n; i++ {
		idx := (int(start) + i) % n
		e := &p.keys[idx]
		if e.healthy.Load() {
			return e.ID, e.Key, true
		}
	}
	return "", "", false
}

// MarkUnhealthy takes a key out of rotation, e.g. after a 401/403 from the
// backend. The key stays out of rotation until MarkHealthy is called for it.
func (p *APIKeyPool) MarkUnhealthy(id string) {
	for i := range p.keys {
		if p.keys[i].ID == id {
			p.keys[i].healthy.Store(false)
			return
		}
	}
}

// MarkHealthy restores a key to rotation.
func (p *APIKeyPool) MarkHealthy(id string) {
	for i := range p.keys {
		if p.keys[i].ID == id {
			p.keys[i].healthy.Store(true)
			return
		}
	}
}

// ServiceAccountPool manages OAuth2 token sources derived from one or more
// Google service-account JSON credentials, refreshing tokens transparently
// via golang.org/x/oauth2's built-in expiry handling.
type ServiceAccountPool struct {
	mu      sync.Mutex
	sources []saEntry
	next    uint64
}

type saEntry struct {
	ID     string
	Source oauth2.TokenSource
}

// NewServiceAccountPool builds token sources for each service-account JSON
// document, scoped to scopes (typically the cloud platform's generative-AI
// scope).
func NewServiceAccountPool(ctx context.Context, accounts map[string][]byte, scopes []string) (*ServiceAccountPool, error) {
	p := &ServiceAccountPool{}
	for id, json := range accounts {
		creds, err := google.CredentialsFromJSON(ctx, json, scopes...)
		if err != nil {
			return nil, fmt.Errorf("credentials: parsing service account %q: %w", id, err)
		}
		p.sources = append(p.sources, saEntry{ID: id, Source: creds.TokenSource})
	}
	return p, nil
}

// Select returns a bearer token from the next service account in rotation.
func (p *ServiceAccountPool) Select(ctx context.Context) (id, token string, err error) {
	p.mu.Lock()
	n := len(p.sources)
	if n == 0 {
		p.mu.Unlock()
		return "", "", fmt.Errorf("credentials: no service accounts configured")
	}
	idx := int(atomic.AddUint64(&p.next, 1)) % n
	entry := p.sources[idx]
	p.mu.Unlock()

	tok, err := entry.Source.Token()
	if err != nil {
		return "", "", fmt.Errorf("credentials: refreshing token for %q: %w", entry.ID, err)
	}
	return entry.ID, tok.AccessToken, nil
}
