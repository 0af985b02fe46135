// Package memory provides an in-memory settings.Store, used as a fallback
// when no Postgres DSN is configured.
package memory

import (
	"context"
	"sync"

	"github.com/oaigw/gateway/pkg/settings"
)

// Store is a mutex-guarded, process-local settings.Store.
type Store struct {
	mu        sync.RWMutex
	models    map[string]settings.ModelSetting
	globals   map[string]string
	safetyOff map[string]bool
}

// New returns a Store seeded with the given models and globals.
func New(models map[string]settings.ModelSetting, globals map[string]string) *Store {
	if models == nil {
		models = map[string]settings.ModelSetting{}
	}
	if globals == nil {
		globals = map[string]string{}
	}
	return &Store{models: models, globals: globals, safetyOff: map[string]bool{}}
}

// GetModelsConfig implements settings.Store.
func (s *Store) GetModelsConfig(ctx context.Context) (map[string]settings.ModelSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]settings.ModelSetting, len(s.models))
	for k, v := range s.models {
		out[k] = v
	}
	return out, nil
}

// GetSetting implements settings.Store.
func (s *Store) GetSetting(ctx context.Context, key, def string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.globals[key]; ok {
		return v, nil
	}
	return def, nil
}

// GetWorkerKeySafetySetting implements settings.Store.
func (s *Store) GetWorkerKeySafetySetting(ctx context.Context, apiKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.safetyOff[apiKey], nil
}

// SetWorkerKeySafety is a test/admin helper to seed per-key policy.
func (s *Store) SetWorkerKeySafety(apiKey string, safetyOff bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.safetyOff[apiKey] = safetyOff
}
