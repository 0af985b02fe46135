// Package settings defines the persistent settings/quota store and the
// interface the catalog and translation layers consume from it.
package settings

import "context"

// ModelSetting is one persistently configured model entry.
type ModelSetting struct {
	ID              string
	Category        string
	DailyQuota      *int
	IndividualQuota *int
}

// Store is the external settings/quota collaborator. Implementations must
// be internally thread-safe.
type Store interface {
	// GetModelsConfig returns the full configured model set, keyed by id.
	GetModelsConfig(ctx context.Context) (map[string]ModelSetting, error)
	// GetSetting returns a named global setting, or def if unset.
	GetSetting(ctx context.Context, key, def string) (string, error)
	// GetWorkerKeySafetySetting reports whether safety filtering is
	// disabled for the given caller API key, used to gate the keep-alive
	// pump.
	GetWorkerKeySafetySetting(ctx context.Context, apiKey string) (safetyFilteringOff bool, err error)
}
