// Package catalog enumerates the virtual model ids this gateway exposes and
// resolves a requested model id to a concrete dispatch decision. The
// catalog is the single source of truth consulted both by `GET /v1/models`
// and by request-time validation.
package catalog

import (
	"regexp"
	"strings"
)

// ModelCategory groups configured models for policy purposes (e.g.
// whether the family accepts a distinct system instruction). Enumerate and
// Resolve do not read it; virtual variants are derived from the model id.
type ModelCategory string

// ModelConfig is one persistently configured upstream model, as supplied by
// the external settings store.
type ModelConfig struct {
	ID       string
	Category ModelCategory
}

// Options toggles the globally-enabled virtual families.
type Options struct {
	SearchEnabled    bool
	AlternateEnabled bool
	// AlternatePrefix is the fixed virtual-id prefix for alternate-backend
	// models, e.g. "[v]".
	AlternatePrefix string
	// AlternateModels lists the alternate backend's supported model ids.
	AlternateModels []string
}

const (
	nonThinkingSuffix = ":non-thinking"
	searchSuffix      = "-search"
)

var searchFamilyPattern = regexp.MustCompile(`-[2-9]\.\d`)

const nonThinkingFamilyMarker = "-2.5-flash-preview"

// Entry is one synthesized catalog row.
type Entry struct {
	ID      string
	OwnedBy string
}

// Enumerate recomputes the full virtual model set from the given base
// configuration on every call; any caching belongs to the settings store.
func Enumerate(models []ModelConfig, opts Options) []Entry {
	var out []Entry
	seen := make(map[string]bool)

	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, Entry{ID: id, OwnedBy: "google"})
	}

	for _, m := range models {
		add(m.ID)

		if opts.SearchEnabled && searchFamilyPattern.MatchString(m.ID) && !strings.HasSuffix(m.ID, searchSuffix) {
			add(m.ID + searchSuffix)
		}
		if strings.Contains(m.ID, nonThinkingFamilyMarker) && !strings.HasSuffix(m.ID, nonThinkingSuffix) {
			add(m.ID + nonThinkingSuffix)
		}
	}

	if opts.AlternateEnabled {
		for _, id := range opts.AlternateModels {
			add(opts.AlternatePrefix + id)
		}
	}

	return out
}

// Backend identifies which upstream collaborator handles a dispatched
// request.
type Backend int

const (
	BackendDirect Backend = iota
	BackendAlternate
)

// Dispatch is the resolved routing decision for one request.
type Dispatch struct {
	Backend Backend
	// Model is the concrete upstream model id, with any virtual suffix/
	// prefix already stripped.
	Model string
	// ThinkingBudget is set to 0 when the :non-thinking suffix was present.
	ThinkingBudget *int
	// EnableSearchTool is true when the -search suffix was present.
	EnableSearchTool bool
}

// Resolve validates requestedModel against the synthesized catalog and
// returns its dispatch decision. The second return is false when the
// model is not a member of the catalog; callers reject those with HTTP
// 400 invalid_request_error.
func Resolve(requestedModel string, models []ModelConfig, opts Options) (Dispatch, bool) {
	catalog := Enumerate(models, opts)
	member := false
	for _, e := range catalog {
		if e.ID == requestedModel {
			member = true
			break
		}
	}
	if !member {
		return Dispatch{}, false
	}

	if opts.AlternateEnabled && opts.AlternatePrefix != "" && strings.HasPrefix(requestedModel, opts.AlternatePrefix) {
		return Dispatch{
			Backend: BackendAlternate,
			Model:   strings.TrimPrefix(requestedModel, opts.AlternatePrefix),
		}, true
	}

	d := Dispatch{Backend: BackendDirect, Model: requestedModel}

	if strings.HasSuffix(d.Model, nonThinkingSuffix) {
		d.Model = strings.TrimSuffix(d.Model, nonThinkingSuffix)
		budget := 0
		d.ThinkingBudget = &budget
	}
	if strings.HasSuffix(d.Model, searchSuffix) {
		d.Model = strings.TrimSuffix(d.Model, searchSuffix)
		d.EnableSearchTool = true
	}

	return d, true
}
