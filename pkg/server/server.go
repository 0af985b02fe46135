package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/auth"
	"github.com/oaigw/gateway/pkg/backend"
	"github.com/oaigw/gateway/pkg/catalog"
	"github.com/oaigw/gateway/pkg/settings"
)

// ProxiedBy is the fixed value of the X-Proxied-By response header.
const ProxiedBy = "oaigw"

const defaultMaxBodySize = 10 << 20 // 10 MB

// Config holds the options Server needs beyond its collaborators.
type Config struct {
	MaxBodySize int64
	// AlternatePrefix is the virtual-model-id prefix routed to Alternate,
	// e.g. "[v]".
	AlternatePrefix string
	// SearchEnabledDefault seeds the "search_enabled" global setting when
	// the settings store has no override for it.
	SearchEnabledDefault bool
}

// DefaultConfig returns Config with the usual defaults filled in.
func DefaultConfig() Config {
	return Config{MaxBodySize: defaultMaxBodySize, AlternatePrefix: "[v]", SearchEnabledDefault: true}
}

// Server serves the OpenAI-compatible gateway routes. It holds no request
// state of its own; every field here is a shared, thread-safe collaborator.
type Server struct {
	Store     settings.Store
	Direct    backend.DirectProxy
	Alternate backend.AlternateProxy
	Log       *slog.Logger
	Config    Config

	mux *http.ServeMux
}

// New constructs a Server and registers its routes.
func New(store settings.Store, direct backend.DirectProxy, alternate backend.AlternateProxy, cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{Store: store, Direct: direct, Alternate: alternate, Config: cfg, Log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v1/models", s.handleModels)
	s.mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	s.mux.HandleFunc("POST /v1/embedded", s.handleEmbeddings)
}

// Handler returns the assembled http.Handler for the three north-bound
// routes. Callers apply their own ambient middleware (request id,
// recovery, logging, auth) around it, and register the unauthenticated
// /healthz and /metrics routes separately since those must stay reachable
// without a gateway API key.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) maxBodySize() int64 {
	if s.Config.MaxBodySize > 0 {
		return s.Config.MaxBodySize
	}
	return defaultMaxBodySize
}

// decodeJSON validates Content-Type, applies the body-size limit, and
// decodes the request body into v. On failure it writes the appropriate
// error response itself and returns a non-nil error the caller should treat
// as "already handled".
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBodySize int64) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		err := api.NewInvalidRequestError("content_type", "Content-Type must be application/json")
		writeAPIError(w, err)
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apiErr := api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", maxBodySize))
			writeAPIError(w, apiErr)
			return apiErr
		}
		apiErr := api.NewInvalidRequestError("body", "invalid JSON: "+err.Error())
		writeAPIError(w, apiErr)
		return apiErr
	}
	return nil
}

func writeAPIError(w http.ResponseWriter, err *api.APIError) {
	status := err.HTTPStatus
	if status == 0 {
		if err.Type == api.ErrorTypeInvalidRequest {
			status = http.StatusBadRequest
		} else {
			status = http.StatusInternalServerError
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: err})
}

// bearerToken extracts the caller's forwarded API key from the
// Authorization header, for the per-key safety-setting lookup in the
// settings store.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// identityBool reads a boolean metadata flag set by an auth.Authenticator
// (e.g. pkg/auth/apikey's safety_filtering_off/keep_alive_enabled policy
// flags); absent or unparsable values default to false.
func identityBool(identity *auth.Identity, key string) bool {
	if identity == nil || identity.Metadata == nil {
		return false
	}
	v, err := strconv.ParseBool(identity.Metadata[key])
	return err == nil && v
}

// catalogOptions builds catalog.Options for the current request, recomputed
// fresh each time; any caching belongs to the settings store.
func (s *Server) catalogOptions(r *http.Request) (catalog.Options, error) {
	ctx := r.Context()
	def := strconv.FormatBool(s.Config.SearchEnabledDefault)
	raw, err := s.Store.GetSetting(ctx, "search_enabled", def)
	if err != nil {
		return catalog.Options{}, fmt.Errorf("reading search_enabled setting: %w", err)
	}
	searchEnabled, _ := strconv.ParseBool(raw)

	opts := catalog.Options{
		SearchEnabled:   searchEnabled,
		AlternatePrefix: s.Config.AlternatePrefix,
	}
	if s.Alternate != nil && s.Alternate.IsEnabled() {
		opts.AlternateEnabled = true
		opts.AlternateModels = s.Alternate.SupportedModels()
	}
	return opts, nil
}

func toModelConfigs(models map[string]settings.ModelSetting) []catalog.ModelConfig {
	out := make([]catalog.ModelConfig, 0, len(models))
	for id, m := range models {
		out = append(out, catalog.ModelConfig{ID: id, Category: catalog.ModelCategory(m.Category)})
	}
	return out
}

// supportsSystemInstruction reports whether the system prompt may travel
// as a distinct systemInstruction field. A model family that never accepts
// one, or a caller with safety filtering disabled, gets the system prompt
// inlined as a user turn instead.
func supportsSystemInstruction(category string, safetyFilteringOff bool) bool {
	if safetyFilteringOff {
		return false
	}
	return category != "no-system-instruction"
}
