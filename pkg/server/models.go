package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/catalog"
)

// handleModels serves GET /v1/models, enumerating the same synthesized
// catalog request-time dispatch validates against.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	modelsCfg, err := s.Store.GetModelsConfig(ctx)
	if err != nil {
		writeAPIError(w, api.NewServerError("loading model configuration: "+err.Error()))
		return
	}

	opts, err := s.catalogOptions(r)
	if err != nil {
		writeAPIError(w, api.NewServerError(err.Error()))
		return
	}

	entries := catalog.Enumerate(toModelConfigs(modelsCfg), opts)
	now := time.Now().Unix()

	resp := api.ModelsResponse{Object: "list", Data: make([]api.ModelEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Data = append(resp.Data, api.ModelEntry{ID: e.ID, Object: "model", Created: now, OwnedBy: e.OwnedBy})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Proxied-By", ProxiedBy)
	_ = json.NewEncoder(w).Encode(resp)
}
