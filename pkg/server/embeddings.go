package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/backend"
	"github.com/oaigw/gateway/pkg/translate"
	"github.com/oaigw/gateway/pkg/upstream"
)

// handleEmbeddings serves POST /v1/embedded.
func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.EmbeddingsRequest
	if err := decodeJSON(w, r, &req, s.maxBodySize()); err != nil {
		return
	}

	if bad, ok := translate.ValidateEmbeddingInput(req.Input); !ok {
		writeEmbeddingsError(w, req.Model, api.NewInvalidRequestError("input",
			"embedding input must be at least 5 characters: got "+bad))
		return
	}

	requests := translate.ToEmbeddingsRequests(req.Input)
	responses := make([]*upstream.EmbedContentResponse, len(requests))
	var selectedKeyID string

	for i := range requests {
		resp, keyID, err := s.Direct.EmbedContent(ctx, &requests[i], req.Model)
		if keyID != "" {
			selectedKeyID = keyID
		}
		if err != nil {
			var statusErr *backend.UpstreamStatusError
			if errors.As(err, &statusErr) {
				writeAPIError(w, api.NewUpstreamError(err.Error(), statusErr.Status))
			} else {
				writeAPIError(w, api.NewUpstreamError(err.Error(), 0))
			}
			return
		}
		responses[i] = resp
	}

	out, ok := translate.FromEmbeddingResponses(req.Model, responses)
	if !ok {
		writeEmbeddingsError(w, req.Model, api.NewTransformError("embedding response did not match any known upstream shape"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Proxied-By", ProxiedBy)
	w.Header().Set("X-Selected-Key-ID", selectedKeyID)
	_ = json.NewEncoder(w).Encode(out)
}

// writeEmbeddingsError writes an otherwise-normal embeddings list
// response with an empty data array and the failure
// attached as its error field, rather than the bare error envelope other
// routes use.
func writeEmbeddingsError(w http.ResponseWriter, model string, apiErr *api.APIError) {
	status := apiErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Proxied-By", ProxiedBy)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.EmbeddingsResponse{
		Object: "list",
		Data:   []api.EmbeddingObject{},
		Model:  model,
		Error:  apiErr,
	})
}
