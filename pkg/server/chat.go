package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/auth"
	"github.com/oaigw/gateway/pkg/backend"
	"github.com/oaigw/gateway/pkg/catalog"
	"github.com/oaigw/gateway/pkg/stream"
	"github.com/oaigw/gateway/pkg/translate"
	"github.com/oaigw/gateway/pkg/upstream"
)

// handleChatCompletions serves POST /v1/chat/completions, dispatching to
// whichever backend the catalog resolves the requested model to, in
// streaming, non-streaming, or keep-alive mode.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ChatCompletionRequest
	if err := decodeJSON(w, r, &req, s.maxBodySize()); err != nil {
		return
	}

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

	dispatch, ok := catalog.Resolve(req.Model, toModelConfigs(modelsCfg), opts)
	if !ok {
		writeAPIError(w, api.NewInvalidRequestError("model", fmt.Sprintf("unknown model %q", req.Model)))
		return
	}

	identity := auth.IdentityFromContext(ctx)
	safetyOff := identityBool(identity, "safety_filtering_off")
	keepAliveWanted := identityBool(identity, "keep_alive_enabled")
	if !safetyOff {
		if key := bearerToken(r); key != "" {
			if off, err := s.Store.GetWorkerKeySafetySetting(ctx, key); err == nil && off {
				safetyOff = true
			}
		}
	}

	var category string
	if m, ok := modelsCfg[dispatch.Model]; ok {
		category = m.Category
	}

	reqOpts := translate.RequestOptions{
		SupportsSystemInstruction: supportsSystemInstruction(category, safetyOff),
		ThinkingBudget:            dispatch.ThinkingBudget,
		Temperature:               req.Temperature,
		MaxTokens:                 req.MaxTokens,
	}

	upstreamReq, _ := translate.ToChat(&req, reqOpts, s.Log)
	if dispatch.EnableSearchTool {
		upstreamReq.Tools = append(upstreamReq.Tools, upstream.ToolDeclaration{GoogleSearch: &upstream.GoogleSearchTool{}})
	}

	// Keep-alive is engaged only when all three hold: the client asked to
	// stream, the caller's key enables keep-alive, and the caller's key has
	// safety filtering off.
	useKeepAlive := req.Stream && keepAliveWanted && safetyOff

	// model echoes the client's originally requested (possibly virtual) id
	// back unchanged, regardless of what dispatch resolved it to.
	model := req.Model

	if dispatch.Backend == catalog.BackendAlternate {
		s.dispatchAlternate(ctx, w, upstreamReq, dispatch, model, req.Stream, useKeepAlive)
		return
	}
	s.dispatchDirect(ctx, w, upstreamReq, dispatch, model, req.Stream, useKeepAlive)
}

func (s *Server) dispatchDirect(ctx context.Context, w http.ResponseWriter, upstreamReq *upstream.GenerateContentRequest, dispatch catalog.Dispatch, model string, wantStream, useKeepAlive bool) {
	switch {
	case useKeepAlive:
		s.serveKeepAlive(ctx, w, model, func(ctx context.Context, cb backend.KeepAliveCallback) (backend.Result, error) {
			return s.Direct.ProxyChatCompletions(ctx, upstreamReq, dispatch.Model, false, dispatch.ThinkingBudget, cb)
		})
	case wantStream:
		s.serveStream(ctx, w, model, func(ctx context.Context) (backend.Result, error) {
			return s.Direct.ProxyChatCompletions(ctx, upstreamReq, dispatch.Model, true, dispatch.ThinkingBudget, nil)
		})
	default:
		result, err := s.Direct.ProxyChatCompletions(ctx, upstreamReq, dispatch.Model, false, dispatch.ThinkingBudget, nil)
		s.serveNonStream(w, model, result, err)
	}
}

func (s *Server) dispatchAlternate(ctx context.Context, w http.ResponseWriter, upstreamReq *upstream.GenerateContentRequest, dispatch catalog.Dispatch, model string, wantStream, useKeepAlive bool) {
	if s.Alternate == nil || !s.Alternate.IsEnabled() {
		writeAPIError(w, api.NewInvalidRequestError("model", "alternate backend is not enabled"))
		return
	}
	switch {
	case useKeepAlive:
		s.serveKeepAlive(ctx, w, model, func(ctx context.Context, cb backend.KeepAliveCallback) (backend.Result, error) {
			return s.Alternate.ProxyChatCompletions(ctx, upstreamReq, dispatch.Model, false, cb)
		})
	case wantStream:
		s.serveStream(ctx, w, model, func(ctx context.Context) (backend.Result, error) {
			return s.Alternate.ProxyChatCompletions(ctx, upstreamReq, dispatch.Model, true, nil)
		})
	default:
		result, err := s.Alternate.ProxyChatCompletions(ctx, upstreamReq, dispatch.Model, false, nil)
		s.serveNonStream(w, model, result, err)
	}
}

// serveKeepAlive runs the keep-alive pump concurrently with call, then
// finalizes the stream from whatever call returns. The pump and the
// upstream HTTP call are the only two goroutines touching one request.
func (s *Server) serveKeepAlive(ctx context.Context, w http.ResponseWriter, model string, call func(ctx context.Context, cb backend.KeepAliveCallback) (backend.Result, error)) {
	w.Header().Set("X-Proxied-By", ProxiedBy)

	writer := stream.NewWriter(w)
	cb := newKeepAliveCallback(ctx, w, writer, model, s.Log)

	result, err := call(ctx, cb)
	if err != nil {
		_ = cb.SendError(err)
		return
	}
	_ = cb.SendFinalResponse(result.Response)
}

// serveStream consumes the backend's raw byte stream through the chunker
// and translator, writing one SSE frame per translated chunk. Unlike the
// keep-alive path, the backend call here returns
// before any bytes reach the client, so the selected credential is known
// up front and can be set as a response header.
func (s *Server) serveStream(ctx context.Context, w http.ResponseWriter, model string, call func(ctx context.Context) (backend.Result, error)) {
	result, err := call(ctx)
	if err != nil {
		s.writeStreamError(w, err)
		return
	}
	if result.Body == nil {
		s.writeStreamError(w, fmt.Errorf("server: backend returned no stream body"))
		return
	}
	defer result.Body.Close()

	w.Header().Set("X-Proxied-By", ProxiedBy)
	if result.SelectedKeyID != "" {
		w.Header().Set("X-Selected-Key-ID", result.SelectedKeyID)
	}

	writer := stream.NewWriter(w)
	translator := stream.NewTranslator(model, s.Log)
	chunker := stream.NewChunker()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			_ = writer.WriteDone()
			return
		default:
		}

		n, readErr := result.Body.Read(buf)
		if n > 0 {
			for _, obj := range chunker.Feed(buf[:n]) {
				for _, chunk := range translator.Translate(obj) {
					if writeErr := writer.WriteJSON(chunk); writeErr != nil {
						// Client disconnected or the connection otherwise
						// failed; stop reading upstream.
						return
					}
				}
			}
		}
		if readErr != nil {
			if chunker.Flush() {
				s.Log.Debug("server: discarding malformed residual stream tail")
			}
			if readErr != io.EOF {
				s.Log.Warn("server: stream read error", "error", readErr)
			}
			_ = writer.WriteDone()
			return
		}
	}
}

// writeStreamError is used when the upstream call itself failed before any
// stream body was obtained; the client asked for SSE, so the error is
// still delivered as a single error frame followed by [DONE] rather than a
// plain JSON body.
func (s *Server) writeStreamError(w http.ResponseWriter, err error) {
	w.Header().Set("X-Proxied-By", ProxiedBy)
	writer := stream.NewWriter(w)
	_ = writer.WriteJSON(api.ErrorResponse{Error: toAPIError(err)})
	_ = writer.WriteDone()
}

// serveNonStream writes the single-shot translated JSON completion, or a
// JSON error body if the upstream call failed. A panic from the translator
// itself (as opposed to an upstream failure) is recovered and surfaced as
// a well-formed error-shaped completion rather than propagating to
// transport.Recovery's generic server_error envelope.
func (s *Server) serveNonStream(w http.ResponseWriter, model string, result backend.Result, err error) {
	w.Header().Set("X-Proxied-By", ProxiedBy)
	if result.SelectedKeyID != "" {
		w.Header().Set("X-Selected-Key-ID", result.SelectedKeyID)
	}
	if err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}

	resp := s.translateChatResponse(model, result.Response)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// translateChatResponse isolates the recover boundary around
// translate.FromChat so a translation-time panic degrades to
// translate.FromChatError's placeholder completion instead of crashing the
// request.
func (s *Server) translateChatResponse(model string, upstreamResp *upstream.GenerateContentResponse) (resp *api.ChatCompletionResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			s.Log.Error("server: recovered translation panic", "error", rec)
			resp = translate.FromChatError(model)
		}
	}()
	return translate.FromChat(upstreamResp, model)
}

// toAPIError maps a backend error to an api.APIError, preferring the
// backend's own status code when it carried one.
func toAPIError(err error) *api.APIError {
	var statusErr *backend.UpstreamStatusError
	if errors.As(err, &statusErr) {
		return api.NewUpstreamError(err.Error(), statusErr.Status)
	}
	return api.NewUpstreamError(err.Error(), 0)
}
