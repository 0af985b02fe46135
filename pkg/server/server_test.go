package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/backend"
	"github.com/oaigw/gateway/pkg/settings"
	memsettings "github.com/oaigw/gateway/pkg/settings/memory"
	"github.com/oaigw/gateway/pkg/upstream"
)

// fakeDirectProxy is a test double for backend.DirectProxy.
type fakeDirectProxy struct {
	response    *upstream.GenerateContentResponse
	streamBody  string
	err         error
	selectedKey string
}

func (f *fakeDirectProxy) ProxyChatCompletions(_ context.Context, _ *upstream.GenerateContentRequest, _ string, stream bool, _ *int, cb backend.KeepAliveCallback) (backend.Result, error) {
	if cb != nil {
		cb.StartHeartbeat()
		defer cb.StopHeartbeat()
	}
	if f.err != nil {
		return backend.Result{SelectedKeyID: f.selectedKey}, f.err
	}
	if stream {
		return backend.Result{Body: io.NopCloser(strings.NewReader(f.streamBody)), SelectedKeyID: f.selectedKey}, nil
	}
	return backend.Result{Response: f.response, SelectedKeyID: f.selectedKey}, nil
}

func (f *fakeDirectProxy) EmbedContent(_ context.Context, _ *upstream.EmbedContentRequest, _ string) (*upstream.EmbedContentResponse, string, error) {
	return &upstream.EmbedContentResponse{Embedding: &upstream.ValuesHolder{Values: []float64{0.1, 0.2}}}, f.selectedKey, nil
}

type disabledAlternate struct{}

func (disabledAlternate) IsEnabled() bool           { return false }
func (disabledAlternate) SupportedModels() []string { return nil }
func (disabledAlternate) ProxyChatCompletions(context.Context, *upstream.GenerateContentRequest, string, bool, backend.KeepAliveCallback) (backend.Result, error) {
	return backend.Result{}, nil
}

func newTestServer(t *testing.T, direct *fakeDirectProxy) (*Server, *memsettings.Store) {
	t.Helper()
	store := memsettings.New(map[string]settings.ModelSetting{
		"gemini-2.5-flash-preview": {ID: "gemini-2.5-flash-preview", Category: "standard"},
	}, nil)
	srv := New(store, direct, disabledAlternate{}, DefaultConfig(), nil)
	return srv, store
}

func TestHandleChatCompletionsSimpleTextNonStream(t *testing.T) {
	direct := &fakeDirectProxy{
		selectedKey: "key-a",
		response: &upstream.GenerateContentResponse{
			Candidates: []upstream.Candidate{
				{Content: upstream.Content{Role: "model", Parts: []upstream.Part{{Text: "hello"}}}, FinishReason: "STOP"},
			},
			UsageMetadata: &upstream.UsageMetadata{PromptTokenCount: 1, CandidatesTokenCount: 1, TotalTokenCount: 2},
		},
	}
	srv, _ := newTestServer(t, direct)

	body := `{"model":"gemini-2.5-flash-preview","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Selected-Key-ID") != "key-a" {
		t.Fatalf("expected X-Selected-Key-ID key-a, got %q", rec.Header().Get("X-Selected-Key-ID"))
	}
	var out api.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Choices[0].Message.Content != "hello" {
		t.Fatalf("expected content hello, got %q", out.Choices[0].Message.Content)
	}
	if out.Choices[0].FinishReason == nil || *out.Choices[0].FinishReason != "stop" {
		t.Fatalf("unexpected finish_reason: %v", out.Choices[0].FinishReason)
	}
}

func TestHandleChatCompletionsUnknownModelRejected(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDirectProxy{})

	body := `{"model":"not-a-real-model","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var out api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if out.Error.Type != api.ErrorTypeInvalidRequest {
		t.Fatalf("expected invalid_request_error, got %s", out.Error.Type)
	}
}

func TestHandleModelsEnumeratesNonThinkingVariant(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDirectProxy{})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out api.ModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding models response: %v", err)
	}
	found := false
	for _, m := range out.Data {
		if m.ID == "gemini-2.5-flash-preview:non-thinking" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected :non-thinking virtual id in catalog, got %#v", out.Data)
	}
}

func TestHandleEmbeddingsRejectsShortInput(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDirectProxy{})

	body := `{"model":"text-embedding-004","input":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/embedded", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleEmbeddingsSingularShape(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDirectProxy{selectedKey: "key-a"})

	body := `{"model":"text-embedding-004","input":"hello world"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/embedded", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out api.EmbeddingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding embeddings response: %v", err)
	}
	if len(out.Data) != 1 || len(out.Data[0].Embedding) != 2 {
		t.Fatalf("unexpected embeddings shape: %#v", out)
	}
}

func TestHandleChatCompletionsStreamEndsWithDone(t *testing.T) {
	direct := &fakeDirectProxy{
		selectedKey: "key-a",
		streamBody:  `{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"f","args":{"x":1}}}]},"finishReason":"TOOL_CALLS"}]}`,
	}
	srv, _ := newTestServer(t, direct)

	body := `{"model":"gemini-2.5-flash-preview","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	out := rec.Body.String()
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Fatalf("expected stream to end with [DONE], got %q", out)
	}
	if strings.Count(out, "data: [DONE]\n\n") != 1 {
		t.Fatalf("expected exactly one [DONE] frame, got %q", out)
	}
	if !strings.Contains(out, `"tool_calls"`) {
		t.Fatalf("expected a tool_calls frame, got %q", out)
	}
}
