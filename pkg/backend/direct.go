package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oaigw/gateway/pkg/credentials"
	"github.com/oaigw/gateway/pkg/observability"
	"github.com/oaigw/gateway/pkg/upstream"
)

// DirectHTTPProxy implements DirectProxy against the direct, API-key
// authenticated model backend over plain HTTPS.
type DirectHTTPProxy struct {
	BaseURL string
	Client  *http.Client
	Keys    *credentials.APIKeyPool
}

// NewDirectHTTPProxy constructs a DirectHTTPProxy with a sane default
// client if none is supplied.
func NewDirectHTTPProxy(baseURL string, keys *credentials.APIKeyPool, client *http.Client) *DirectHTTPProxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &DirectHTTPProxy{BaseURL: baseURL, Client: client, Keys: keys}
}

// ProxyChatCompletions implements backend.DirectProxy.
func (d *DirectHTTPProxy) ProxyChatCompletions(ctx context.Context, req *upstream.GenerateContentRequest, model string, stream bool, thinkingBudget *int, cb KeepAliveCallback) (Result, error) {
	keyID, key, ok := d.Keys.Select()
	if !ok {
		return Result{}, fmt.Errorf("backend: no healthy direct API keys available")
	}
	observability.CredentialSelectionsTotal.WithLabelValues(keyID, "selected").Inc()

	if thinkingBudget != nil {
		if req.GenerationConfig == nil {
			req.GenerationConfig = &upstream.GenerationConfig{}
		}
		req.GenerationConfig.ThinkingConfig = &upstream.ThinkingConfig{ThinkingBudget: *thinkingBudget}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("backend: marshaling request: %w", err)
	}

	action := "generateContent"
	if stream {
		action = "streamGenerateContent"
	}
	url := fmt.Sprintf("%s/models/%s:%s?key=%s", d.BaseURL, model, action, key)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("backend: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if cb != nil {
		cb.StartHeartbeat()
		defer cb.StopHeartbeat()
	}

	start := time.Now()
	resp, err := d.Client.Do(httpReq)
	observability.UpstreamLatency.WithLabelValues("direct", model).Observe(time.Since(start).Seconds())
	if err != nil {
		d.Keys.MarkUnhealthy(keyID)
		observability.CredentialSelectionsTotal.WithLabelValues(keyID, "unhealthy").Inc()
		observability.UpstreamRequestsTotal.WithLabelValues("direct", model, "error").Inc()
		return Result{SelectedKeyID: keyID}, fmt.Errorf("backend: upstream request failed: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		d.Keys.MarkUnhealthy(keyID)
		observability.CredentialSelectionsTotal.WithLabelValues(keyID, "unhealthy").Inc()
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		observability.UpstreamRequestsTotal.WithLabelValues("direct", model, "error").Inc()
		return Result{SelectedKeyID: keyID}, &UpstreamStatusError{Status: resp.StatusCode}
	}
	observability.UpstreamRequestsTotal.WithLabelValues("direct", model, "success").Inc()

	if stream {
		return Result{Body: resp.Body, SelectedKeyID: keyID}, nil
	}

	defer resp.Body.Close()
	var decoded upstream.GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{SelectedKeyID: keyID}, fmt.Errorf("backend: decoding response: %w", err)
	}
	if decoded.UsageMetadata != nil {
		observability.UpstreamTokensTotal.WithLabelValues("direct", model, "input").Add(float64(decoded.UsageMetadata.PromptTokenCount))
		observability.UpstreamTokensTotal.WithLabelValues("direct", model, "output").Add(float64(decoded.UsageMetadata.CandidatesTokenCount))
	}
	return Result{Response: &decoded, SelectedKeyID: keyID, IsKeepAlive: cb != nil}, nil
}

// EmbedContent implements DirectProxy. The embeddings route has no
// streaming or keep-alive mode, so this is a plain request/response round
// trip.
func (d *DirectHTTPProxy) EmbedContent(ctx context.Context, req *upstream.EmbedContentRequest, model string) (*upstream.EmbedContentResponse, string, error) {
	keyID, key, ok := d.Keys.Select()
	if !ok {
		return nil, "", fmt.Errorf("backend: no healthy direct API keys available")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, keyID, fmt.Errorf("backend: marshaling embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", d.BaseURL, model, key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, keyID, fmt.Errorf("backend: building embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(httpReq)
	if err != nil {
		d.Keys.MarkUnhealthy(keyID)
		return nil, keyID, fmt.Errorf("backend: upstream embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		d.Keys.MarkUnhealthy(keyID)
	}
	if resp.StatusCode >= 400 {
		return nil, keyID, &UpstreamStatusError{Status: resp.StatusCode}
	}

	var decoded upstream.EmbedContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, keyID, fmt.Errorf("backend: decoding embedding response: %w", err)
	}
	return &decoded, keyID, nil
}

// UpstreamStatusError carries the backend's own non-2xx status so the
// transport layer can map it to api.NewUpstreamError.
type UpstreamStatusError struct {
	Status int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("backend: upstream returned status %d", e.Status)
}
