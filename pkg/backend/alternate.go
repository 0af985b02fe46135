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

// AlternateHTTPProxy implements AlternateProxy against the service-account
// authenticated cloud platform, distinguished by the `[v]` virtual model
// prefix.
type AlternateHTTPProxy struct {
	BaseURL string
	Client  *http.Client
	SAPool  *credentials.ServiceAccountPool
	Models  []string
	Enabled bool
}

// IsEnabled implements backend.AlternateProxy.
func (a *AlternateHTTPProxy) IsEnabled() bool { return a.Enabled }

// SupportedModels implements backend.AlternateProxy.
func (a *AlternateHTTPProxy) SupportedModels() []string { return a.Models }

// ProxyChatCompletions implements backend.AlternateProxy.
func (a *AlternateHTTPProxy) ProxyChatCompletions(ctx context.Context, req *upstream.GenerateContentRequest, model string, stream bool, cb KeepAliveCallback) (Result, error) {
	keyID, token, err := a.SAPool.Select(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("backend: selecting service account: %w", err)
	}
	observability.CredentialSelectionsTotal.WithLabelValues(keyID, "selected").Inc()

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("backend: marshaling request: %w", err)
	}

	action := "generateContent"
	if stream {
		action = "streamGenerateContent"
	}
	url := fmt.Sprintf("%s/models/%s:%s", a.BaseURL, model, action)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("backend: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	if cb != nil {
		cb.StartHeartbeat()
		defer cb.StopHeartbeat()
	}

	start := time.Now()
	resp, err := a.Client.Do(httpReq)
	observability.UpstreamLatency.WithLabelValues("alternate", model).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues("alternate", model, "error").Inc()
		return Result{SelectedKeyID: keyID}, fmt.Errorf("backend: upstream request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		observability.UpstreamRequestsTotal.WithLabelValues("alternate", model, "error").Inc()
		return Result{SelectedKeyID: keyID}, &UpstreamStatusError{Status: resp.StatusCode}
	}
	observability.UpstreamRequestsTotal.WithLabelValues("alternate", model, "success").Inc()

	if stream {
		return Result{Body: resp.Body, SelectedKeyID: keyID}, nil
	}

	defer resp.Body.Close()
	var decoded upstream.GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{SelectedKeyID: keyID}, fmt.Errorf("backend: decoding response: %w", err)
	}
	if decoded.UsageMetadata != nil {
		observability.UpstreamTokensTotal.WithLabelValues("alternate", model, "input").Add(float64(decoded.UsageMetadata.PromptTokenCount))
		observability.UpstreamTokensTotal.WithLabelValues("alternate", model, "output").Add(float64(decoded.UsageMetadata.CandidatesTokenCount))
	}
	return Result{Response: &decoded, SelectedKeyID: keyID, IsKeepAlive: cb != nil}, nil
}
