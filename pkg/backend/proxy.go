// Package backend implements the two south-bound collaborators: DirectProxy
// (the direct model API) and AlternateProxy (the
// service-account-authenticated cloud platform).
package backend

import (
	"context"
	"io"

	"github.com/oaigw/gateway/pkg/upstream"
)

// KeepAliveCallback is the contract between the keep-alive pump and
// whichever proxy is handling a streaming request. A proxy
// calls StartHeartbeat as soon as it begins waiting on the upstream and
// StopHeartbeat once the wait ends; the caller that handed in the callback
// then finalizes the stream with exactly one of SendFinalResponse/SendError.
type KeepAliveCallback interface {
	StartHeartbeat()
	StopHeartbeat()
	SendFinalResponse(resp *upstream.GenerateContentResponse) error
	SendError(err error) error
}

// Result is the outcome of one proxied call.
type Result struct {
	// Body is the raw upstream response body; non-nil only for streaming
	// calls, where the caller (the stream chunker) consumes it directly.
	Body io.ReadCloser
	// Response is the decoded non-streaming response; non-nil only for
	// non-streaming calls.
	Response *upstream.GenerateContentResponse
	// SelectedKeyID identifies which pooled credential served the call,
	// echoed to the client via X-Selected-Key-ID.
	SelectedKeyID string
	// IsKeepAlive is true when this result was produced under an engaged
	// keep-alive callback rather than a plain round trip.
	IsKeepAlive bool
}

// DirectProxy dispatches a request to the direct, API-key-authenticated
// model backend.
type DirectProxy interface {
	ProxyChatCompletions(ctx context.Context, req *upstream.GenerateContentRequest, model string, stream bool, thinkingBudget *int, cb KeepAliveCallback) (Result, error)
	// EmbedContent dispatches one embedding request; the embeddings route
	// has no streaming or keep-alive mode.
	EmbedContent(ctx context.Context, req *upstream.EmbedContentRequest, model string) (*upstream.EmbedContentResponse, string, error)
}

// AlternateProxy dispatches a request to the service-account-authenticated
// cloud platform, distinguished by the `[v]` virtual model prefix.
type AlternateProxy interface {
	IsEnabled() bool
	SupportedModels() []string
	ProxyChatCompletions(ctx context.Context, req *upstream.GenerateContentRequest, model string, stream bool, cb KeepAliveCallback) (Result, error)
}
