package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/stream"
	"github.com/oaigw/gateway/pkg/translate"
	"github.com/oaigw/gateway/pkg/upstream"
)

// keepAliveCallback implements backend.KeepAliveCallback. A proxy calls
// StartHeartbeat as soon as it begins waiting on the upstream and
// StopHeartbeat once the wait ends; the handler then calls exactly one of
// SendFinalResponse/SendError with the outcome.
type keepAliveCallback struct {
	ctx    context.Context
	raw    http.ResponseWriter
	writer *stream.Writer
	model  string
	log    *slog.Logger
	pump   *stream.Pump
}

func newKeepAliveCallback(ctx context.Context, raw http.ResponseWriter, w *stream.Writer, model string, log *slog.Logger) *keepAliveCallback {
	return &keepAliveCallback{ctx: ctx, raw: raw, writer: w, model: model, log: log}
}

func (c *keepAliveCallback) StartHeartbeat() {
	c.pump = stream.Start(c.ctx, c.writer)
}

func (c *keepAliveCallback) StopHeartbeat() {
	if c.pump != nil {
		c.pump.Stop()
	}
}

// SendFinalResponse repackages the non-streaming translator's output as a
// single chat.completion.chunk and closes the stream.
func (c *keepAliveCallback) SendFinalResponse(resp *upstream.GenerateContentResponse) error {
	chat := translate.FromChat(resp, c.model)

	var content string
	var finishReason *string
	if len(chat.Choices) > 0 {
		content = chat.Choices[0].Message.Content
		finishReason = chat.Choices[0].FinishReason
	}

	chunk := &api.ChatCompletionChunk{
		ID:      chat.ID,
		Object:  "chat.completion.chunk",
		Created: chat.Created,
		Model:   chat.Model,
		Choices: []api.ChunkChoice{{
			Index:        0,
			Delta:        api.Delta{Role: "assistant", Content: content},
			FinishReason: finishReason,
		}},
	}

	if err := c.writer.WriteJSON(chunk); err != nil {
		c.log.Warn("server: writing keep-alive final frame failed", "error", err)
	}
	return c.writer.WriteDone()
}

// SendError delivers the failure in whichever shape matches what the
// client has already seen: a plain JSON
// error body with the mapped HTTP status if no heartbeat has gone out yet,
// or a single SSE error frame followed by [DONE] once the stream has
// already committed to SSE headers.
func (c *keepAliveCallback) SendError(err error) error {
	apiErr := toAPIError(err)
	if !c.writer.HasStartedStreaming() {
		writeAPIError(c.raw, apiErr)
		return nil
	}
	if writeErr := c.writer.WriteJSON(api.ErrorResponse{Error: apiErr}); writeErr != nil {
		c.log.Warn("server: writing keep-alive error frame failed", "error", writeErr)
	}
	return c.writer.WriteDone()
}
