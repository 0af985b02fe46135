package stream

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/translate"
	"github.com/oaigw/gateway/pkg/upstream"
)

// Translator converts each JSON object the Chunker yields into zero or more
// OpenAI chat.completion.chunk frames (more only when the object is an
// array). It keeps its own
// tool-call index counter so synthetic ids stay stable across frames of the
// same response.
type Translator struct {
	id      string
	model   string
	created int64
	log     *slog.Logger
	callIdx int
}

// NewTranslator starts a translator for one streamed response. id and
// created are fixed for every chunk of this stream, mirroring how a real
// OpenAI stream repeats the same response id across chunks.
func NewTranslator(model string, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	return &Translator{
		id:      api.NewChatCompletionID(),
		model:   model,
		created: time.Now().Unix(),
		log:     log,
	}
}

// Translate converts one raw JSON object (as produced by the Chunker) into
// zero or more chunk frames ready for Writer.WriteJSON. gjson is used to
// probe the object's shape before committing to a full unmarshal, since the
// three shapes (chat-chunk, array, bare text fragment) require different
// decode targets.
func (t *Translator) Translate(raw string) []*api.ChatCompletionChunk {
	parsed := gjson.Parse(raw)

	if parsed.IsArray() {
		var out []*api.ChatCompletionChunk
		for _, elem := range parsed.Array() {
			out = append(out, t.Translate(elem.Raw)...)
		}
		return out
	}

	if parsed.Get("done").Bool() && !parsed.Get("candidates").Exists() {
		// Sentinel from the alternate backend's own framer; the outer
		// layer emits [DONE] itself.
		return nil
	}

	if parsed.Get("candidates").Exists() {
		var resp upstream.GenerateContentResponse
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			t.log.Warn("stream: malformed candidate object", "error", err)
			return nil
		}
		return t.fromCandidates(&resp)
	}

	if textVal := parsed.Get("text"); textVal.Exists() {
		wrapped := upstream.GenerateContentResponse{
			Candidates: []upstream.Candidate{{
				Content: upstream.Content{Role: "model", Parts: []upstream.Part{{Text: textVal.String()}}},
			}},
		}
		return t.fromCandidates(&wrapped)
	}

	// Already OpenAI-shaped: the alternate backend's own stream payloads
	// pass through untouched.
	var chunk api.ChatCompletionChunk
	if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
		t.log.Debug("stream: unrecognized object shape, dropping", "raw", raw)
		return nil
	}
	return []*api.ChatCompletionChunk{&chunk}
}

func (t *Translator) fromCandidates(resp *upstream.GenerateContentResponse) []*api.ChatCompletionChunk {
	if len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]

	var content string
	var toolCalls []api.ToolCall
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			content += p.Text
		}
		if p.FunctionCall != nil {
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			encoded, err := json.Marshal(args)
			if err != nil {
				encoded = []byte("{}")
			}
			toolCalls = append(toolCalls, api.ToolCall{
				ID:   api.NewToolCallID(p.FunctionCall.Name, t.callIdx),
				Type: "function",
				Function: api.FunctionCall{
					Name:      p.FunctionCall.Name,
					Arguments: string(encoded),
				},
			})
			t.callIdx++
		}
	}

	finishReason := translate.MapFinishReason(cand.FinishReason, len(toolCalls) > 0)

	delta := api.Delta{}
	if content != "" || len(toolCalls) > 0 {
		delta.Role = "assistant"
		delta.Content = content
		delta.ToolCalls = toolCalls
	}

	if content == "" && len(toolCalls) == 0 && finishReason == nil {
		// Nothing meaningful to report; drop the chunk.
		return nil
	}

	return []*api.ChatCompletionChunk{{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: t.created,
		Model:   t.model,
		Choices: []api.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}}
}
