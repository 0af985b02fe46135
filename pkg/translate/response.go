package translate

import (
	"encoding/json"
	"time"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/upstream"
)

const safetyBlockedPlaceholder = "[Response blocked by safety filters]"

// FromChat converts a single-shot upstream response into an OpenAI
// chat.completion response. model is the virtual model id the client
// originally requested, echoed back unchanged.
func FromChat(resp *upstream.GenerateContentResponse, model string) *api.ChatCompletionResponse {
	out := &api.ChatCompletionResponse{
		ID:      api.NewChatCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
	}
	out.Usage = translateUsage(resp.UsageMetadata)

	if len(resp.Candidates) == 0 {
		reason := "error"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "content_filter"
		}
		out.Choices = []api.Choice{errorChoice(reason)}
		return out
	}

	cand := resp.Candidates[0]
	content, toolCalls := extractContentAndToolCalls(cand.Content.Parts)
	finishReason := MapFinishReason(cand.FinishReason, len(toolCalls) > 0)

	if content == "" && cand.FinishReason == "SAFETY" {
		content = safetyBlockedPlaceholder
	}

	out.Choices = []api.Choice{{
		Index: 0,
		Message: api.ResponseMessage{
			Role:      "assistant",
			Content:   content,
			ToolCalls: toolCalls,
		},
		FinishReason: finishReason,
	}}
	return out
}

func errorChoice(reason string) api.Choice {
	r := reason
	return api.Choice{
		Index: 0,
		Message: api.ResponseMessage{
			Role:    "assistant",
			Content: "",
		},
		FinishReason: &r,
	}
}

// extractContentAndToolCalls concatenates text parts and maps function-call
// parts to OpenAI tool calls with synthetic ids.
func extractContentAndToolCalls(parts []upstream.Part) (string, []api.ToolCall) {
	var content string
	var calls []api.ToolCall
	idx := 0
	for _, p := range parts {
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
			calls = append(calls, api.ToolCall{
				ID:   api.NewToolCallID(p.FunctionCall.Name, idx),
				Type: "function",
				Function: api.FunctionCall{
					Name:      p.FunctionCall.Name,
					Arguments: string(encoded),
				},
			})
			idx++
		}
	}
	return content, calls
}

// MapFinishReason maps an upstream finish reason to the OpenAI equivalent.
// hasToolCalls forces "tool_calls" whenever tool calls are present and the
// mapped reason isn't stop/length.
func MapFinishReason(upstreamReason string, hasToolCalls bool) *string {
	var mapped string
	switch upstreamReason {
	case "STOP":
		mapped = "stop"
	case "MAX_TOKENS":
		mapped = "length"
	case "SAFETY", "RECITATION":
		mapped = "content_filter"
	case "TOOL_CALLS":
		mapped = "tool_calls"
	case "", "FINISH_REASON_UNSPECIFIED", "OTHER":
		if hasToolCalls {
			return ptr("tool_calls")
		}
		return nil
	default:
		if hasToolCalls {
			return ptr("tool_calls")
		}
		return nil
	}
	if hasToolCalls && mapped != "stop" && mapped != "length" {
		mapped = "tool_calls"
	}
	return &mapped
}

func ptr(s string) *string { return &s }

func translateUsage(u *upstream.UsageMetadata) api.Usage {
	if u == nil {
		return api.Usage{}
	}
	return api.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}

// FromChatError builds a well-formed error-shaped chat.completion for a
// translation exception on the non-stream path.
func FromChatError(model string) *api.ChatCompletionResponse {
	return &api.ChatCompletionResponse{
		ID:      api.NewChatCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []api.Choice{errorChoice("error")},
	}
}
