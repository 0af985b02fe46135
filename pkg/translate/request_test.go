package translate

import (
	"encoding/json"
	"testing"

	"github.com/oaigw/gateway/pkg/api"
)

func TestToChatSimpleText(t *testing.T) {
	req := &api.ChatCompletionRequest{
		Model: "gemini-2.5-flash-preview",
		Messages: []api.Message{
			{Role: "user", Content: api.NewTextContent("hi")},
		},
	}
	out, _ := ToChat(req, RequestOptions{SupportsSystemInstruction: true}, nil)
	if len(out.Contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(out.Contents))
	}
	if out.Contents[0].Role != "user" || out.Contents[0].Parts[0].Text != "hi" {
		t.Fatalf("unexpected content: %#v", out.Contents[0])
	}
}

func TestToolCallThreading(t *testing.T) {
	req := &api.ChatCompletionRequest{
		Model: "gemini-2.5-flash-preview",
		Messages: []api.Message{
			{Role: "user", Content: api.NewTextContent("what's the weather")},
			{
				Role: "assistant",
				ToolCalls: []api.ToolCall{
					{ID: "c1", Type: "function", Function: api.FunctionCall{Name: "get_weather", Arguments: `{"city":"NYC"}`}},
				},
			},
			{Role: "tool", ToolCallID: "c1", Content: api.NewTextContent(`{"temp":70}`)},
		},
	}
	out, calls := ToChat(req, RequestOptions{SupportsSystemInstruction: true}, nil)

	if name, ok := calls.Resolve("c1"); !ok || name != "get_weather" {
		t.Fatalf("expected tool call map to resolve c1 to get_weather, got %q, %v", name, ok)
	}

	if len(out.Contents) != 3 {
		t.Fatalf("expected 3 contents, got %d: %#v", len(out.Contents), out.Contents)
	}

	assistant := out.Contents[1]
	if assistant.Role != "model" || assistant.Parts[0].FunctionCall == nil {
		t.Fatalf("expected model functionCall part, got %#v", assistant)
	}
	if assistant.Parts[0].FunctionCall.Name != "get_weather" {
		t.Fatalf("unexpected function call name: %#v", assistant.Parts[0].FunctionCall)
	}
	if assistant.Parts[0].FunctionCall.Args["city"] != "NYC" {
		t.Fatalf("unexpected function call args: %#v", assistant.Parts[0].FunctionCall.Args)
	}

	toolContent := out.Contents[2]
	fr := toolContent.Parts[0].FunctionResponse
	if fr == nil || fr.Name != "get_weather" {
		t.Fatalf("expected functionResponse with name get_weather, got %#v", fr)
	}
	if fr.Response["temp"] != float64(70) {
		t.Fatalf("unexpected function response: %#v", fr.Response)
	}
}

func TestToolMessageDowngradesWhenNameUnresolvable(t *testing.T) {
	req := &api.ChatCompletionRequest{
		Model: "gemini-2.5-flash-preview",
		Messages: []api.Message{
			{Role: "tool", ToolCallID: "unknown", Content: api.NewTextContent("plain text")},
		},
	}
	out, _ := ToChat(req, RequestOptions{}, nil)
	if len(out.Contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(out.Contents))
	}
	part := out.Contents[0].Parts[0]
	if part.FunctionResponse != nil || part.Text != "plain text" {
		t.Fatalf("expected downgraded text part, got %#v", part)
	}
}

func TestNonThinkingToolChoiceAndTools(t *testing.T) {
	params := json.RawMessage(`{"$schema":"x","type":"object","properties":{"city":{"type":"string"}}}`)
	req := &api.ChatCompletionRequest{
		Model: "gemini-2.5-flash-preview",
		Messages: []api.Message{
			{Role: "user", Content: api.NewTextContent("weather?")},
		},
		Tools: []api.Tool{
			{Type: "function", Function: api.FunctionDef{Name: "get weather!!", Parameters: params}},
		},
		ToolChoice: &api.ToolChoice{FunctionName: "get_weather"},
	}
	budget := 0
	out, _ := ToChat(req, RequestOptions{ThinkingBudget: &budget}, nil)

	if out.GenerationConfig == nil || out.GenerationConfig.ThinkingConfig == nil || out.GenerationConfig.ThinkingConfig.ThinkingBudget != 0 {
		t.Fatalf("expected thinkingBudget 0, got %#v", out.GenerationConfig)
	}
	if len(out.Tools) != 1 || len(out.Tools[0].FunctionDeclarations) != 1 {
		t.Fatalf("expected 1 tool declaration, got %#v", out.Tools)
	}
	decl := out.Tools[0].FunctionDeclarations[0]
	if decl.Name != "getweather" {
		t.Fatalf("expected sanitized name getweather, got %q", decl.Name)
	}
	if out.ToolConfig.FunctionCallingConfig.Mode != "ANY" || out.ToolConfig.FunctionCallingConfig.AllowedFunctionNames[0] != "get_weather" {
		t.Fatalf("unexpected tool config: %#v", out.ToolConfig)
	}
}

func TestDataURIImagePart(t *testing.T) {
	req := &api.ChatCompletionRequest{
		Messages: []api.Message{
			{Role: "user", Content: api.Content{Kind: api.ContentParts, Parts: []api.ContentPart{
				{Type: "text", Text: "look"},
				{Type: "image_url", ImageURL: &api.ImageURL{URL: "data:image/png;base64,AAAA"}},
				{Type: "image_url", ImageURL: &api.ImageURL{URL: "https://example.com/x.png"}},
			}}},
		},
	}
	out, _ := ToChat(req, RequestOptions{}, nil)
	parts := out.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected text + inline data parts only, got %#v", parts)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/png" || parts[1].InlineData.Data != "AAAA" {
		t.Fatalf("unexpected inline data: %#v", parts[1])
	}
}
