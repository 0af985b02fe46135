package stream

import (
	"encoding/json"
	"testing"
)

func TestTranslateStreamedToolCall(t *testing.T) {
	tr := NewTranslator("gemini-2.5-flash-preview", nil)
	raw := `{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"f","args":{"x":1}}}]},"finishReason":"TOOL_CALLS"}]}`
	chunks := tr.Translate(raw)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	choice := chunks[0].Choices[0]
	if len(choice.Delta.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %#v", choice.Delta.ToolCalls)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(choice.Delta.ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("invalid arguments json: %v", err)
	}
	if args["x"] != float64(1) {
		t.Fatalf("unexpected args: %#v", args)
	}
	if choice.FinishReason == nil || *choice.FinishReason != "tool_calls" {
		t.Fatalf("expected finish_reason tool_calls, got %v", choice.FinishReason)
	}
}

func TestTranslateDoneSentinelDropped(t *testing.T) {
	tr := NewTranslator("m", nil)
	chunks := tr.Translate(`{"done":true}`)
	if chunks != nil {
		t.Fatalf("expected done sentinel to be dropped, got %#v", chunks)
	}
}

func TestTranslateArrayRecursion(t *testing.T) {
	tr := NewTranslator("m", nil)
	raw := `[{"candidates":[{"content":{"role":"model","parts":[{"text":"a"}]}}]},{"candidates":[{"content":{"role":"model","parts":[{"text":"b"}]}}]}]`
	chunks := tr.Translate(raw)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Choices[0].Delta.Content != "a" || chunks[1].Choices[0].Delta.Content != "b" {
		t.Fatalf("unexpected content ordering: %#v", chunks)
	}
}

func TestTranslateBareTextFragment(t *testing.T) {
	tr := NewTranslator("m", nil)
	chunks := tr.Translate(`{"text":"partial"}`)
	if len(chunks) != 1 || chunks[0].Choices[0].Delta.Content != "partial" {
		t.Fatalf("unexpected: %#v", chunks)
	}
}

func TestTranslateEmptyCandidateDropped(t *testing.T) {
	tr := NewTranslator("m", nil)
	chunks := tr.Translate(`{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":""}]}`)
	if chunks != nil {
		t.Fatalf("expected no meaningful chunk to be dropped, got %#v", chunks)
	}
}
