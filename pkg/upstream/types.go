// Package upstream defines the wire types for the generative-AI backend's
// native dialect (the "contents"/"functionDeclarations" model). The HTTP
// clients that dispatch requests in this dialect live in pkg/backend.
package upstream

import "encoding/json"

// Content is one turn of the upstream conversation.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" | "model"
	Parts []Part `json:"parts"`
}

// Part is a tagged union over the four shapes an upstream content part can
// take. Exactly one of Text, InlineData, FunctionCall, FunctionResponse is
// populated on any given instance.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *InlineData       `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// InlineData is a base64-encoded media blob, e.g. a decoded data: URI image.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a model-emitted function invocation.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse is the client-supplied result of a function invocation.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// SystemInstruction carries the system prompt, when the target model
// family supports it as a distinct field.
type SystemInstruction struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// ToolDeclaration wraps either a set of callable functions or the
// upstream's built-in search tool; exactly one of the two fields is
// populated.
type ToolDeclaration struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
	GoogleSearch         *GoogleSearchTool     `json:"google_search,omitempty"`
}

// GoogleSearchTool is an empty marker enabling the upstream's built-in web
// search tool; it carries no configurable fields.
type GoogleSearchTool struct{}

// FunctionDeclaration is one sanitized function schema offered to the model.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// FunctionCallingMode selects how strongly the upstream model is steered
// toward invoking a function.
type FunctionCallingMode string

const (
	FunctionCallingAuto FunctionCallingMode = "AUTO"
	FunctionCallingNone FunctionCallingMode = "NONE"
	FunctionCallingAny  FunctionCallingMode = "ANY"
)

// ToolConfig constrains tool invocation.
type ToolConfig struct {
	FunctionCallingConfig FunctionCallingConfig `json:"functionCallingConfig"`
}

// FunctionCallingConfig is the body of ToolConfig.
type FunctionCallingConfig struct {
	Mode                 FunctionCallingMode `json:"mode"`
	AllowedFunctionNames []string            `json:"allowedFunctionNames,omitempty"`
}

// ThinkingConfig tunes the model's internal reasoning budget; a budget of 0
// disables thinking entirely.
type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// GenerateContentRequest is the full upstream request payload built by the
// request translator.
type GenerateContentRequest struct {
	Contents          []Content          `json:"contents"`
	SystemInstruction *SystemInstruction `json:"systemInstruction,omitempty"`
	Tools             []ToolDeclaration  `json:"tools,omitempty"`
	ToolConfig        *ToolConfig        `json:"toolConfig,omitempty"`
	GenerationConfig  *GenerationConfig  `json:"generationConfig,omitempty"`
}

// GenerationConfig carries sampling parameters and the thinking budget.
type GenerationConfig struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxOutputTokens *int            `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// GenerateContentResponse is the full non-streamed upstream response, and
// also the shape of each object the stream chunker extracts.
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content       Content        `json:"content"`
	FinishReason  string         `json:"finishReason,omitempty"`
	Index         *int           `json:"index,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// SafetyRating is decoded for debug logging only; translation never reads
// it.
type SafetyRating struct {
	Category    string `json:"category,omitempty"`
	Probability string `json:"probability,omitempty"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// PromptFeedback reports why a prompt was blocked before any candidate was
// produced.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata is the upstream's token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// EmbedContentRequest requests a single embedding vector.
type EmbedContentRequest struct {
	Content Content `json:"content"`
}

// EmbedContentResponse is the upstream embedding reply in either of its two
// observed shapes (batch `embeddings` or singular `embedding`).
type EmbedContentResponse struct {
	Embeddings []ValuesHolder `json:"embeddings,omitempty"`
	Embedding  *ValuesHolder  `json:"embedding,omitempty"`
}

// ValuesHolder wraps a raw float vector.
type ValuesHolder struct {
	Values []float64 `json:"values"`
}
