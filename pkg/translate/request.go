package translate

import (
	"encoding/json"
	"log/slog"
	"regexp"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/schema"
	"github.com/oaigw/gateway/pkg/upstream"
)

var dataURIPattern = regexp.MustCompile(`^data:(.+?);base64,(.+)$`)

// RequestOptions carries the per-call policy decisions the translator needs
// but that do not live on the request body itself.
type RequestOptions struct {
	// SupportsSystemInstruction is false for model families that reject a
	// distinct systemInstruction field; system messages are then inlined
	// as a user turn.
	SupportsSystemInstruction bool
	// ThinkingBudget, when non-nil, is forwarded as generationConfig.thinkingConfig.
	ThinkingBudget *int
	Temperature    *float64
	MaxTokens      *int
}

// ToChat converts an OpenAI chat request into the upstream dialect,
// returning the per-request tool-call id→name map threaded while walking
// assistant messages. The translator itself reads the map back to name the
// functionResponse of later tool messages that carry only a tool_call_id.
func ToChat(req *api.ChatCompletionRequest, opts RequestOptions, log *slog.Logger) (*upstream.GenerateContentRequest, ToolCallMap) {
	if log == nil {
		log = slog.Default()
	}
	calls := NewToolCallMap()
	out := &upstream.GenerateContentRequest{}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			parts := contentToParts(msg.Content, log)
			if opts.SupportsSystemInstruction {
				out.SystemInstruction = &upstream.SystemInstruction{Role: "system", Parts: parts}
			} else if len(parts) > 0 {
				out.Contents = append(out.Contents, upstream.Content{Role: "user", Parts: parts})
			}
		case "user":
			parts := contentToParts(msg.Content, log)
			if len(parts) > 0 {
				out.Contents = append(out.Contents, upstream.Content{Role: "user", Parts: parts})
			}
		case "assistant":
			content := translateAssistant(msg, calls, log)
			if len(content.Parts) > 0 {
				out.Contents = append(out.Contents, content)
			}
		case "tool":
			content := translateTool(msg, calls, log)
			if len(content.Parts) > 0 {
				out.Contents = append(out.Contents, content)
			}
		default:
			log.Warn("translate: skipping message with unknown role", "role", msg.Role)
		}
	}

	if len(req.Tools) > 0 {
		out.Tools = []upstream.ToolDeclaration{{FunctionDeclarations: translateTools(req.Tools)}}
		out.ToolConfig = translateToolChoice(req.ToolChoice)
	}

	gc := &upstream.GenerationConfig{Temperature: opts.Temperature, MaxOutputTokens: opts.MaxTokens}
	if opts.ThinkingBudget != nil {
		gc.ThinkingConfig = &upstream.ThinkingConfig{ThinkingBudget: *opts.ThinkingBudget}
	}
	if gc.Temperature != nil || gc.MaxOutputTokens != nil || gc.ThinkingConfig != nil {
		out.GenerationConfig = gc
	}

	return out, calls
}

// translateAssistant emits one functionCall part per tool_calls[i], records
// the id→name mapping, then appends any text content.
func translateAssistant(msg api.Message, calls ToolCallMap, log *slog.Logger) upstream.Content {
	var parts []upstream.Part
	for _, tc := range msg.ToolCalls {
		args, err := parseArguments(tc.Function.Arguments)
		if err != nil {
			log.Warn("translate: malformed tool_call arguments", "name", tc.Function.Name, "error", err)
			args = map[string]any{"_error": err.Error(), "raw": tc.Function.Arguments}
		}
		calls.Record(tc.ID, tc.Function.Name)
		parts = append(parts, upstream.Part{FunctionCall: &upstream.FunctionCall{Name: tc.Function.Name, Args: args}})
	}
	textParts := contentToParts(msg.Content, log)
	parts = append(parts, textParts...)
	return upstream.Content{Role: "model", Parts: parts}
}

func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// translateTool resolves the function name from msg.Name or the per-request
// tool-call map, parses content as a JSON object (wrapping scalars/arrays),
// and emits a functionResponse part; if no name resolves it downgrades to
// text.
func translateTool(msg api.Message, calls ToolCallMap, log *slog.Logger) upstream.Content {
	text := contentText(msg.Content)
	name := msg.Name
	if name == "" {
		if resolved, ok := calls.Resolve(msg.ToolCallID); ok {
			name = resolved
		}
	}
	if name == "" {
		log.Warn("translate: tool message with unresolvable name, downgrading to text", "tool_call_id", msg.ToolCallID)
		return upstream.Content{Role: "user", Parts: []upstream.Part{{Text: text}}}
	}

	response, ok := parseToolResponse(text)
	if !ok {
		response = map[string]any{"content": text}
	}
	return upstream.Content{Role: "user", Parts: []upstream.Part{
		{FunctionResponse: &upstream.FunctionResponse{Name: name, Response: response}},
	}}
}

// parseToolResponse parses raw as JSON and ensures the result is an object,
// wrapping scalars/arrays under {content: ...}.
func parseToolResponse(raw string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	if obj, ok := v.(map[string]any); ok {
		return obj, true
	}
	return map[string]any{"content": v}, true
}

// contentToParts converts the OpenAI content tagged union into upstream
// parts.
func contentToParts(c api.Content, log *slog.Logger) []upstream.Part {
	switch c.Kind {
	case api.ContentString:
		if c.Text == "" {
			return nil
		}
		return []upstream.Part{{Text: c.Text}}
	case api.ContentParts:
		var parts []upstream.Part
		for _, p := range c.Parts {
			switch p.Type {
			case "text":
				if p.Text != "" {
					parts = append(parts, upstream.Part{Text: p.Text})
				}
			case "image_url":
				if p.ImageURL == nil {
					continue
				}
				m := dataURIPattern.FindStringSubmatch(p.ImageURL.URL)
				if m == nil {
					log.Warn("translate: skipping non-data-URI image", "url_prefix", truncate(p.ImageURL.URL, 32))
					continue
				}
				parts = append(parts, upstream.Part{InlineData: &upstream.InlineData{MimeType: m[1], Data: m[2]}})
			default:
				log.Warn("translate: skipping unknown content part type", "type", p.Type)
			}
		}
		return parts
	default:
		return nil
	}
}

func contentText(c api.Content) string {
	switch c.Kind {
	case api.ContentString:
		return c.Text
	case api.ContentParts:
		var out string
		for _, p := range c.Parts {
			if p.Type == "text" {
				out += p.Text
			}
		}
		return out
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// translateTools sanitizes each tool's parameter schema and restricts/
// deduplicates names.
func translateTools(tools []api.Tool) []upstream.FunctionDeclaration {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = schema.SanitizeToolName(t.Function.Name)
	}
	names = schema.DedupeNames(names)

	out := make([]upstream.FunctionDeclaration, len(tools))
	for i, t := range tools {
		out[i] = upstream.FunctionDeclaration{
			Name:        names[i],
			Description: t.Function.Description,
			Parameters:  sanitizeParameters(t.Function.Parameters),
		}
	}
	return out
}

func sanitizeParameters(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	sanitized := schema.Sanitize(decoded)
	m, ok := sanitized.(map[string]any)
	if ok {
		if _, hasType := m["type"]; !hasType {
			if _, hasProps := m["properties"]; hasProps {
				m["type"] = "object"
			}
		}
	}
	encoded, err := json.Marshal(sanitized)
	if err != nil {
		return nil
	}
	return encoded
}

// translateToolChoice maps the four tool_choice shapes to a ToolConfig.
// Callers only invoke this when req.Tools is non-empty.
func translateToolChoice(tc *api.ToolChoice) *upstream.ToolConfig {
	if tc == nil || tc.Auto {
		return &upstream.ToolConfig{FunctionCallingConfig: upstream.FunctionCallingConfig{Mode: upstream.FunctionCallingAuto}}
	}
	if tc.None {
		return &upstream.ToolConfig{FunctionCallingConfig: upstream.FunctionCallingConfig{Mode: upstream.FunctionCallingNone}}
	}
	if tc.FunctionName != "" {
		return &upstream.ToolConfig{FunctionCallingConfig: upstream.FunctionCallingConfig{
			Mode:                 upstream.FunctionCallingAny,
			AllowedFunctionNames: []string{tc.FunctionName},
		}}
	}
	return &upstream.ToolConfig{FunctionCallingConfig: upstream.FunctionCallingConfig{Mode: upstream.FunctionCallingAuto}}
}
