package api

import (
	"bytes"
	"encoding/json"
)

// ToolChoice is a tagged union over the four shapes `tool_choice` may take:
// "auto", "none", a bare function name, or {type:"function",function:{name}}.
type ToolChoice struct {
	Auto         bool
	None         bool
	FunctionName string
}

func (t *ToolChoice) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		switch s {
		case "auto":
			*t = ToolChoice{Auto: true}
		case "none":
			*t = ToolChoice{None: true}
		default:
			*t = ToolChoice{FunctionName: s}
		}
		return nil
	}
	var obj struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*t = ToolChoice{FunctionName: obj.Function.Name}
	return nil
}

func (t ToolChoice) MarshalJSON() ([]byte, error) {
	switch {
	case t.Auto:
		return json.Marshal("auto")
	case t.None:
		return json.Marshal("none")
	case t.FunctionName != "":
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": t.FunctionName},
		})
	default:
		return json.Marshal("auto")
	}
}
