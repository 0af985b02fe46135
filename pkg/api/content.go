package api

import (
	"bytes"
	"encoding/json"
)

// ContentKind distinguishes the two shapes OpenAI's `content` field takes.
type ContentKind int

const (
	// ContentEmpty means the field was absent or null.
	ContentEmpty ContentKind = iota
	// ContentString means content was a plain string.
	ContentString
	// ContentParts means content was an array of typed parts.
	ContentParts
)

// Content is a tagged union of String | Parts([Part]), replacing the
// duck-typed `any` the wire format uses.
type Content struct {
	Kind  ContentKind
	Text  string
	Parts []ContentPart
}

// NewTextContent wraps a plain string as Content.
func NewTextContent(s string) Content {
	return Content{Kind: ContentString, Text: s}
}

// IsEmpty reports whether the content carries no text and no parts.
func (c Content) IsEmpty() bool {
	switch c.Kind {
	case ContentString:
		return c.Text == ""
	case ContentParts:
		return len(c.Parts) == 0
	default:
		return true
	}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{Kind: ContentEmpty}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Content{Kind: ContentString, Text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return err
	}
	*c = Content{Kind: ContentParts, Parts: parts}
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentString:
		return json.Marshal(c.Text)
	case ContentParts:
		return json.Marshal(c.Parts)
	default:
		return []byte("null"), nil
	}
}

// ContentPart is one element of a multi-part message content array.
// Type is "text" or "image_url"; the other field is populated accordingly.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL accepts both the canonical `{"url": "..."}` object form and a
// bare string shorthand some clients send.
type ImageURL struct {
	URL string `json:"url"`
}

func (i *ImageURL) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		i.URL = s
		return nil
	}
	type alias ImageURL
	var a alias
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*i = ImageURL(a)
	return nil
}
