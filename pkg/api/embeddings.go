package api

import (
	"bytes"
	"encoding/json"
)

// EmbeddingInput is a tagged union over the two shapes `input` may take for
// an embeddings request: a single string or an array of strings.
type EmbeddingInput struct {
	Single string
	Many   []string
	IsMany bool
}

func (e *EmbeddingInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*e = EmbeddingInput{Single: s}
		return nil
	}
	var many []string
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return err
	}
	*e = EmbeddingInput{Many: many, IsMany: true}
	return nil
}

func (e EmbeddingInput) MarshalJSON() ([]byte, error) {
	if e.IsMany {
		return json.Marshal(e.Many)
	}
	return json.Marshal(e.Single)
}

// Strings returns the input normalized to a slice, regardless of which wire
// shape was sent.
func (e EmbeddingInput) Strings() []string {
	if e.IsMany {
		return e.Many
	}
	return []string{e.Single}
}

// EmbeddingsRequest is the client-facing `POST /v1/embedded` body.
// EncodingFormat is accepted and ignored: this gateway always returns
// float arrays.
type EmbeddingsRequest struct {
	Model          string         `json:"model"`
	Input          EmbeddingInput `json:"input"`
	EncodingFormat string         `json:"encoding_format,omitempty"`
}

// EmbeddingsResponse is the `list` envelope returned for embeddings. Error
// is set, and Data left empty, when input validation or upstream-shape
// matching failed, rather than returning a bare error envelope.
type EmbeddingsResponse struct {
	Object string            `json:"object"`
	Data   []EmbeddingObject `json:"data"`
	Model  string            `json:"model"`
	Usage  Usage             `json:"usage"`
	Error  *APIError         `json:"error,omitempty"`
}

// EmbeddingObject is one embedding vector keyed to its input index.
type EmbeddingObject struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}
