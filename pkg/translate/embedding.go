package translate

import (
	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/upstream"
)

const minEmbeddingInputLen = 5

// ValidateEmbeddingInput checks the embedding input-validity rule: a
// single string is valid if it is at least minEmbeddingInputLen characters;
// a sequence is valid if any element satisfies the same length check.
// Returns a representative failing value and false when no input qualifies.
func ValidateEmbeddingInput(input api.EmbeddingInput) (string, bool) {
	strs := input.Strings()
	for _, s := range strs {
		if len(s) >= minEmbeddingInputLen {
			return "", true
		}
	}
	if len(strs) == 0 {
		return "", false
	}
	return strs[0], false
}

// ToEmbeddingsRequests builds one upstream EmbedContentRequest per input
// string.
func ToEmbeddingsRequests(input api.EmbeddingInput) []upstream.EmbedContentRequest {
	strs := input.Strings()
	out := make([]upstream.EmbedContentRequest, len(strs))
	for i, s := range strs {
		out[i] = upstream.EmbedContentRequest{Content: upstream.Content{Parts: []upstream.Part{{Text: s}}}}
	}
	return out
}

// FromEmbeddingResponses converts one upstream response per input string
// into the OpenAI embeddings list form. Usage is always zeroed; the
// upstream never reports token counts for embeddings.
func FromEmbeddingResponses(model string, responses []*upstream.EmbedContentResponse) (*api.EmbeddingsResponse, bool) {
	data := make([]api.EmbeddingObject, 0, len(responses))
	for i, r := range responses {
		values, ok := embeddingValues(r)
		if !ok {
			return nil, false
		}
		data = append(data, api.EmbeddingObject{Object: "embedding", Embedding: values, Index: i})
	}
	return &api.EmbeddingsResponse{
		Object: "list",
		Data:   data,
		Model:  model,
		Usage:  api.Usage{PromptTokens: 0, TotalTokens: 0},
	}, true
}

// embeddingValues extracts the float vector from either observed upstream
// shape: a batch "embeddings" array or a singular "embedding" object.
func embeddingValues(r *upstream.EmbedContentResponse) ([]float64, bool) {
	if len(r.Embeddings) > 0 {
		return r.Embeddings[0].Values, true
	}
	if r.Embedding != nil {
		return r.Embedding.Values, true
	}
	return nil, false
}
