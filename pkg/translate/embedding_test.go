package translate

import (
	"testing"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/upstream"
)

func TestValidateEmbeddingInput(t *testing.T) {
	if _, ok := ValidateEmbeddingInput(api.EmbeddingInput{Single: "abcdef"}); !ok {
		t.Fatalf("expected valid input to pass")
	}
	if _, ok := ValidateEmbeddingInput(api.EmbeddingInput{Single: "ab"}); ok {
		t.Fatalf("expected short input to fail")
	}
	if _, ok := ValidateEmbeddingInput(api.EmbeddingInput{Many: []string{"abcdef", "x"}, IsMany: true}); !ok {
		t.Fatalf("expected a batch with one qualifying element to pass")
	}
	if _, ok := ValidateEmbeddingInput(api.EmbeddingInput{Many: []string{"x", "yz"}, IsMany: true}); ok {
		t.Fatalf("expected a batch with no qualifying element to fail")
	}
}

func TestFromEmbeddingResponsesBatchShape(t *testing.T) {
	resps := []*upstream.EmbedContentResponse{
		{Embeddings: []upstream.ValuesHolder{{Values: []float64{0.1, 0.2}}}},
	}
	out, ok := FromEmbeddingResponses("text-embedding", resps)
	if !ok {
		t.Fatalf("expected success")
	}
	if len(out.Data) != 1 || out.Data[0].Index != 0 || len(out.Data[0].Embedding) != 2 {
		t.Fatalf("unexpected output: %#v", out)
	}
	if out.Usage.PromptTokens != 0 || out.Usage.TotalTokens != 0 {
		t.Fatalf("expected zeroed usage, got %#v", out.Usage)
	}
}

func TestFromEmbeddingResponsesSingularShape(t *testing.T) {
	resps := []*upstream.EmbedContentResponse{
		{Embedding: &upstream.ValuesHolder{Values: []float64{0.5}}},
	}
	out, ok := FromEmbeddingResponses("text-embedding", resps)
	if !ok || len(out.Data) != 1 {
		t.Fatalf("expected success with 1 entry, got %#v ok=%v", out, ok)
	}
}

func TestFromEmbeddingResponsesStructureMismatch(t *testing.T) {
	resps := []*upstream.EmbedContentResponse{{}}
	_, ok := FromEmbeddingResponses("text-embedding", resps)
	if ok {
		t.Fatalf("expected failure for structure mismatch")
	}
}
