// Package api defines the OpenAI-compatible wire types this gateway serves
// (Chat Completions, Embeddings, Models) along with the structured error
// shape shared across the transport layer.
package api
