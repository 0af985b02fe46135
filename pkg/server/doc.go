// Package server wires the core translation/streaming pipeline (pkg/schema,
// pkg/translate, pkg/stream, pkg/catalog) to the north-bound HTTP routes:
// GET /v1/models, POST /v1/chat/completions, and POST /v1/embedded. The
// ambient GET /healthz and GET /metrics routes are registered by the
// caller, not by this package.
package server
