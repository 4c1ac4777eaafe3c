// Package embedder converts chunk text and queries into fixed-dimension
// vectors.
//
// Two providers are built in: an OpenAI-compatible HTTP provider that
// works against any server speaking the /v1/embeddings protocol, and a
// deterministic hash-based local provider for offline use. Both honor
// the degenerate-text policy: empty or whitespace-only input maps to the
// zero vector without a model call, so degenerate chunks occupy a
// well-defined, effectively unretrievable point in vector space instead
// of failing batch encodes.
package embedder
