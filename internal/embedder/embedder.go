package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strings"
)

// Embedder turns text into fixed-dimension vectors
type Embedder interface {
	// Encode embeds a single text. Empty or whitespace-only text maps to
	// the zero vector without invoking the underlying model.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch embeds texts preserving order and length; blank
	// elements receive the zero vector and are never sent to the model.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the width of every vector this embedder produces
	Dimension() int

	// Close releases provider resources
	Close() error
}

// Embedder errors
var (
	ErrProviderFailed  = errors.New("embedding provider failed")
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrBadDimension    = errors.New("provider returned wrong dimension")
)

// isBlank reports whether text is empty or whitespace-only, the
// degenerate case that maps to the zero vector.
func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

func zeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// ComputeTextHash returns the hex SHA-256 digest of text, used as the
// cache key component for embeddings.
func ComputeTextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NormalizeVector scales v to unit length. The zero vector is returned
// unchanged: it has no direction to preserve.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
