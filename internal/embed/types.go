// Package embed is the Embedder Gateway (spec §4.E): lazily load a
// sentence-embedding model, encode a string to a unit vector, and report
// availability. Load failure makes availability sticky-false for the rest
// of the process.
package embed

import (
	"context"
	"math"
)

// Common embedding constants.
const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize caps batch size to bound memory use.
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32
)

// Dimensions is the embedding dimension produced by every Embedder
// implementation in this package. A single fixed dimension keeps the
// Dense Index's row-count/shape invariant trivial to check: any Embedder
// swapped in must match it or be rejected at construction.
const Dimensions = 768

// Embedder generates unit-norm vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector returns v scaled to unit length. The zero vector is
// returned unchanged (its norm is already 0, not 1 — callers that need
// the CorpusIndex invariant "row norm is 1.0 +/- epsilon" must treat an
// all-zero input text specially, which Embed implementations in this
// package do).
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
