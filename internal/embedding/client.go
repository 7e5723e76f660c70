// Package embedding wraps the remote embedding provider behind a typed
// client contract so downstream code never inspects raw provider payloads.
package embedding

import "context"

// Client generates fixed-dimensionality embedding vectors for text.
type Client interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embeddings for multiple texts. The returned
	// vectors preserve input order exactly, including across any
	// provider-imposed batch boundaries.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the fixed output dimensionality of the model.
	Dimensions() int
}
