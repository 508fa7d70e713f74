// Package embedding generates text embeddings for synced entities. The
// vectors are stored alongside entity metadata; nothing in the sync engine
// consumes them.
package embedding

import "context"

// Embedder turns entity text into a fixed-length float vector. Calls run
// off the rate-limited Last.fm path and must not hold up the API gate.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Disabled is an Embedder that produces no vectors. It is wired in when no
// embedding API key is configured; entities are then stored without one.
type Disabled struct{}

// Embed implements Embedder.
func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, nil
}
