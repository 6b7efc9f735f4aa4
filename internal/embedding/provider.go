package embedding

import "context"

// Provider generates vector embeddings for text.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// Embed returns one vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
