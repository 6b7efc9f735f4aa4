package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

// Chain tries each provider in order until one succeeds. Every returned
// vector is checked against the configured dimension; a mismatch is not a
// provider outage but a configuration error, so it aborts the chain
// immediately instead of falling through.
type Chain struct {
	providers []Provider
	dimension int
}

// NewChain creates an embedding chain over the given providers. dimension
// is the width the vector collection was created with.
func NewChain(dimension int, providers ...Provider) *Chain {
	return &Chain{providers: providers, dimension: dimension}
}

// Dimension returns the expected vector width.
func (c *Chain) Dimension() int {
	return c.dimension
}

func (c *Chain) Name() string {
	return "chain"
}

func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Chain) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(c.providers) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}

	var lastErr error
	for _, p := range c.providers {
		vectors, err := p.EmbedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("embedding provider %s failed, trying next: %v", p.Name(), err)
			lastErr = err
			continue
		}
		if err := c.checkDimension(p, vectors); err != nil {
			return nil, err
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, lastErr)
}

func (c *Chain) checkDimension(p Provider, vectors [][]float32) error {
	if c.dimension <= 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != c.dimension {
			return fmt.Errorf("%w: provider %s returned %d, collection expects %d",
				domain.ErrDimensionMismatch, p.Name(), len(v), c.dimension)
		}
	}
	return nil
}

var _ Provider = (*Chain)(nil)

// IsUnavailable reports whether err means no provider could serve the
// request, as opposed to a hard configuration error.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable)
}
