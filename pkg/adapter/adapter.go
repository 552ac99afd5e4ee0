package adapter

import (
	"context"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Embedder converts text into a vector of a single fixed dimensionality
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Completer generates the next assistant reply for a sequence of messages
type Completer interface {
	Complete(ctx context.Context, messages []model.Message, temperature float32) (string, error)
}

// Embed converts text with e and checks the vector has e's dimension
func Embed(ctx context.Context, e Embedder, text string) ([]float32, error) {
	values, err := e.Embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text")
	}

	if len(values) != e.Dimension() {
		return nil, goerr.Wrap(model.NewGatewayError("embedding", nil), "embedding dimension mismatch",
			goerr.V("expected", e.Dimension()),
			goerr.V("actual", len(values)))
	}

	return values, nil
}
