package adapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/chatmem/pkg/adapter"
	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/gt"
)

type fixedEmbedder struct {
	values    []float32
	dimension int
	err       error
}

func (x *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return x.values, x.err
}

func (x *fixedEmbedder) Dimension() int {
	return x.dimension
}

func TestEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("matching dimension", func(t *testing.T) {
		values, err := adapter.Embed(ctx, &fixedEmbedder{values: []float32{0.1, 0.2}, dimension: 2}, "hello")
		gt.NoError(t, err)
		gt.Equal(t, values, []float32{0.1, 0.2})
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := adapter.Embed(ctx, &fixedEmbedder{values: []float32{0.1, 0.2, 0.3}, dimension: 2}, "hello")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrGatewayFailure))
	})

	t.Run("embedder error", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		_, err := adapter.Embed(ctx, &fixedEmbedder{err: cause, dimension: 2}, "hello")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, cause))
	})
}
