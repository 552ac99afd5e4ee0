package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/chatmem/pkg/adapter"
	"github.com/m-mizutani/chatmem/pkg/repository"
)

// DefaultTopK is the number of matches returned by Query when unspecified
const DefaultTopK = 10

// Rater scores the importance of a memory text
type Rater interface {
	Rate(ctx context.Context, text string) (int, error)
}

// UseCase provides memory store operations
type UseCase struct {
	repo     repository.Repository
	embedder adapter.Embedder
	rater    Rater
	now      func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock replaces the clock used to stamp new memories
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new memory UseCase instance
func New(
	repo repository.Repository,
	embedder adapter.Embedder,
	rater Rater,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:     repo,
		embedder: embedder,
		rater:    rater,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Embed converts text into a vector and checks it has the embedder's dimension
func (u *UseCase) Embed(ctx context.Context, text string) ([]float32, error) {
	return adapter.Embed(ctx, u.embedder, text)
}
