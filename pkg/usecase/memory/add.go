package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/repository"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Add stores text as a new memory stamped with the current time. A memory
// recorded in the same microsecond as an existing one replaces it.
func (u *UseCase) Add(ctx context.Context, text string) (model.MemoryID, error) {
	return u.AddAt(ctx, text, u.now())
}

// AddAt stores text as a memory recorded at the given instant
func (u *UseCase) AddAt(ctx context.Context, text string, at time.Time) (model.MemoryID, error) {
	id := model.NewMemoryID(at)
	if err := u.Update(ctx, id, text); err != nil {
		return "", err
	}
	return id, nil
}

// Update embeds and rates text, then writes it under id. Both are recomputed
// on every call.
func (u *UseCase) Update(ctx context.Context, id model.MemoryID, text string) error {
	micros, err := id.Micros()
	if err != nil {
		return goerr.Wrap(err, "invalid memory id", goerr.V("id", id))
	}

	values, err := u.Embed(ctx, text)
	if err != nil {
		return goerr.Wrap(err, "failed to update memory", goerr.V("id", id))
	}

	importance, err := u.rater.Rate(ctx, text)
	if err != nil {
		return goerr.Wrap(err, "failed to update memory", goerr.V("id", id))
	}

	logging.From(ctx).Debug("upserting memory",
		"id", id,
		"importance", importance,
		"embedding_head", head(values, 10))

	if err := u.repo.Upsert(ctx, &repository.Vector{
		ID:     id,
		Values: values,
		Metadata: repository.Metadata{
			Time:       micros,
			Importance: importance,
			Memory:     text,
		},
	}); err != nil {
		return goerr.Wrap(err, "failed to update memory", goerr.V("id", id))
	}

	return nil
}

func head(values []float32, n int) []float32 {
	if len(values) < n {
		return values
	}
	return values[:n]
}
