package memory

import (
	"context"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Get returns the memories for ids in the requested order. Every id must exist.
func (u *UseCase) Get(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return nil, err
		}
	}

	vectors, err := u.repo.Fetch(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memories")
	}

	memories := make([]*model.Memory, 0, len(ids))
	for _, id := range ids {
		v, ok := vectors[id]
		if !ok {
			return nil, goerr.Wrap(model.ErrNotFound, "memory not found", goerr.V("id", id))
		}

		mem, err := toMemory(id, v.Metadata)
		if err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}

	return memories, nil
}

// Delete removes the memories for ids. Missing ids are not an error.
func (u *UseCase) Delete(ctx context.Context, ids []model.MemoryID) error {
	if err := u.repo.Delete(ctx, ids); err != nil {
		return goerr.Wrap(err, "failed to delete memories", goerr.V("ids", ids))
	}
	return nil
}

// RateByID rates a stored memory again without writing the result back
func (u *UseCase) RateByID(ctx context.Context, id model.MemoryID) (int, error) {
	memories, err := u.Get(ctx, []model.MemoryID{id})
	if err != nil {
		return 0, err
	}

	return u.rater.Rate(ctx, memories[0].Text)
}
