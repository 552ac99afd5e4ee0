package memory

import (
	"context"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/repository"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// QueryInput describes a similarity search. Start is inclusive and End is
// exclusive; an empty bound leaves that side of the range open.
type QueryInput struct {
	Text  string
	Start string
	End   string
	TopK  int
}

// Query returns memories similar to the input text, most similar first
func (u *UseCase) Query(ctx context.Context, input *QueryInput) ([]*model.ScoredMemory, error) {
	filter, err := buildTimeFilter(input.Start, input.End)
	if err != nil {
		return nil, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	values, err := u.Embed(ctx, input.Text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memories")
	}

	matches, err := u.repo.Query(ctx, &repository.QueryInput{
		Embedding: values,
		Filter:    filter,
		TopK:      topK,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memories",
			goerr.V("start", input.Start),
			goerr.V("end", input.End))
	}

	results := make([]*model.ScoredMemory, 0, len(matches))
	for _, m := range matches {
		mem, err := toMemory(m.ID, m.Metadata)
		if err != nil {
			return nil, err
		}
		results = append(results, &model.ScoredMemory{Score: m.Score, Memory: mem})
	}

	logging.From(ctx).Debug("queried memories",
		"query", input.Text,
		"top_k", topK,
		"found", len(results))
	return results, nil
}

func buildTimeFilter(start, end string) (repository.Filter, error) {
	var filter repository.Filter

	if start != "" {
		v, err := model.TimeToMicros(start)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid start time", goerr.V("start", start))
		}
		filter = append(filter, repository.Condition{Field: repository.FieldTime, Op: repository.OpGTE, Value: v})
	}

	if end != "" {
		v, err := model.TimeToMicros(end)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid end time", goerr.V("end", end))
		}
		filter = append(filter, repository.Condition{Field: repository.FieldTime, Op: repository.OpLT, Value: v})
	}

	return filter, nil
}

func toMemory(id model.MemoryID, md repository.Metadata) (*model.Memory, error) {
	t, err := id.Time()
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError("index", err), "stored memory has a malformed id",
			goerr.V("id", id))
	}

	return &model.Memory{
		ID:         id,
		Time:       t,
		Importance: md.Importance,
		Text:       md.Memory,
	}, nil
}
