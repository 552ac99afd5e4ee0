package repository

import (
	"context"
	"strconv"
	"sync"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	chromem "github.com/philippgille/chromem-go"
)

const chromemGateway = "chromem"

// Chromem is an embedded vector index backed by chromem-go. It keeps
// everything in memory, optionally persisted to a directory.
type Chromem struct {
	db        *chromem.DB
	name      string
	dimension int

	mu         sync.Mutex
	collection *chromem.Collection
}

type ChromemOption func(*Chromem)

// WithChromemCollection overrides the collection name (DefaultNamespace)
func WithChromemCollection(name string) ChromemOption {
	return func(c *Chromem) {
		c.name = name
	}
}

// NewChromem creates an index. An empty path keeps the data in memory only.
func NewChromem(path string, dimension int, opts ...ChromemOption) (*Chromem, error) {
	db := chromem.NewDB()
	if path != "" {
		persistent, err := chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, goerr.Wrap(model.NewGatewayError(chromemGateway, err), "failed to open chromem database",
				goerr.V("path", path))
		}
		db = persistent
	}

	c := &Chromem{
		db:        db,
		name:      DefaultNamespace,
		dimension: dimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close is a no-op. A persistent database is written on every change.
func (c *Chromem) Close() error {
	return nil
}

func (c *Chromem) getCollection() (*chromem.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collection != nil {
		return c.collection, nil
	}

	// Embeddings are always supplied by the caller, so no embedding func is set.
	col, err := c.db.GetOrCreateCollection(c.name, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError(chromemGateway, err), "failed to open collection",
			goerr.V("name", c.name))
	}
	c.collection = col
	return col, nil
}

func (c *Chromem) Setup(ctx context.Context) error {
	col, err := c.getCollection()
	if err != nil {
		return err
	}

	logging.From(ctx).Info("chromem collection ready",
		"name", c.name,
		"count", col.Count(),
		"dimension", c.dimension)
	return nil
}

func (c *Chromem) Upsert(ctx context.Context, v *Vector) error {
	if v.ID == "" {
		return goerr.Wrap(model.ErrInvalidArgument, "memory id is empty")
	}
	if c.dimension > 0 && len(v.Values) != c.dimension {
		return goerr.Wrap(model.ErrInvalidArgument, "vector dimension mismatch",
			goerr.V("expected", c.dimension),
			goerr.V("actual", len(v.Values)))
	}

	col, err := c.getCollection()
	if err != nil {
		return err
	}

	// chromem normalizes the embedding in place
	values := make([]float32, len(v.Values))
	copy(values, v.Values)

	doc := chromem.Document{
		ID:        v.ID.String(),
		Embedding: values,
		Content:   v.Metadata.Memory,
		Metadata: map[string]string{
			FieldTime:       strconv.FormatInt(v.Metadata.Time, 10),
			FieldImportance: strconv.Itoa(v.Metadata.Importance),
		},
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return goerr.Wrap(model.NewGatewayError(chromemGateway, err), "failed to upsert memory",
			goerr.V("id", v.ID))
	}
	return nil
}

// Query ranks every document and applies the filter afterwards, since chromem
// only supports string equality in its where clause.
func (c *Chromem) Query(ctx context.Context, input *QueryInput) ([]*Match, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	col, err := c.getCollection()
	if err != nil {
		return nil, err
	}

	n := col.Count()
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, input.Embedding, n, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError(chromemGateway, err), "failed to query memories",
			goerr.V("count", n))
	}

	var matches []*Match
	for _, r := range results {
		md, err := chromemMetadata(r.Metadata, r.Content)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory document", goerr.V("id", r.ID))
		}
		if !input.Filter.Match(md) {
			continue
		}

		matches = append(matches, &Match{
			ID:       model.MemoryID(r.ID),
			Score:    float64(r.Similarity),
			Metadata: md,
		})
		if len(matches) >= input.TopK {
			break
		}
	}

	return matches, nil
}

func (c *Chromem) Fetch(ctx context.Context, ids []model.MemoryID) (map[model.MemoryID]*Vector, error) {
	col, err := c.getCollection()
	if err != nil {
		return nil, err
	}

	result := make(map[model.MemoryID]*Vector, len(ids))
	for _, id := range ids {
		// GetByID fails only for empty or unknown ids; empty ids never reach here.
		doc, err := col.GetByID(ctx, id.String())
		if err != nil {
			continue
		}

		md, err := chromemMetadata(doc.Metadata, doc.Content)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory document", goerr.V("id", id))
		}

		result[id] = &Vector{
			ID:       id,
			Values:   doc.Embedding,
			Metadata: md,
		}
	}

	return result, nil
}

func (c *Chromem) Delete(ctx context.Context, ids []model.MemoryID) error {
	if len(ids) == 0 {
		return nil
	}

	col, err := c.getCollection()
	if err != nil {
		return err
	}

	var keys []string
	for _, id := range ids {
		if _, err := col.GetByID(ctx, id.String()); err != nil {
			continue
		}
		keys = append(keys, id.String())
	}
	if len(keys) == 0 {
		return nil
	}

	if err := col.Delete(ctx, nil, nil, keys...); err != nil {
		return goerr.Wrap(model.NewGatewayError(chromemGateway, err), "failed to delete memories",
			goerr.V("ids", ids))
	}
	return nil
}

func chromemMetadata(meta map[string]string, content string) (Metadata, error) {
	t, err := strconv.ParseInt(meta[FieldTime], 10, 64)
	if err != nil {
		return Metadata{}, goerr.Wrap(model.NewGatewayError(chromemGateway, err), "invalid time metadata",
			goerr.V("time", meta[FieldTime]))
	}

	importance, err := strconv.Atoi(meta[FieldImportance])
	if err != nil {
		return Metadata{}, goerr.Wrap(model.NewGatewayError(chromemGateway, err), "invalid importance metadata",
			goerr.V("importance", meta[FieldImportance]))
	}

	return Metadata{
		Time:       t,
		Importance: importance,
		Memory:     content,
	}, nil
}
