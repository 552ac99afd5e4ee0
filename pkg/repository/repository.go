package repository

import (
	"context"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Metadata keys stored alongside every vector
const (
	FieldTime       = "time"
	FieldImportance = "importance"
	FieldMemory     = "memory"
)

// DefaultNamespace is the collection (or index namespace) holding memories
const DefaultNamespace = "memories"

// Repository defines the interface for the vector index holding memories
type Repository interface {
	// Setup provisions the index if missing. Calling it on a provisioned index is a no-op.
	Setup(ctx context.Context) error

	// Upsert writes the vector and its metadata under v.ID, replacing any existing record
	Upsert(ctx context.Context, v *Vector) error

	// Query returns the nearest neighbors of the input embedding in descending score order
	Query(ctx context.Context, input *QueryInput) ([]*Match, error)

	// Fetch returns the stored vectors for ids. Absent ids are omitted from the result.
	Fetch(ctx context.Context, ids []model.MemoryID) (map[model.MemoryID]*Vector, error)

	// Delete removes the records for ids. Absent ids are ignored.
	Delete(ctx context.Context, ids []model.MemoryID) error

	// Close releases the connection to the index
	Close() error
}

// Metadata is the fixed set of attributes kept with every vector
type Metadata struct {
	// Time is the record instant as epoch microseconds
	Time       int64
	Importance int
	Memory     string
}

type Vector struct {
	ID       model.MemoryID
	Values   []float32
	Metadata Metadata
}

type Match struct {
	ID       model.MemoryID
	Score    float64
	Metadata Metadata
}

// Operator is a numeric comparison usable in a metadata filter
type Operator string

const (
	OpGTE Operator = "$gte"
	OpLT  Operator = "$lt"
)

// Condition compares a numeric metadata field with Value
type Condition struct {
	Field string
	Op    Operator
	Value int64
}

// Filter is a conjunction of conditions. An empty filter matches every record.
type Filter []Condition

type QueryInput struct {
	Embedding []float32
	Filter    Filter
	TopK      int
}

// Validate checks that the input can be executed by any index implementation
func (x *QueryInput) Validate() error {
	if len(x.Embedding) == 0 {
		return goerr.Wrap(model.ErrInvalidArgument, "query embedding is empty")
	}
	if x.TopK <= 0 {
		return goerr.Wrap(model.ErrInvalidArgument, "top_k must be positive", goerr.V("top_k", x.TopK))
	}

	for _, cond := range x.Filter {
		if cond.Field != FieldTime && cond.Field != FieldImportance {
			return goerr.Wrap(model.ErrInvalidArgument, "filter field is not numeric metadata",
				goerr.V("field", cond.Field))
		}
		if cond.Op != OpGTE && cond.Op != OpLT {
			return goerr.Wrap(model.ErrInvalidArgument, "unsupported filter operator",
				goerr.V("op", cond.Op))
		}
	}
	return nil
}

// Match reports whether metadata satisfies every condition of the filter
func (f Filter) Match(md Metadata) bool {
	for _, cond := range f {
		var v int64
		switch cond.Field {
		case FieldTime:
			v = md.Time
		case FieldImportance:
			v = int64(md.Importance)
		default:
			return false
		}

		switch cond.Op {
		case OpGTE:
			if v < cond.Value {
				return false
			}
		case OpLT:
			if v >= cond.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}
