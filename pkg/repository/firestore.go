package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	admin "cloud.google.com/go/firestore/apiv1/admin"
	"cloud.google.com/go/firestore/apiv1/admin/adminpb"
	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	firestoreGateway    = "firestore"
	fieldEmbedding      = "embedding"
	fieldDistance       = "distance"
	firestoreMaxResults = 1000
)

// Firestore stores memories as documents of a single collection and answers
// nearest-neighbor queries with Firestore vector search.
type Firestore struct {
	client     *firestore.Client
	projectID  string
	databaseID string
	collection string
	dimension  int
}

type FirestoreOption func(*Firestore)

// WithCollection overrides the collection name (DefaultNamespace)
func WithCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

// memoryDoc is the document layout. Distance is only populated on query results.
type memoryDoc struct {
	Time       int64              `firestore:"time"`
	Importance int64              `firestore:"importance"`
	Memory     string             `firestore:"memory"`
	Embedding  firestore.Vector32 `firestore:"embedding"`
	Distance   float64            `firestore:"distance,omitempty"`
}

// NewFirestore creates a new Firestore repository. dimension is the embedding
// length the vector indexes are provisioned for.
func NewFirestore(ctx context.Context, projectID, databaseID string, dimension int, opts ...FirestoreOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "firestore project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	f := &Firestore{
		client:     client,
		projectID:  projectID,
		databaseID: databaseID,
		collection: DefaultNamespace,
		dimension:  dimension,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Close closes the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Upsert(ctx context.Context, v *Vector) error {
	if v.ID == "" {
		return goerr.Wrap(model.ErrInvalidArgument, "memory id is empty")
	}

	doc := memoryDoc{
		Time:       v.Metadata.Time,
		Importance: int64(v.Metadata.Importance),
		Memory:     v.Metadata.Memory,
		Embedding:  firestore.Vector32(v.Values),
	}

	if _, err := f.client.Collection(f.collection).Doc(v.ID.String()).Set(ctx, doc); err != nil {
		return goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to upsert memory",
			goerr.V("id", v.ID))
	}
	return nil
}

func (f *Firestore) Query(ctx context.Context, input *QueryInput) ([]*Match, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	topK := input.TopK
	if topK > firestoreMaxResults {
		topK = firestoreMaxResults
	}

	q := f.client.Collection(f.collection).Query
	for _, cond := range input.Filter {
		q = q.Where(cond.Field, firestoreOperator(cond.Op), cond.Value)
	}

	vq := q.FindNearest(fieldEmbedding, firestore.Vector32(input.Embedding), topK,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: fieldDistance})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var matches []*Match
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to query memories",
				goerr.V("top_k", topK))
		}

		var doc memoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to decode memory document",
				goerr.V("id", snap.Ref.ID))
		}

		matches = append(matches, &Match{
			ID:       model.MemoryID(snap.Ref.ID),
			Score:    1 - doc.Distance,
			Metadata: doc.metadata(),
		})
	}

	return matches, nil
}

func (f *Firestore) Fetch(ctx context.Context, ids []model.MemoryID) (map[model.MemoryID]*Vector, error) {
	result := make(map[model.MemoryID]*Vector, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	coll := f.client.Collection(f.collection)
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, coll.Doc(id.String()))
	}

	snaps, err := f.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to fetch memories",
			goerr.V("ids", ids))
	}

	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}

		var doc memoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to decode memory document",
				goerr.V("id", snap.Ref.ID))
		}

		id := model.MemoryID(snap.Ref.ID)
		result[id] = &Vector{
			ID:       id,
			Values:   []float32(doc.Embedding),
			Metadata: doc.metadata(),
		}
	}

	return result, nil
}

func (f *Firestore) Delete(ctx context.Context, ids []model.MemoryID) error {
	if len(ids) == 0 {
		return nil
	}

	coll := f.client.Collection(f.collection)
	bw := f.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bw.Delete(coll.Doc(id.String()))
		if err != nil {
			bw.End()
			return goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to enqueue delete",
				goerr.V("id", id))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to delete memory",
				goerr.V("id", ids[i]))
		}
	}
	return nil
}

// Setup creates the vector indexes used by Query: one for unfiltered search
// and one composite index for search restricted by a time range.
func (f *Firestore) Setup(ctx context.Context) error {
	if f.dimension <= 0 {
		return goerr.Wrap(model.ErrInvalidArgument, "embedding dimension must be positive",
			goerr.V("dimension", f.dimension))
	}

	client, err := admin.NewFirestoreAdminClient(ctx)
	if err != nil {
		return goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to create firestore admin client")
	}
	defer client.Close()

	parent := fmt.Sprintf("projects/%s/databases/%s/collectionGroups/%s", f.projectID, f.databaseID, f.collection)
	logger := logging.From(ctx).With("parent", parent)

	existing, err := f.listVectorIndexes(ctx, client, parent)
	if err != nil {
		return err
	}

	for _, fields := range f.desiredIndexes() {
		key := indexKey(fields)
		if state, ok := existing[key]; ok {
			logger.Info("vector index already exists", "fields", key, "state", state.String())
			continue
		}

		logger.Info("creating vector index", "fields", key, "dimension", f.dimension)
		op, err := client.CreateIndex(ctx, &adminpb.CreateIndexRequest{
			Parent: parent,
			Index: &adminpb.Index{
				QueryScope: adminpb.Index_COLLECTION,
				Fields:     fields,
			},
		})
		if err != nil {
			if status.Code(err) == codes.AlreadyExists {
				logger.Info("vector index was created concurrently", "fields", key)
				continue
			}
			return goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to create vector index",
				goerr.V("parent", parent),
				goerr.V("fields", key))
		}

		if _, err := op.Wait(ctx); err != nil {
			return goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to wait for vector index",
				goerr.V("parent", parent),
				goerr.V("fields", key))
		}
		logger.Info("vector index created", "fields", key)
	}

	return nil
}

func (f *Firestore) listVectorIndexes(ctx context.Context, client *admin.FirestoreAdminClient, parent string) (map[string]adminpb.Index_State, error) {
	found := make(map[string]adminpb.Index_State)

	it := client.ListIndexes(ctx, &adminpb.ListIndexesRequest{Parent: parent})
	for {
		idx, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.NewGatewayError(firestoreGateway, err), "failed to list indexes",
				goerr.V("parent", parent))
		}

		found[indexKey(idx.GetFields())] = idx.GetState()
	}

	return found, nil
}

func (f *Firestore) desiredIndexes() [][]*adminpb.Index_IndexField {
	vectorField := func() *adminpb.Index_IndexField {
		return &adminpb.Index_IndexField{
			FieldPath: fieldEmbedding,
			ValueMode: &adminpb.Index_IndexField_VectorConfig_{
				VectorConfig: &adminpb.Index_IndexField_VectorConfig{
					Dimension: int32(f.dimension),
					Type: &adminpb.Index_IndexField_VectorConfig_Flat{
						Flat: &adminpb.Index_IndexField_VectorConfig_FlatIndex{},
					},
				},
			},
		}
	}

	return [][]*adminpb.Index_IndexField{
		{vectorField()},
		{
			{
				FieldPath: FieldTime,
				ValueMode: &adminpb.Index_IndexField_Order_{Order: adminpb.Index_IndexField_ASCENDING},
			},
			vectorField(),
		},
	}
}

// indexKey identifies an index by its user-defined fields. Firestore appends
// __name__ to listed indexes, which is skipped here.
func indexKey(fields []*adminpb.Index_IndexField) string {
	var key string
	for _, field := range fields {
		if field.GetFieldPath() == "__name__" {
			continue
		}

		mode := "order"
		if vc := field.GetVectorConfig(); vc != nil {
			mode = fmt.Sprintf("vector(%d)", vc.GetDimension())
		} else if field.GetArrayConfig() != adminpb.Index_IndexField_ARRAY_CONFIG_UNSPECIFIED {
			mode = "array"
		}

		if key != "" {
			key += ","
		}
		key += field.GetFieldPath() + ":" + mode
	}
	return key
}

func firestoreOperator(op Operator) string {
	switch op {
	case OpGTE:
		return ">="
	case OpLT:
		return "<"
	}
	return string(op)
}

func (d *memoryDoc) metadata() Metadata {
	return Metadata{
		Time:       d.Time,
		Importance: int(d.Importance),
		Memory:     d.Memory,
	}
}
