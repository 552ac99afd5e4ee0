package repository_test

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/repository"
	"github.com/m-mizutani/gt"
)

const testDimension = 768

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	collection := "chatmem_test_" + time.Now().UTC().Format("20060102")
	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID, testDimension,
		repository.WithCollection(collection))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	gt.NoError(t, repo.Setup(context.Background()))
	return repo
}

func micros(t *testing.T, id model.MemoryID) int64 {
	v, err := id.Micros()
	gt.NoError(t, err)
	return v
}

func randomVector(rng *rand.Rand, base float32) []float32 {
	v := make([]float32, testDimension)
	for i := range v {
		v[i] = base + (rng.Float32()*0.02 - 0.01)
	}
	return v
}

func TestFirestoreUpsertAndFetch(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	id := model.NewMemoryID(time.Now())
	gt.NoError(t, repo.Upsert(ctx, &repository.Vector{
		ID:     id,
		Values: randomVector(rng, 0.5),
		Metadata: repository.Metadata{
			Time:       micros(t, id),
			Importance: 4,
			Memory:     "firestore upsert test",
		},
	}))
	t.Cleanup(func() { _ = repo.Delete(ctx, []model.MemoryID{id}) })

	found, err := repo.Fetch(ctx, []model.MemoryID{id, "1999-01-01T00:00:00.000000"})
	gt.NoError(t, err)
	gt.Equal(t, len(found), 1)
	gt.Equal(t, found[id].Metadata.Memory, "firestore upsert test")
	gt.Equal(t, found[id].Metadata.Importance, 4)
	gt.A(t, found[id].Values).Length(testDimension)
}

func TestFirestoreQuery(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	base := time.Now().UTC().Truncate(time.Second)
	inRange := model.NewMemoryID(base)
	outOfRange := model.NewMemoryID(base.Add(time.Hour))

	for _, id := range []model.MemoryID{inRange, outOfRange} {
		gt.NoError(t, repo.Upsert(ctx, &repository.Vector{
			ID:       id,
			Values:   randomVector(rng, 0.1),
			Metadata: repository.Metadata{Time: micros(t, id), Importance: 5, Memory: "query " + id.String()},
		}))
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, []model.MemoryID{inRange, outOfRange}) })

	matches, err := repo.Query(ctx, &repository.QueryInput{
		Embedding: randomVector(rng, 0.1),
		Filter: repository.Filter{
			{Field: repository.FieldTime, Op: repository.OpGTE, Value: micros(t, inRange)},
			{Field: repository.FieldTime, Op: repository.OpLT, Value: micros(t, outOfRange)},
		},
		TopK: 10,
	})
	gt.NoError(t, err)
	gt.A(t, matches).Length(1)
	gt.Equal(t, matches[0].ID, inRange)
}

func TestFirestoreDeleteIsIdempotent(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	ids := []model.MemoryID{model.NewMemoryID(time.Now())}
	gt.NoError(t, repo.Delete(ctx, ids))
	gt.NoError(t, repo.Delete(ctx, ids))
}
