// Package storage provides a Qdrant-backed alternative to the flat index file.
//
// Points are keyed by the chunk ordinal, so search hits resolve against the
// persisted chunk list exactly like flat index IDs do.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/docsearch/internal/index"
)

// upsertBatchSize bounds the points sent per Upsert call.
const upsertBatchSize = 100

// QdrantIndex stores chunk vectors in one Qdrant collection with Euclidean distance.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	count      int
}

// NewQdrantIndex connects over gRPC and fails fast if Qdrant stays unreachable.
func NewQdrantIndex(host string, port int, collection string) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	q := &QdrantIndex{
		client:     client,
		collection: collection,
	}

	if err := q.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return q, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (q *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return q.Health(ctx) }, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (q *QdrantIndex) Health(ctx context.Context) error {
	result, err := q.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// Recreate drops the collection if present and creates an empty one for dim-sized vectors.
// The index is write-once, so every build starts from an empty collection.
func (q *QdrantIndex) Recreate(ctx context.Context, dim int) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	q.count = 0
	return nil
}

// Add upserts vectors in order; the i-th vector overall gets point ID i.
func (q *QdrantIndex) Add(ctx context.Context, buildID uuid.UUID, vectors [][]float32) error {
	for i := 0; i < len(vectors); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(vectors))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(q.count + j)),
				Vectors: qdrant.NewVectors(vectors[j]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"build_id": buildID.String(),
				}),
			})
		}

		if err := q.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	q.count += len(vectors)
	return nil
}

func (q *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// Open prepares the index for searching: it loads the point count and checks that
// the collection was written by buildID.
func (q *QdrantIndex) Open(ctx context.Context, buildID uuid.UUID) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, q.collection)
	}

	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to count points: %w", err)
	}
	q.count = int(count)

	if q.count == 0 {
		return nil
	}
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(0)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return fmt.Errorf("failed to read point 0: %w", err)
	}
	if len(points) == 0 {
		return fmt.Errorf("%w: point 0 missing", ErrBuildMismatch)
	}
	if got := points[0].Payload["build_id"].GetStringValue(); got != buildID.String() {
		return fmt.Errorf("%w: collection has %s, want %s", ErrBuildMismatch, got, buildID)
	}
	return nil
}

// Len returns the number of points written or found by Open.
func (q *QdrantIndex) Len() int { return q.count }

// Search returns up to k nearest points. Qdrant reports the plain Euclidean distance.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]index.Neighbor, error) {
	if k <= 0 {
		return []index.Neighbor{}, nil
	}

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(false),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	neighbors := make([]index.Neighbor, 0, len(results))
	for _, r := range results {
		id := index.NoMatch
		if r.GetId() != nil {
			if num, ok := r.GetId().GetPointIdOptions().(*qdrant.PointId_Num); ok {
				id = int64(num.Num)
			}
		}
		neighbors = append(neighbors, index.Neighbor{ID: id, Distance: r.GetScore()})
	}
	return neighbors, nil
}
