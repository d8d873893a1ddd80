package vectorstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"pages-chatbot-platform/internal/config"
	"pages-chatbot-platform/internal/logger"
	"pages-chatbot-platform/internal/rag"
)

// Schema fields of the shared collection. One collection for the whole
// system, one partition per tenant nickname; vectors are always supplied by
// the caller (no server-side vectorizer).
const (
	FieldID         = "id"
	FieldText       = "text"
	FieldSource     = "source"
	FieldChunkIndex = "chunk_index"
	FieldEmbedding  = "embedding"
)

const (
	maxTextLength   = 65535
	maxSourceLength = 256

	// HNSW construction/search parameters
	hnswM              = 8
	hnswEfConstruction = 96
	hnswEfSearch       = 64
)

// MilvusStore implements rag.VectorStore on a Milvus collection partitioned
// by tenant. The client connection is process-wide: constructed once at
// startup and shared by all requests.
type MilvusStore struct {
	client     client.Client
	collection string
	dim        int
}

// NewMilvusStore connects to Milvus and wraps the shared collection. Fails
// with ErrConfigurationMissing when no address is configured.
func NewMilvusStore(ctx context.Context, cfg *config.Config) (*MilvusStore, error) {
	if cfg.MilvusAddress == "" {
		return nil, ErrConfigurationMissing
	}

	c, err := client.NewClient(ctx, client.Config{Address: cfg.MilvusAddress})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", cfg.MilvusAddress, err)
	}

	return &MilvusStore{
		client:     c,
		collection: cfg.MilvusCollection,
		dim:        cfg.VectorDimensions,
	}, nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// EnsureCollection creates the shared collection and its vector index if
// absent, then loads it. Idempotent; the schema is never altered once
// created, since that would invalidate stored vectors across all tenants.
func (s *MilvusStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", s.collection, err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("tenant-partitioned document chunks").
			WithField(entity.NewField().
				WithName(FieldID).
				WithDataType(entity.FieldTypeInt64).
				WithIsPrimaryKey(true).
				WithIsAutoID(true)).
			WithField(entity.NewField().
				WithName(FieldText).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxTextLength)).
			WithField(entity.NewField().
				WithName(FieldSource).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxSourceLength)).
			WithField(entity.NewField().
				WithName(FieldChunkIndex).
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().
				WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(s.dim)))

		if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			// Two instances racing the first ensure is fine.
			if !isAlreadyExists(err) {
				return fmt.Errorf("create collection %q: %w", s.collection, err)
			}
		} else {
			idx, err := entity.NewIndexHNSW(entity.COSINE, hnswM, hnswEfConstruction)
			if err != nil {
				return fmt.Errorf("build HNSW index: %w", err)
			}
			if err := s.client.CreateIndex(ctx, s.collection, FieldEmbedding, idx, false); err != nil {
				return fmt.Errorf("create index on %q: %w", s.collection, err)
			}
			logger.Info("created vector collection", "collection", s.collection, "dim", s.dim)
		}
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("load collection %q: %w", s.collection, err)
	}

	return nil
}

// EnsureTenant creates the tenant's partition if absent. Re-activating an
// existing tenant is success, not an error.
func (s *MilvusStore) EnsureTenant(ctx context.Context, tenant string) error {
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}

	exists, err := s.hasPartition(ctx, tenant)
	if err != nil {
		return fmt.Errorf("ensure tenant %q: %w", tenant, err)
	}
	if exists {
		return nil
	}

	if err := s.client.CreatePartition(ctx, s.collection, tenant); err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		if isCollectionMissing(err) {
			// Collection gone right after EnsureCollection: provisioning
			// bug, not a normal race.
			return fmt.Errorf("ensure tenant %q: %w: %v", tenant, ErrSchemaMissing, err)
		}
		return fmt.Errorf("ensure tenant %q: %w", tenant, err)
	}

	logger.Info("created tenant partition", "tenant", tenant)
	return nil
}

// DeleteTenant drops the tenant's partition. Deleting a nonexistent tenant is
// a no-op.
func (s *MilvusStore) DeleteTenant(ctx context.Context, tenant string) error {
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}

	exists, err := s.hasPartition(ctx, tenant)
	if err != nil {
		return fmt.Errorf("delete tenant %q: %w", tenant, err)
	}
	if !exists {
		return nil
	}

	// A loaded partition cannot be dropped; release errors are not fatal
	// because the drop below reports the authoritative outcome.
	if err := s.client.ReleasePartitions(ctx, s.collection, []string{tenant}); err != nil {
		logger.Warn("release partition before drop failed", "tenant", tenant, "error", err)
	}

	if err := s.client.DropPartition(ctx, s.collection, tenant); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete tenant %q: %w", tenant, err)
	}

	logger.Info("dropped tenant partition", "tenant", tenant)
	return nil
}

// Upsert writes chunk items into the tenant's partition as one batch. Partial
// writes are possible on failure; callers must treat an error as "unknown
// count written" and re-ingest from a clean tenant.
func (s *MilvusStore) Upsert(ctx context.Context, tenant string, items []rag.Item) error {
	if len(items) == 0 {
		return nil
	}

	texts := make([]string, len(items))
	sources := make([]string, len(items))
	indexes := make([]int64, len(items))
	vectors := make([][]float32, len(items))

	for i, it := range items {
		if len(it.Vector) != s.dim {
			return fmt.Errorf("upsert tenant %q: item %d has dimension %d, collection expects %d",
				tenant, i, len(it.Vector), s.dim)
		}
		texts[i] = it.Text
		sources[i] = it.Source
		indexes[i] = int64(it.ChunkIndex)
		vectors[i] = it.Vector
	}

	_, err := s.client.Insert(ctx, s.collection, tenant,
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnVarChar(FieldSource, sources),
		entity.NewColumnInt64(FieldChunkIndex, indexes),
		entity.NewColumnFloatVector(FieldEmbedding, s.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("upsert tenant %q: %w", tenant, err)
	}

	logger.Debug("upserted chunks", "tenant", tenant, "count", len(items))
	return nil
}

// Search runs a nearest-vector query scoped to exactly one tenant partition.
// A tenant with no partition yields an empty result, never an error.
func (s *MilvusStore) Search(ctx context.Context, tenant string, vector []float32, limit int) ([]rag.Match, error) {
	exists, err := s.hasPartition(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("search tenant %q: %w", tenant, err)
	}
	if !exists {
		return nil, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(hnswEfSearch)
	if err != nil {
		return nil, fmt.Errorf("search tenant %q: %w", tenant, err)
	}

	results, err := s.client.Search(
		ctx,
		s.collection,
		[]string{tenant},
		"",
		[]string{FieldText, FieldChunkIndex},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding,
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search tenant %q: %w", tenant, err)
	}

	var matches []rag.Match
	for _, res := range results {
		textCol, _ := findColumn(res.Fields, FieldText).(*entity.ColumnVarChar)
		indexCol, _ := findColumn(res.Fields, FieldChunkIndex).(*entity.ColumnInt64)
		if textCol == nil || indexCol == nil {
			return nil, fmt.Errorf("search tenant %q: result missing output fields", tenant)
		}

		texts := textCol.Data()
		indexes := indexCol.Data()
		for i := 0; i < res.ResultCount; i++ {
			matches = append(matches, rag.Match{
				Text:       texts[i],
				ChunkIndex: int(indexes[i]),
				Score:      res.Scores[i],
			})
		}
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Flush persists in-memory segments to storage. Invoked periodically by the
// scheduler rather than per write.
func (s *MilvusStore) Flush(ctx context.Context) error {
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("flush collection %q: %w", s.collection, err)
	}
	return nil
}

func (s *MilvusStore) hasPartition(ctx context.Context, tenant string) (bool, error) {
	partitions, err := s.client.ShowPartitions(ctx, s.collection)
	if err != nil {
		return false, err
	}
	for _, p := range partitions {
		if p.Name == tenant {
			return true, nil
		}
	}
	return false, nil
}

func findColumn(fields []entity.Column, name string) entity.Column {
	for _, f := range fields {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// compile-time check
var _ rag.VectorStore = (*MilvusStore)(nil)
