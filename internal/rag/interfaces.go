package rag

import "context"

// Item is one chunk ready for storage: its properties plus the embedding
// vector computed for it.
type Item struct {
	Text       string
	Source     string
	ChunkIndex int
	Vector     []float32
}

// Match is one search hit. Score is the index's similarity metric (cosine,
// larger is closer); hits arrive nearest-first. Tie order between equal
// scores is index-implementation-defined.
type Match struct {
	Text       string
	ChunkIndex int
	Score      float32
}

// Embedder turns a batch of texts into fixed-dimension vectors, preserving
// order: vector i corresponds to texts[i].
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore manages one shared collection partitioned by tenant. Tenant
// provisioning and deletion are idempotent; Upsert offers no all-or-nothing
// guarantee, so callers must treat a failed upsert as "unknown count written"
// and recover by re-ingesting from a clean tenant.
type VectorStore interface {
	EnsureTenant(ctx context.Context, tenant string) error
	DeleteTenant(ctx context.Context, tenant string) error
	Upsert(ctx context.Context, tenant string, items []Item) error
	Search(ctx context.Context, tenant string, vector []float32, limit int) ([]Match, error)
}
