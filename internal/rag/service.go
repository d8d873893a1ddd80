package rag

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pages-chatbot-platform/internal/logger"
)

// SourceUpload tags chunks ingested through the activation flow.
const SourceUpload = "upload"

// RetrievedChunk is one retrieval hit handed to the chat orchestrator.
type RetrievedChunk struct {
	Text       string
	ChunkIndex int
	Score      float32
}

// Service wires the chunker, the embedding client and the tenant-scoped
// vector store into the ingestion and retrieval pipelines. It is stateless
// apart from those injected collaborators, so one instance serves all
// requests concurrently.
type Service struct {
	chunker   *Chunker
	embedder  Embedder
	store     VectorStore
	maxChunks int
}

func NewService(chunker *Chunker, embedder Embedder, store VectorStore, maxChunks int) *Service {
	if maxChunks <= 0 {
		maxChunks = 5
	}
	return &Service{
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		maxChunks: maxChunks,
	}
}

// Chunker exposes the configured chunker for token counting and truncation
// at the route layer.
func (s *Service) Chunker() *Chunker {
	return s.chunker
}

// IngestText chunks raw text, embeds all chunks in one batched call and
// writes them into the tenant's partition. Returns the number of chunks
// written. Chunk i is stored with chunk_index i; the pairing holds end to end
// within one call. No dedup against prior ingestions: a clean re-index means
// deleting and recreating the tenant first.
func (s *Service) IngestText(ctx context.Context, tenant, raw string) (int, error) {
	tracer := otel.Tracer("rag")
	ctx, span := tracer.Start(ctx, "rag.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("rag.tenant", tenant))

	if err := s.store.EnsureTenant(ctx, tenant); err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}

	chunks := s.chunker.Chunk(raw)
	span.SetAttributes(attribute.Int("rag.chunks", len(chunks)))
	if len(chunks) == 0 {
		// Nothing to embed, nothing to write.
		return 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("ingest: embed %d chunks for tenant %q: %w", len(chunks), tenant, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("ingest: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	items := make([]Item, len(chunks))
	for i, c := range chunks {
		items[i] = Item{
			Text:       c,
			Source:     SourceUpload,
			ChunkIndex: i,
			Vector:     vectors[i],
		}
	}

	if err := s.store.Upsert(ctx, tenant, items); err != nil {
		// Partial writes are possible here; the count written is unknown.
		return 0, fmt.Errorf("ingest: %w", err)
	}

	logger.Info("ingested content", "tenant", tenant, "chunks", len(chunks))
	return len(chunks), nil
}

// Retrieve embeds the question and returns up to k chunks from the tenant's
// partition, nearest first. k <= 0 selects the configured default. A tenant
// with no data yields an empty slice, not an error.
func (s *Service) Retrieve(ctx context.Context, tenant, question string, k int) ([]RetrievedChunk, error) {
	tracer := otel.Tracer("rag")
	ctx, span := tracer.Start(ctx, "rag.retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("rag.tenant", tenant))

	if k <= 0 {
		k = s.maxChunks
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed question for tenant %q: %w", tenant, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("retrieve: embedder returned %d vectors for one question", len(vectors))
	}

	matches, err := s.store.Search(ctx, tenant, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	span.SetAttributes(attribute.Int("rag.matches", len(matches)))

	out := make([]RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		out = append(out, RetrievedChunk{
			Text:       m.Text,
			ChunkIndex: m.ChunkIndex,
			Score:      m.Score,
		})
	}
	return out, nil
}
