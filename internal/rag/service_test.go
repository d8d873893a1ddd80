package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
)

// fakeEmbedder returns a deterministic vector per text: [len(text), seq].
type fakeEmbedder struct {
	calls [][]string
	fail  bool
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.fail {
		return nil, errors.New("embedding backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i)}
	}
	return out, nil
}

// fakeStore keeps items per tenant in memory and serves Search by Score
// descending, mimicking a cosine index.
type fakeStore struct {
	tenants map[string][]Item
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{tenants: map[string][]Item{}}
}

func (f *fakeStore) EnsureTenant(_ context.Context, tenant string) error {
	if _, ok := f.tenants[tenant]; !ok {
		f.tenants[tenant] = nil
	}
	return nil
}

func (f *fakeStore) DeleteTenant(_ context.Context, tenant string) error {
	delete(f.tenants, tenant)
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, tenant string, items []Item) error {
	f.upserts++
	f.tenants[tenant] = append(f.tenants[tenant], items...)
	return nil
}

func (f *fakeStore) Search(_ context.Context, tenant string, _ []float32, limit int) ([]Match, error) {
	items, ok := f.tenants[tenant]
	if !ok {
		return nil, nil
	}
	matches := make([]Match, len(items))
	for i, it := range items {
		matches[i] = Match{
			Text:       it.Text,
			ChunkIndex: it.ChunkIndex,
			Score:      float32(len(items) - it.ChunkIndex),
		}
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func newTestService(emb *fakeEmbedder, store *fakeStore) *Service {
	// Char fallback keeps chunk boundaries deterministic in tests.
	return NewService(&Chunker{sizeTokens: 10, overlapTokens: 2}, emb, store, 5)
}

func TestIngestEmptyInputSkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	svc := newTestService(emb, store)

	for _, raw := range []string{"", "   \n\t  "} {
		n, err := svc.IngestText(context.Background(), "acme", raw)
		if err != nil {
			t.Fatalf("IngestText(%q) error: %v", raw, err)
		}
		if n != 0 {
			t.Errorf("IngestText(%q) = %d chunks, want 0", raw, n)
		}
	}

	if len(emb.calls) != 0 {
		t.Errorf("embedder called %d times on empty input, want 0", len(emb.calls))
	}
	if store.upserts != 0 {
		t.Errorf("store upserted %d times on empty input, want 0", store.upserts)
	}
	if _, ok := store.tenants["acme"]; !ok {
		t.Error("tenant should still be provisioned before the empty check")
	}
}

func TestIngestAssignsSequentialChunkIndexes(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	svc := newTestService(emb, store)

	raw := strings.Repeat("a", 30*approxCharsPerToken)
	n, err := svc.IngestText(context.Background(), "acme", raw)
	if err != nil {
		t.Fatalf("IngestText error: %v", err)
	}
	if n < 2 {
		t.Fatalf("expected multiple chunks, got %d", n)
	}

	items := store.tenants["acme"]
	if len(items) != n {
		t.Fatalf("stored %d items, reported %d", len(items), n)
	}
	for i, it := range items {
		if it.ChunkIndex != i {
			t.Errorf("item %d has ChunkIndex %d", i, it.ChunkIndex)
		}
		if it.Source != SourceUpload {
			t.Errorf("item %d has Source %q, want %q", i, it.Source, SourceUpload)
		}
		// The fake embeds [len(text), position-in-batch]; position must
		// equal the chunk index when ordering is preserved end to end.
		if int(it.Vector[1]) != i {
			t.Errorf("item %d paired with vector for batch position %d", i, int(it.Vector[1]))
		}
	}

	if len(emb.calls) != 1 {
		t.Errorf("embedder called %d times, want a single batch", len(emb.calls))
	}
}

func TestIngestEmbedderFailureWritesNothing(t *testing.T) {
	emb := &fakeEmbedder{fail: true}
	store := newFakeStore()
	svc := newTestService(emb, store)

	_, err := svc.IngestText(context.Background(), "acme", strings.Repeat("b", 200))
	if err == nil {
		t.Fatal("expected error from failing embedder")
	}
	if store.upserts != 0 {
		t.Errorf("store upserted %d times after embed failure, want 0", store.upserts)
	}
}

func TestTenantIsolation(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	svc := newTestService(emb, store)

	ctx := context.Background()
	if _, err := svc.IngestText(ctx, "acme", "acme product catalog and pricing details"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.IngestText(ctx, "globex", "globex shipping policy"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Retrieve(ctx, "acme", "pricing?", 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range got {
		if strings.Contains(c.Text, "globex") {
			t.Errorf("acme retrieval leaked globex chunk: %q", c.Text)
		}
	}

	if err := svc.store.DeleteTenant(ctx, "globex"); err != nil {
		t.Fatal(err)
	}
	gone, err := svc.Retrieve(ctx, "globex", "shipping?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(gone) != 0 {
		t.Errorf("deleted tenant returned %d chunks, want 0", len(gone))
	}
}

func TestRetrieveHonorsLimitAndDefault(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	svc := newTestService(emb, store)

	ctx := context.Background()
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "topic %02d ", i)
	}
	if _, err := svc.IngestText(ctx, "acme", sb.String()); err != nil {
		t.Fatal(err)
	}
	if len(store.tenants["acme"]) < 6 {
		t.Fatalf("need more than 5 stored chunks, got %d", len(store.tenants["acme"]))
	}

	got, err := svc.Retrieve(ctx, "acme", "topics", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Retrieve k=2 returned %d chunks", len(got))
	}

	// k <= 0 falls back to the configured default of 5.
	got, err = svc.Retrieve(ctx, "acme", "topics", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Errorf("Retrieve k=0 returned %d chunks, want default 5", len(got))
	}

	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("results not ordered nearest-first at position %d", i)
		}
	}
}

func TestRetrieveUnknownTenantReturnsEmpty(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, newFakeStore())

	got, err := svc.Retrieve(context.Background(), "nobody", "anything", 3)
	if err != nil {
		t.Fatalf("unknown tenant should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("unknown tenant returned %d chunks", len(got))
	}
}

func TestClearThenReingestReplacesContent(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	svc := newTestService(emb, store)

	ctx := context.Background()
	if _, err := svc.IngestText(ctx, "acme", "old knowledge base text"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteTenant(ctx, "acme"); err != nil {
		t.Fatal(err)
	}
	n, err := svc.IngestText(ctx, "acme", "fresh replacement text")
	if err != nil {
		t.Fatal(err)
	}
	if len(store.tenants["acme"]) != n {
		t.Errorf("tenant holds %d chunks after replace, want %d", len(store.tenants["acme"]), n)
	}
	for _, it := range store.tenants["acme"] {
		if strings.Contains(it.Text, "old knowledge") {
			t.Errorf("stale chunk survived replacement: %q", it.Text)
		}
	}
}
