package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"pages-chatbot-platform/internal/config"
)

// EmbeddingService produces embedding vectors for chunk batches. Default
// provider is Google Generative AI (text-embedding-004); the client is
// constructed once and shared, batching keeps one ingestion to one API call.
type EmbeddingService struct {
	client *genai.Client
	model  string
	dim    int
}

func NewEmbeddingService(ctx context.Context, cfg *config.Config) (*EmbeddingService, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, err
		}
		return &EmbeddingService{
			client: client,
			model:  cfg.GoogleEmbeddingsModel,
			dim:    cfg.VectorDimensions,
		}, nil

	case "openai":
		// Optional: implement OpenAI embeddings if needed
		return nil, fmt.Errorf("openai embeddings not implemented")

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}

// EmbedBatch embeds texts in one batched request. The response preserves
// request order, so vector i belongs to texts[i].
func (es *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := es.client.EmbeddingModel(es.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("batch embed %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		if es.dim > 0 && len(e.Values) != es.dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(e.Values), es.dim)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

func (es *EmbeddingService) Close() error {
	if es.client != nil {
		return es.client.Close()
	}
	return nil
}
