package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"pages-chatbot-platform/internal/logger"
	"pages-chatbot-platform/internal/pages"
	"pages-chatbot-platform/internal/rag"
	"pages-chatbot-platform/models"
)

const TaskIngestContent = "chatbot:ingest"

// IngestPayload carries one deferred activation: the extracted text is already
// in the payload, so the worker never touches uploaded files.
type IngestPayload struct {
	Nickname      string `json:"nickname"`
	Content       string `json:"content"`
	SourceFile    string `json:"source_file,omitempty"`
	ClearExisting bool   `json:"clear_existing"`
}

func NewIngestTask(p IngestPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestContent,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

// IngestProcessor runs deferred ingestion jobs on the worker.
type IngestProcessor struct {
	ragService *rag.Service
	store      rag.VectorStore
	pageStore  *pages.Store
}

func NewIngestProcessor(ragService *rag.Service, store rag.VectorStore, pageStore *pages.Store) *IngestProcessor {
	return &IngestProcessor{
		ragService: ragService,
		store:      store,
		pageStore:  pageStore,
	}
}

// HandleIngest mirrors the synchronous activation path: optional tenant wipe,
// ingest, then flip the page active. Retries re-run the whole job, which is
// safe because a retried clear starts from an empty tenant again.
func (p *IngestProcessor) HandleIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("processing deferred ingestion", "nickname", payload.Nickname, "bytes", len(payload.Content))

	if payload.ClearExisting {
		if err := p.store.DeleteTenant(ctx, payload.Nickname); err != nil {
			return fmt.Errorf("clear tenant %q: %w", payload.Nickname, err)
		}
	}

	chunks, err := p.ragService.IngestText(ctx, payload.Nickname, payload.Content)
	if err != nil {
		return err
	}

	now := time.Now()
	info := &models.ChatbotInfo{
		Chunks:       chunks,
		SourceFile:   payload.SourceFile,
		ActivatedAt:  now,
		LastIngestAt: now,
	}
	if err := p.pageStore.SetChatbotActive(ctx, payload.Nickname, true, info); err != nil {
		return err
	}

	logger.Info("deferred ingestion complete", "nickname", payload.Nickname, "chunks", chunks)
	return nil
}
