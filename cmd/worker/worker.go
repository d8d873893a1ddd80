package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"pages-chatbot-platform/internal/ai"
	"pages-chatbot-platform/internal/config"
	"pages-chatbot-platform/internal/logger"
	"pages-chatbot-platform/internal/pages"
	"pages-chatbot-platform/internal/queue"
	"pages-chatbot-platform/internal/rag"
	"pages-chatbot-platform/internal/vectorstore"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	store, err := vectorstore.NewMilvusStore(startupCtx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to Milvus:", err)
	}
	defer store.Close()
	if err := store.EnsureCollection(startupCtx); err != nil {
		log.Fatal("Failed to provision vector collection:", err)
	}

	embedder, err := ai.NewEmbeddingService(startupCtx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings:", err)
	}
	defer embedder.Close()

	chunker := rag.NewChunker(cfg.ChunkTokens, cfg.ChunkOverlapTokens)
	ragService := rag.NewService(chunker, embedder, store, cfg.RAGMaxChunks)
	pageStore := pages.NewStore(db)

	// Redis options for Asynq
	redisOpt, err := cfg.AsynqRedisOpt()
	if err != nil {
		log.Fatal("Failed to resolve Redis options:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"ingest": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewIngestProcessor(ragService, store, pageStore)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestContent, processor.HandleIngest)

	logger.Info("starting ingestion worker", "redis", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
