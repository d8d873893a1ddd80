package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"pages-chatbot-platform/internal/ai"
	"pages-chatbot-platform/internal/config"
	"pages-chatbot-platform/internal/logger"
	"pages-chatbot-platform/internal/pages"
	"pages-chatbot-platform/internal/rag"
	"pages-chatbot-platform/internal/telemetry"
	"pages-chatbot-platform/internal/vectorstore"
	"pages-chatbot-platform/middleware"
	"pages-chatbot-platform/routes"
	"pages-chatbot-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Tracing
	shutdownTracer, err := telemetry.InitTracer("pages-chatbot-platform", cfg.OTELEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

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

	// Redis (rate limiting)
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Vector store: provision the shared collection up front so the first
	// activation doesn't pay for it.
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

	// AI clients
	embedder, err := ai.NewEmbeddingService(startupCtx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings:", err)
	}
	defer embedder.Close()

	gemini, err := ai.NewGeminiClient(startupCtx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.RateLimitReqs)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer gemini.Close()

	// Domain services
	chunker := rag.NewChunker(cfg.ChunkTokens, cfg.ChunkOverlapTokens)
	ragService := rag.NewService(chunker, embedder, store, cfg.RAGMaxChunks)
	pageStore := pages.NewStore(db)
	quotas := ai.NewQuotaStore(db)
	extractor := services.NewPDFExtractor()

	// Deferred ingestion queue
	redisOpt, err := cfg.AsynqRedisOpt()
	if err != nil {
		log.Fatal("Failed to resolve Redis options:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	// Periodic vector store flush
	maintenance := services.NewMaintenance()
	if err := maintenance.ScheduleFlush(store, cfg.MilvusFlushEvery); err != nil {
		logger.Warn("failed to schedule flush", "error", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Setup routes
	routes.SetupChatbotRoutes(router, cfg, pageStore, ragService, store, extractor, queueClient, quotas)
	routes.SetupChatRoutes(router, cfg, pageStore, ragService, gemini, quotas)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
