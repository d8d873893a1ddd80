package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	MongoURI string
	DBName   string

	// Milvus vector index. One collection shared by all tenants, one
	// partition per page nickname.
	MilvusAddress    string
	MilvusCollection string
	VectorDimensions int
	MilvusFlushEvery time.Duration

	// Gemini / embeddings
	GeminiAPIKey          string
	GeminiModel           string
	EmbeddingsProvider    string // "google" (default), "openai"
	GoogleEmbeddingsModel string
	OpenAIAPIKey          string
	OpenAIEmbeddingsModel string

	// RAG parameters
	ChunkTokens        int
	ChunkOverlapTokens int
	RAGMaxChunks       int
	MaxInputTokens     int
	MinContentChars    int

	// Uploads
	MaxFileSize     int64
	SyncIngestLimit int

	// Session cookie verification
	SessionSecret     string
	SessionCookieName string

	// Redis (rate limiting + asynq)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	OTELEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/pages_chatbot"),
		DBName:   getEnv("DB_NAME", "pages_chatbot"),

		MilvusAddress:    getEnv("MILVUS_ADDRESS", ""),
		MilvusCollection: getEnv("MILVUS_COLLECTION", "doc_chunks"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),
		MilvusFlushEvery: time.Duration(getEnvInt("MILVUS_FLUSH_INTERVAL", 60)) * time.Second,

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),

		ChunkTokens:        getEnvInt("CHUNK_TOKENS", 400),
		ChunkOverlapTokens: getEnvInt("CHUNK_OVERLAP_TOKENS", 100),
		RAGMaxChunks:       getEnvInt("RAG_MAX_CHUNKS", 5),
		MaxInputTokens:     getEnvInt("MAX_INPUT_TOKENS", 300),
		MinContentChars:    getEnvInt("MIN_CONTENT_CHARS", 100),

		MaxFileSize:     getEnvInt64("MAX_FILE_SIZE", 20971520), // 20MB
		SyncIngestLimit: getEnvInt("SYNC_INGEST_LIMIT", 200000), // chars; larger uploads go through the queue

		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "__session"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTELEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.MilvusAddress == "" {
		return nil, fmt.Errorf("MILVUS_ADDRESS is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required - set it in .env file")
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
