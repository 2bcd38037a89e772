package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables, optionally overlaid
// by a .env file in the working directory. Values absent from the
// environment fall back to the defaults applied at the end.
func Load() (Config, error) {
	// Overload so a local .env deterministically controls dev/test runs:
	// its values replace variables already set in the process environment.
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.Environment = firstNonEmpty(os.Getenv("ENVIRONMENT"), "dev")
	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), "info")
	cfg.LogPretty = boolFromEnv("LOG_PRETTY", cfg.Environment == "dev")
	cfg.HTTPAddr = firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8080")

	cfg.Qdrant = QdrantConfig{
		Host:           firstNonEmpty(os.Getenv("QDRANT_HOST"), "localhost"),
		Port:           intFromEnv("QDRANT_PORT", 6334),
		APIKey:         os.Getenv("QDRANT_API_KEY"),
		UseTLS:         boolFromEnv("QDRANT_USE_TLS", false),
		DefaultMetric:  firstNonEmpty(os.Getenv("QDRANT_DISTANCE_METRIC"), "cosine"),
		VectorSize:     intFromEnv("QDRANT_VECTOR_SIZE", 1536),
		TimeoutSeconds: intFromEnv("QDRANT_TIMEOUT_SECONDS", 10),
	}

	cfg.Postgres = PostgresConfig{
		DSN:                   firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_DSN")),
		MaxConns:              intFromEnv("POSTGRES_MAX_CONNS", 10),
		MinConns:              intFromEnv("POSTGRES_MIN_CONNS", 1),
		ConnectTimeoutSeconds: intFromEnv("POSTGRES_CONNECT_TIMEOUT_SECONDS", 10),
	}

	cfg.ObjectStore = ObjectStoreConfig{
		Endpoint:          os.Getenv("OBJECT_STORE_ENDPOINT"),
		Region:            firstNonEmpty(os.Getenv("OBJECT_STORE_REGION"), "us-east-1"),
		Bucket:            firstNonEmpty(os.Getenv("OBJECT_STORE_BUCKET"), "university-documents"),
		AccessKeyID:       os.Getenv("OBJECT_STORE_ACCESS_KEY_ID"),
		SecretAccessKey:   os.Getenv("OBJECT_STORE_SECRET_ACCESS_KEY"),
		UsePathStyle:      boolFromEnv("OBJECT_STORE_USE_PATH_STYLE", true),
		SSEMode:           firstNonEmpty(os.Getenv("OBJECT_STORE_SSE_MODE"), "none"),
		SSEKMSKeyID:       os.Getenv("OBJECT_STORE_SSE_KMS_KEY_ID"),
		PresignTTLMinutes: intFromEnv("OBJECT_STORE_PRESIGN_TTL_MINUTES", 15),
	}

	cfg.Redis = RedisConfig{
		Addr:     firstNonEmpty(os.Getenv("REDIS_ADDR"), "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intFromEnv("REDIS_DB", 0),
	}

	cfg.ClickHouse = ClickHouseConfig{
		DSN:      os.Getenv("CLICKHOUSE_DSN"),
		Database: firstNonEmpty(os.Getenv("CLICKHOUSE_DATABASE"), "default"),
	}

	cfg.Kafka = KafkaConfig{
		Brokers:         firstNonEmpty(os.Getenv("KAFKA_BROKERS"), os.Getenv("KAFKA_BOOTSTRAP_SERVERS")),
		SearchLogTopic:  firstNonEmpty(os.Getenv("KAFKA_SEARCH_LOG_TOPIC"), "search-logs"),
		IngestionTopic:  firstNonEmpty(os.Getenv("KAFKA_INGESTION_TOPIC"), "ingestion-events"),
		ConsumerGroupID: firstNonEmpty(os.Getenv("KAFKA_CONSUMER_GROUP_ID"), "query-orchestrator"),
	}

	cfg.LLM = LLMConfig{
		Provider:       firstNonEmpty(os.Getenv("LLM_PROVIDER"), "anthropic"),
		QAModel:        os.Getenv("LLM_QA_MODEL"),
		ReasoningModel: os.Getenv("LLM_REASONING_MODEL"),
		Anthropic: AnthropicConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			Model:   firstNonEmpty(os.Getenv("ANTHROPIC_MODEL"), "claude-sonnet-4-5"),
			BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   firstNonEmpty(os.Getenv("OPENAI_MODEL"), "gpt-4o"),
			BaseURL: firstNonEmpty(os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_API_BASE_URL")),
		},
		Google: GoogleConfig{
			APIKey:  os.Getenv("GOOGLE_LLM_API_KEY"),
			Model:   firstNonEmpty(os.Getenv("GOOGLE_LLM_MODEL"), "gemini-2.0-flash"),
			BaseURL: os.Getenv("GOOGLE_LLM_BASE_URL"),
		},
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:        firstNonEmpty(os.Getenv("EMBEDDING_PROVIDER"), cfg.LLM.Provider),
		Model:           firstNonEmpty(os.Getenv("EMBEDDING_MODEL"), "text-embedding-3-small"),
		Dimensions:      intFromEnv("EMBEDDING_DIMENSIONS", cfg.Qdrant.VectorSize),
		MaxConcurrent:   intFromEnv("EMBEDDING_MAX_CONCURRENT", 8),
		CacheTTLSeconds: intFromEnv("EMBEDDING_CACHE_TTL_SECONDS", 86400),
		BatchSize:       intFromEnv("EMBEDDING_BATCH_SIZE", 32),
	}

	cfg.RAG = RAGConfig{
		DefaultCollection: firstNonEmpty(os.Getenv("RAG_DEFAULT_COLLECTION"), "default"),
		TopK:              intFromEnv("RAG_TOP_K", 8),
		ScoreThreshold:    floatFromEnv("RAG_SCORE_THRESHOLD", 0.5),
		Deduplicate:       boolFromEnv("RAG_DEDUPLICATE", true),
		DedupCapPerSource: intFromEnv("RAG_DEDUP_CAP_PER_SOURCE", 2),
		SearchType:        firstNonEmpty(os.Getenv("RAG_SEARCH_TYPE"), "similarity"),
		ContextCharBudget: intFromEnv("RAG_CONTEXT_CHAR_BUDGET", 3000*4),
	}

	cfg.Web = WebConfig{
		SearXNGURL:          os.Getenv("SEARXNG_URL"),
		CrawlTimeoutSeconds: intFromEnv("WEB_CRAWL_TIMEOUT_SECONDS", 20),
		UserAgent:           firstNonEmpty(os.Getenv("WEB_USER_AGENT"), "university-query-engine/1.0"),
	}

	cfg.Orchestrator = OrchestratorConfig{
		HighConfidenceThreshold: floatFromEnv("ORCHESTRATOR_HIGH_CONFIDENCE_THRESHOLD", 0.7),
		MaxToolCalls:            intFromEnv("ORCHESTRATOR_MAX_TOOL_CALLS", 3),
		ToolTimeoutSeconds:      intFromEnv("ORCHESTRATOR_TOOL_TIMEOUT_SECONDS", 15),
		SynthesisTimeoutSeconds: intFromEnv("ORCHESTRATOR_SYNTHESIS_TIMEOUT_SECONDS", 30),
	}

	cfg.Personalization = PersonalizationConfig{
		InterestHalfLifeDays:            intFromEnv("PERSONALIZATION_INTEREST_HALF_LIFE_DAYS", 30),
		MemoryExtractionConfidenceFloor: floatFromEnv("PERSONALIZATION_MEMORY_CONFIDENCE_FLOOR", 0.6),
	}

	cfg.Resolver = ResolverConfig{
		MaxCandidates:     intFromEnv("RESOLVER_MAX_CANDIDATES", 5),
		SummaryWordLimit:  intFromEnv("RESOLVER_SUMMARY_WORD_LIMIT", 80),
		SummaryInputChars: intFromEnv("RESOLVER_SUMMARY_INPUT_CHARS", 4000),
		FallbackChars:     intFromEnv("RESOLVER_FALLBACK_CHARS", 500),
	}

	cfg.Monitor = MonitorConfig{
		PollIntervalSeconds: intFromEnv("MONITOR_POLL_INTERVAL_SECONDS", 300),
		MaxConcurrentCrawls: intFromEnv("MONITOR_MAX_CONCURRENT_CRAWLS", 4),
		DefaultMaxFailures:  intFromEnv("MONITOR_DEFAULT_MAX_FAILURES", 5),
	}

	cfg.Ingestion = IngestionConfig{
		MaxConcurrentUploads: intFromEnv("INGESTION_MAX_CONCURRENT_UPLOADS", 8),
		ChunkSize:            intFromEnv("INGESTION_CHUNK_SIZE", 512),
		ChunkOverlap:         intFromEnv("INGESTION_CHUNK_OVERLAP", 50),
	}

	cfg.GapDetector = GapDetectorConfig{
		MinQueries: intFromEnv("GAP_DETECTOR_MIN_QUERIES", 3),
		WindowDays: intFromEnv("GAP_DETECTOR_WINDOW_DAYS", 30),
		MaxScore:   floatFromEnv("GAP_DETECTOR_MAX_SCORE", 0.5),
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	return def
}
