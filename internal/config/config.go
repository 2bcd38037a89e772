// Package config loads runtime configuration for the orchestration engine
// from the process environment (and an optional .env file), the way the
// rest of this codebase's services are configured.
package config

// QdrantConfig configures the vector index adapter.
type QdrantConfig struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	DefaultMetric  string // cosine | euclid | dot | manhattan
	VectorSize     int
	TimeoutSeconds int
}

// PostgresConfig configures the document store adapter.
type PostgresConfig struct {
	DSN                   string
	MaxConns              int
	MinConns              int
	ConnectTimeoutSeconds int
}

// ObjectStoreConfig configures the S3/MinIO-compatible object store adapter.
type ObjectStoreConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	UsePathStyle      bool
	SSEMode           string // none | aes256 | aws:kms
	SSEKMSKeyID       string
	PresignTTLMinutes int
}

// RedisConfig configures the embedding cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the search-log / knowledge-gap analytics store.
type ClickHouseConfig struct {
	DSN      string
	Database string
}

// KafkaConfig configures the async event bus used for search-log and
// ingestion-event publication.
type KafkaConfig struct {
	Brokers         string
	SearchLogTopic  string
	IngestionTopic  string
	ConsumerGroupID string
}

// AnthropicConfig, OpenAIConfig, GoogleConfig configure the three LLM
// provider ports.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GoogleConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LLMConfig selects and configures the active provider stack. QAModel and
// ReasoningModel name the model string callers that distinguish the two LLM
// modes (fast/grounded answering vs. careful structured-JSON reasoning)
// should pass to Provider.Chat; both default to the active provider's
// configured model when unset.
type LLMConfig struct {
	Provider       string // anthropic | openai | google
	QAModel        string
	ReasoningModel string
	Anthropic      AnthropicConfig
	OpenAI         OpenAIConfig
	Google         GoogleConfig
}

// ActiveModel returns the configured model string for the selected
// provider.
func (c LLMConfig) ActiveModel() string {
	switch c.Provider {
	case "openai":
		return c.OpenAI.Model
	case "google":
		return c.Google.Model
	default:
		return c.Anthropic.Model
	}
}

// QAModelOrDefault returns QAModel, falling back to the active provider's
// model when unset.
func (c LLMConfig) QAModelOrDefault() string {
	if c.QAModel != "" {
		return c.QAModel
	}
	return c.ActiveModel()
}

// ReasoningModelOrDefault returns ReasoningModel, falling back to the active
// provider's model when unset.
func (c LLMConfig) ReasoningModelOrDefault() string {
	if c.ReasoningModel != "" {
		return c.ReasoningModel
	}
	return c.ActiveModel()
}

// EmbeddingConfig configures the embedding gateway.
type EmbeddingConfig struct {
	Provider        string // same providers as LLMConfig, embeddings-capable
	Model           string
	Dimensions      int
	MaxConcurrent   int
	CacheTTLSeconds int
	BatchSize       int
}

// RAGConfig tunes the RAG Engine's default search and context-assembly
// behavior (callers may override per-call).
type RAGConfig struct {
	DefaultCollection  string
	TopK               int
	ScoreThreshold     float64
	Deduplicate        bool
	DedupCapPerSource  int
	SearchType         string // "similarity" | "mmr"
	ContextCharBudget  int    // default ~3000 tokens * 4 chars/token
}

// WebConfig configures the crawler and web-search tool.
type WebConfig struct {
	SearXNGURL          string
	CrawlTimeoutSeconds int
	UserAgent           string
}

// OrchestratorConfig tunes the state-machine's policy thresholds.
type OrchestratorConfig struct {
	HighConfidenceThreshold float64
	MaxToolCalls            int
	ToolTimeoutSeconds      int
	SynthesisTimeoutSeconds int
}

// PersonalizationConfig tunes the profile-decay and memory-extraction jobs.
type PersonalizationConfig struct {
	InterestHalfLifeDays            int
	MemoryExtractionConfidenceFloor float64
}

// ResolverConfig tunes the Document Resolver's summarization and candidate
// search.
type ResolverConfig struct {
	MaxCandidates      int
	SummaryWordLimit   int
	SummaryInputChars  int // how much raw content is shown to the summarizer
	FallbackChars      int // first-N-chars fallback when summarization fails
}

// MonitorConfig tunes the periodic re-crawl scheduler.
type MonitorConfig struct {
	PollIntervalSeconds int
	MaxConcurrentCrawls int
	DefaultMaxFailures  int
}

// IngestionConfig tunes the ingestion/dedup pipeline.
type IngestionConfig struct {
	MaxConcurrentUploads int
	ChunkSize            int
	ChunkOverlap         int
}

// GapDetectorConfig tunes the knowledge-gap aggregation pass over the
// ClickHouse search log (§4.15).
type GapDetectorConfig struct {
	MinQueries int     // occurrences required within the window before a gap is raised
	WindowDays int     // recency window the aggregation scans
	MaxScore   float64 // only patterns whose top_score stays below this qualify
}

// Config is the engine's fully resolved runtime configuration.
type Config struct {
	Environment string // dev | staging | prod
	LogLevel    string
	LogPretty   bool

	HTTPAddr string

	Qdrant          QdrantConfig
	Postgres        PostgresConfig
	ObjectStore     ObjectStoreConfig
	Redis           RedisConfig
	ClickHouse      ClickHouseConfig
	Kafka           KafkaConfig
	LLM             LLMConfig
	Embedding       EmbeddingConfig
	RAG             RAGConfig
	Web             WebConfig
	Orchestrator    OrchestratorConfig
	Personalization PersonalizationConfig
	Resolver        ResolverConfig
	Monitor         MonitorConfig
	Ingestion       IngestionConfig
	GapDetector     GapDetectorConfig
}
