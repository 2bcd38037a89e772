// Command server is the composition root (§2 A6): it builds every adapter
// exactly once from environment-driven configuration, wires them into the
// orchestrator, and runs the Monitor Scheduler and Knowledge Gap detector as
// background loops until a shutdown signal arrives. HTTP/SSE/gRPC transport
// for the query API itself is explicitly out of scope (left to an external
// router, per the Non-goals); this process exposes only the ops-facing
// health/readiness surface a deployable service cannot omit.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"

	"university-query-engine/internal/chunker"
	"university-query-engine/internal/config"
	"university-query-engine/internal/convcontext"
	"university-query-engine/internal/docstore"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/embedding"
	"university-query-engine/internal/eventbus"
	"university-query-engine/internal/ingestion"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/llm/anthropic"
	"university-query-engine/internal/llm/google"
	"university-query-engine/internal/llm/openai"
	"university-query-engine/internal/logging"
	"university-query-engine/internal/monitor"
	"university-query-engine/internal/objectstore"
	"university-query-engine/internal/orchestrator"
	"university-query-engine/internal/personalization"
	"university-query-engine/internal/rag"
	"university-query-engine/internal/resolver"
	"university-query-engine/internal/searchlog"
	"university-query-engine/internal/tools"
	"university-query-engine/internal/vectorindex"
	"university-query-engine/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(cfg.LogLevel, cfg.LogPretty)
	logger := logging.For("server")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}
	defer app.Close()

	go app.Monitor.Run(ctx)
	go runGapDetectorLoop(ctx, app.GapDetector, cfg.GapDetector)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: healthMux(app)}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("health/readiness server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, draining")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("health server shutdown error")
	}
}

// application bundles every long-lived collaborator the composition root
// owns, so main can start background loops and close everything on exit.
type application struct {
	Store        *docstore.Store
	Orchestrator *orchestrator.Orchestrator
	Monitor      *monitor.Scheduler
	GapDetector  *searchlog.GapDetector
	ClickHouse   searchlog.Conn
	EventBus     *eventbus.Publisher
	Redis        redis.UniversalClient
}

func (a *application) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	if a.ClickHouse != nil {
		_ = a.ClickHouse.Close()
	}
	if a.EventBus != nil {
		_ = a.EventBus.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

func healthMux(app *application) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.checkReady(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ready")
	})
	return mux
}

// checkReady pings Redis and ClickHouse; Postgres, Qdrant and Kafka are not
// checked. A nil Redis/ClickHouse collaborator (unconfigured, optional
// infrastructure) is skipped rather than failing readiness.
func (a *application) checkReady(ctx context.Context) error {
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.ClickHouse != nil {
		if err := a.ClickHouse.Ping(ctx); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
	}
	return nil
}

func runGapDetectorLoop(ctx context.Context, detector *searchlog.GapDetector, cfg config.GapDetectorConfig) {
	logger := logging.For("searchlog")
	interval := 24 * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := detector.DetectGaps(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("knowledge gap detection pass failed")
				continue
			}
			logger.Info().Int("gaps", n).Msg("knowledge gap detection pass complete")
		}
	}
}

// build constructs every adapter exactly once and wires the orchestrator.
func build(ctx context.Context, cfg config.Config) (*application, error) {
	pool, err := docstore.OpenPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := docstore.Init(ctx, pool); err != nil {
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	store := docstore.New(pool)

	index, err := vectorindex.NewQdrantIndex(cfg.Qdrant)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}

	embedProvider := buildEmbeddingProvider(cfg.Embedding, cfg.LLM)
	embedGateway := embedding.NewCachingGateway(
		embedProvider, rdb,
		time.Duration(cfg.Embedding.CacheTTLSeconds)*time.Second,
		cfg.Embedding.MaxConcurrent,
	)

	httpClient := http.DefaultClient
	llmProvider := buildLLMProvider(cfg.LLM, httpClient)

	var objects orchestrator.Presigner
	if cfg.ObjectStore.Bucket != "" {
		s3Store, err := objectstore.NewS3Store(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("connect object store: %w", err)
		}
		objects = s3Store
	} else {
		objects = objectstore.NewMemoryStore("http://localhost" + cfg.HTTPAddr + "/objects")
	}

	crawler := web.NewCrawler(cfg.Web)
	searcher := web.NewSearcher(cfg.Web)

	ragEngine := rag.New(chunker.SimpleChunker{}, embedGateway, index, cfg.RAG)

	res := resolver.New(embedGateway, index, llmProvider, cfg.LLM.QAModelOrDefault(), cfg.LLM.ReasoningModelOrDefault(), cfg.Resolver)
	ingest := ingestion.New(store, res)
	ingest.RAG = ragEngine

	bus := eventbus.New(cfg.Kafka)
	ingest.Events = bus

	scheduler := monitor.New(store, crawler, ingest, cfg.Monitor)

	chConn, err := searchlog.Open(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	if err := searchlog.EnsureSchema(ctx, chConn); err != nil {
		return nil, fmt.Errorf("ensure clickhouse schema: %w", err)
	}
	searchLogger := searchlog.NewLogger(chConn)
	gapDetector := searchlog.NewGapDetector(chConn, store, cfg.GapDetector)

	personalizationSvc := personalization.New(store, cfg.Personalization)

	registry := tools.NewRegistry()
	model := cfg.LLM.QAModelOrDefault()
	registry.Register(&tools.AnswerDirectly{Provider: llmProvider, Model: model})
	registry.Register(&tools.UseRAGContext{RAG: ragEngine, Index: index, Collection: cfg.RAG.DefaultCollection, Provider: llmProvider, Model: model})
	registry.Register(&tools.SearchWeb{Searcher: searcher})
	registry.Register(&tools.ClarifyQuestion{})
	registry.Register(&tools.FillForm{Profiles: personalizationSvc})
	registry.Register(&tools.AnalyzeImage{Provider: llmProvider, Model: model, RAG: ragEngine})

	orch := orchestrator.New(ragEngine, registry, cfg.Orchestrator)
	orch.Conv = convcontext.New(store)
	orch.Docs = store
	orch.Objects = objects
	orch.SearchLog = searchLogger
	orch.Results = resultRecorder{store: store}
	orch.ModelName = model

	return &application{
		Store:        store,
		Orchestrator: orch,
		Monitor:      scheduler,
		GapDetector:  gapDetector,
		ClickHouse:   chConn,
		EventBus:     bus,
		Redis:        rdb,
	}, nil
}

// resultRecorder bridges docstore's SQL-method-per-concern naming
// (PutOrchestrationResult) to the orchestrator.ResultRecorder port's Record
// method name.
type resultRecorder struct {
	store *docstore.Store
}

func (r resultRecorder) Record(ctx context.Context, result domain.OrchestrationResult) error {
	return r.store.PutOrchestrationResult(ctx, result)
}

func buildEmbeddingProvider(cfg config.EmbeddingConfig, llmCfg config.LLMConfig) embedding.Provider {
	dim := cfg.Dimensions
	if dim <= 0 {
		dim = 1536
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		openaiCfg := llmCfg.OpenAI
		openaiCfg.Model = cfg.Model
		return embedding.NewOpenAIProvider(openaiCfg, dim)
	case "google":
		return newGoogleEmbeddingProvider(llmCfg.Google, cfg.Model, dim)
	default:
		return embedding.NewDeterministicProvider(dim, 0)
	}
}

// newGoogleEmbeddingProvider builds a Gemini-backed embedding Provider. The
// genai client's lifecycle is owned here (a client is constructed on each
// embed call, so a misconfigured key never blocks startup) per
// embedding.NewGoogleProvider's contract.
func newGoogleEmbeddingProvider(cfg config.GoogleConfig, model string, dim int) embedding.Provider {
	if model == "" {
		model = "text-embedding-004"
	}
	return embedding.NewGoogleProvider(model, dim, func(ctx context.Context, texts []string, model string) ([][]float32, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("new genai client: %w", err)
		}
		contents := make([]*genai.Content, len(texts))
		for i, t := range texts {
			contents[i] = genai.NewContentFromText(t, genai.RoleUser)
		}
		resp, err := client.Models.EmbedContent(ctx, model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		out := make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			out[i] = e.Values
		}
		return out, nil
	})
}

func buildLLMProvider(cfg config.LLMConfig, httpClient *http.Client) llm.Provider {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return openai.New(cfg.OpenAI, httpClient)
	case "google":
		return google.New(cfg.Google)
	default:
		return anthropic.New(cfg.Anthropic, httpClient)
	}
}
