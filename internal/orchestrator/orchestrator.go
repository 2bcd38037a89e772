// Package orchestrator implements the per-request state machine (§4.9):
// S0_start → S1_context → S2_classify → S3_retrieve → S4_decide →
// S5_execute → S6_synthesize → S_end, with S_error as the fallback that
// still produces a user-facing response instead of propagating a raw
// error. It chooses and composes the Tool Handler Registry's handlers
// into one structured QueryResponse.
package orchestrator

import (
	"context"
	"time"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/intent"
	"university-query-engine/internal/rag"
	"university-query-engine/internal/tools"
)

const component = "orchestrator"

// formScoreThreshold is the hard cutoff chosen for the fill_form-vs-
// use_rag_context ambiguity band the source left unresolved (see DESIGN.md).
const formScoreThreshold = 0.85

// ImageAttachment is the optional inline image carried by a request, used
// by the analyze_image tool.
type ImageAttachment struct {
	Bytes  []byte
	Format string
}

// Request is the orchestrator's entry point input (§4.9, §6).
type Request struct {
	Query               string
	SessionID           string
	UserID              string
	Collection          string
	EnableRAG           bool
	TopK                int
	SimilarityThreshold float64
	MetadataFilter      map[string]string
	IncludeSources      bool
	SystemPrompt        string
	Temperature         float64
	MaxTokens           int
	AttachedImage       *ImageAttachment
}

// ConversationContextProvider supplies the bounded dialogue window S1
// folds into the request (§4.14). Optional: a nil Orchestrator.Conv skips S1.
type ConversationContextProvider interface {
	RecentContext(ctx context.Context, sessionID string, maxTurns, maxChars int) (string, error)
}

// DocumentFetcher resolves a retrieved chunk's owning Document so S4/S4.9a
// can inspect and attach its artifacts. Satisfied directly by *docstore.Store.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, id string) (domain.Document, error)
}

// Presigner issues a time-limited download URL for an object-store key.
// Satisfied directly by objectstore.Store.
type Presigner interface {
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// SearchLogger records a Search Log entry for later gap analysis (§4.15).
// Optional: logging failures never fail the response.
type SearchLogger interface {
	Log(ctx context.Context, entry domain.SearchLog) error
}

// ResultRecorder persists the full OrchestrationResult (§4.4). Optional.
type ResultRecorder interface {
	Record(ctx context.Context, result domain.OrchestrationResult) error
}

// Orchestrator wires the state machine's collaborators. Conv, Docs,
// Objects, SearchLog, and Results are optional; a nil value skips the
// step that depends on it rather than failing the request.
type Orchestrator struct {
	Conv      ConversationContextProvider
	RAG       *rag.Engine
	Tools     *tools.Registry
	Docs      DocumentFetcher
	Objects   Presigner
	SearchLog SearchLogger
	Results   ResultRecorder
	Config    config.OrchestratorConfig
	// ModelName is surfaced verbatim in QueryResponse.Metadata.ModelUsed;
	// it names the LLM model the wired tool handlers were constructed with.
	ModelName string
}

// New builds an Orchestrator from its collaborators.
func New(ragEngine *rag.Engine, registry *tools.Registry, cfg config.OrchestratorConfig) *Orchestrator {
	return &Orchestrator{RAG: ragEngine, Tools: registry, Config: cfg}
}

// retrieval bundles one S3 hit with its owning Document, when resolvable.
type retrieval struct {
	rag.Result
	Document *domain.Document
}

// Execute runs S0 through S6 and always returns a QueryResponse: S_error
// still synthesizes a user-facing message instead of propagating err to
// the caller (the error text is recorded in the returned
// OrchestrationResult's Error field for logging/metrics purposes).
func (o *Orchestrator) Execute(ctx context.Context, req Request) (domain.QueryResponse, domain.OrchestrationResult) {
	start := time.Now()
	result := domain.OrchestrationResult{
		Query:     req.Query,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		CreatedAt: start,
	}

	convContext := o.runContext(ctx, req)

	hasImage := req.AttachedImage != nil
	cls := intent.Classify(req.Query, hasImage)

	decisionStart := time.Now()
	retrievals, vref, err := o.runRetrieve(ctx, req)
	if err != nil {
		return o.fail(result, apperr.Wrap(apperr.DependencyUnavailable, component, err))
	}
	result.VectorReference = vref

	dec := o.decide(req, cls, vref, retrievals)
	result.Metrics.DecisionTimeMS = time.Since(decisionStart).Milliseconds()

	toolStart := time.Now()
	call := o.runTool(ctx, req, dec, convContext)
	result.ToolCalls = append(result.ToolCalls, call)
	result.PrimaryTool = dec.Primary
	result.Metrics.ToolExecutionTimeMS = time.Since(toolStart).Milliseconds()

	if call.ExecutionStatus == domain.ExecFailed {
		return o.fail(result, apperr.Newf(apperr.Internal, component, "tool %s failed: %s", dec.Primary, call.Error))
	}

	synthStart := time.Now()
	artifacts := o.attachArtifacts(ctx, retrievals, cls.WantsFillableForm)
	resp := o.synthesize(req, dec, call, cls, artifacts)
	result.Metrics.SynthesisTimeMS = time.Since(synthStart).Milliseconds()
	result.Metrics.TotalTimeMS = time.Since(start).Milliseconds()
	result.FinalAnswer = resp.Content
	result.Success = true

	o.logSideEffects(ctx, req, retrievals, vref, result)

	return resp, result
}

func (o *Orchestrator) runContext(ctx context.Context, req Request) string {
	if o.Conv == nil || req.SessionID == "" {
		return ""
	}
	text, err := o.Conv.RecentContext(ctx, req.SessionID, 6, 2000)
	if err != nil {
		return ""
	}
	return text
}

func (o *Orchestrator) fail(result domain.OrchestrationResult, err error) (domain.QueryResponse, domain.OrchestrationResult) {
	result.Success = false
	result.Error = err.Error()
	result.FinalAnswer = "Xin lỗi, hiện không thể trả lời câu hỏi này."
	return domain.QueryResponse{
		Content: result.FinalAnswer,
		Intent:  domain.IntentGeneralAnswer,
		Metadata: domain.ResponseMetadata{
			ErrorKind: string(apperr.KindOf(err)),
		},
		CreatedAt: time.Now(),
	}, result
}
