package domain

import "time"

// ToolType enumerates the capabilities the orchestrator can invoke.
type ToolType string

const (
	ToolUseRAGContext  ToolType = "use_rag_context"
	ToolSearchWeb      ToolType = "search_web"
	ToolAnswerDirectly ToolType = "answer_directly"
	ToolFillForm       ToolType = "fill_form"
	ToolClarify        ToolType = "clarify_question"
	ToolAnalyzeImage   ToolType = "analyze_image"
)

// ExecutionStatus is the lifecycle state of a Tool Call.
type ExecutionStatus string

const (
	ExecPending   ExecutionStatus = "pending"
	ExecRunning   ExecutionStatus = "running"
	ExecSucceeded ExecutionStatus = "succeeded"
	ExecFailed    ExecutionStatus = "failed"
)

// ToolCall records one invocation of a tool handler.
type ToolCall struct {
	ToolType        ToolType        `json:"tool_type"`
	Arguments       map[string]any  `json:"arguments"`
	ExecutionStatus ExecutionStatus `json:"execution_status"`
	Result          map[string]any  `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	ExecutionTimeMS int64           `json:"execution_time_ms"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     time.Time       `json:"completed_at"`
}

// VectorReference summarizes the retrieval signal used for a decision.
type VectorReference struct {
	TopScore         float64           `json:"top_score"`
	AvgScore         float64           `json:"avg_score"`
	ChunkCount       int               `json:"chunk_count"`
	HasHighConfidence bool             `json:"has_high_confidence"`
	Threshold        float64           `json:"threshold"`
	SampleChunks     []string          `json:"sample_chunks,omitempty"`
}

// Metrics captures per-stage timing for one orchestration run.
type Metrics struct {
	DecisionTimeMS       int64 `json:"decision_time_ms"`
	ToolExecutionTimeMS  int64 `json:"tool_execution_time_ms"`
	SynthesisTimeMS      int64 `json:"synthesis_time_ms"`
	TotalTimeMS          int64 `json:"total_time_ms"`
	TokensUsed           int   `json:"tokens_used"`
}

// OrchestrationResult is the full record of one smart-query run.
type OrchestrationResult struct {
	Query           string           `json:"query"`
	SessionID       string           `json:"session_id,omitempty"`
	UserID          string           `json:"user_id,omitempty"`
	ToolCalls       []ToolCall       `json:"tool_calls"`
	PrimaryTool     ToolType         `json:"primary_tool"`
	FinalAnswer     string           `json:"final_answer"`
	Success         bool             `json:"success"`
	Error           string           `json:"error,omitempty"`
	VectorReference VectorReference  `json:"vector_reference"`
	Metrics         Metrics          `json:"metrics"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Intent is the coarse classification driving orchestration policy.
type Intent string

const (
	IntentGeneralAnswer       Intent = "general_answer"
	IntentFileRequest         Intent = "file_request"
	IntentFormRequest         Intent = "form_request"
	IntentProcedureGuide      Intent = "procedure_guide"
	IntentContactInfo         Intent = "contact_info"
	IntentNavigation          Intent = "navigation"
	IntentImageQuery          Intent = "image_query"
	IntentClarificationNeeded Intent = "clarification_needed"
)

// SourceType distinguishes how a cited Source was obtained.
type SourceType string

const (
	SourceDocument       SourceType = "document"
	SourceWebSearch      SourceType = "web_search"
	SourceDirectKnowledge SourceType = "direct_knowledge"
)

// Source is one citation surfaced in an external response.
type Source struct {
	SourceType     SourceType `json:"source_type"`
	DocumentID     string     `json:"document_id,omitempty"`
	Title          string     `json:"title,omitempty"`
	URL            string     `json:"url,omitempty"`
	ChunkText      string     `json:"chunk_text,omitempty"`
	RelevanceScore float64    `json:"relevance_score"`
}

// ArtifactRef is the externally facing representation of an Artifact,
// resolved with a presigned download (and optional preview) URL.
type ArtifactRef struct {
	ArtifactID  string   `json:"artifact_id"`
	DocumentID  string   `json:"document_id"`
	FileName    string   `json:"file_name"`
	ArtifactType ArtifactType `json:"artifact_type"`
	DownloadURL string   `json:"download_url"`
	PreviewURL  string   `json:"preview_url,omitempty"`
	SizeBytes   int64    `json:"size_bytes"`
	IsFillable  bool     `json:"is_fillable"`
	FillFields  []string `json:"fill_fields,omitempty"`
}

// ResponseMetadata accompanies a synthesized QueryResponse.
type ResponseMetadata struct {
	ModelUsed         string `json:"model_used"`
	ProcessingTimeMS  int64  `json:"processing_time_ms"`
	TokensUsed        int    `json:"tokens_used"`
	SourcesCount      int    `json:"sources_count"`
	ArtifactsCount    int    `json:"artifacts_count"`
	HasFillableForm   bool   `json:"has_fillable_form"`
	ErrorKind         string `json:"error_kind,omitempty"`
}

// QueryResponse is the external, synthesized smart-query response (§6).
type QueryResponse struct {
	Content   string            `json:"content"`
	Intent    Intent            `json:"intent"`
	Artifacts []ArtifactRef     `json:"artifacts"`
	Sources   []Source          `json:"sources"`
	Metadata  ResponseMetadata  `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}
