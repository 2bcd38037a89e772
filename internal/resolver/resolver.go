// Package resolver implements the Document Resolver (§4.11): given a
// freshly crawled page, decide whether it is brand new, an update of an
// existing document, or low-value/unrelated, using an LLM summary, a
// nearest-neighbor candidate search over the Vector Index Adapter, and a
// second LLM call in reasoning mode to triage against those candidates.
// It generalizes the teacher's document_resolver.py triage flow into the
// same three-step shape over this codebase's embedding/vector-index/LLM
// ports.
package resolver

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"university-query-engine/internal/config"
	"university-query-engine/internal/embedding"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/vectorindex"
)

const component = "resolver"

// Action is the resolver's triage verdict.
type Action int

const (
	ActionUnrelated Action = 0
	ActionNew       Action = 1
	ActionUpdate    Action = 2
)

// CandidateDocument is one nearest-neighbor hit surfaced to the triage LLM.
type CandidateDocument struct {
	ID        string
	Title     string
	Summary   string
	Score     float64
	SourceURL string
}

// ResolutionResult is the resolver's full output (§4.11 step 4).
type ResolutionResult struct {
	Action     Action
	Reason     string
	UpdatedID  string
	Summary    string
	Candidates []CandidateDocument
}

// Input is a freshly crawled page awaiting triage.
type Input struct {
	Title      string
	Content    string
	Collection string
	SourceURL  string
	Category   string
}

// Resolver is the Document Resolver port.
type Resolver struct {
	Embed    embedding.Gateway
	Index    vectorindex.Index
	Provider llm.Provider
	QAModel        string
	ReasoningModel string
	Config         config.ResolverConfig
}

// New builds a Resolver from its collaborators.
func New(embed embedding.Gateway, index vectorindex.Index, provider llm.Provider, qaModel, reasoningModel string, cfg config.ResolverConfig) *Resolver {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	if cfg.SummaryWordLimit <= 0 {
		cfg.SummaryWordLimit = 80
	}
	if cfg.SummaryInputChars <= 0 {
		cfg.SummaryInputChars = 4000
	}
	if cfg.FallbackChars <= 0 {
		cfg.FallbackChars = 500
	}
	return &Resolver{Embed: embed, Index: index, Provider: provider, QAModel: qaModel, ReasoningModel: reasoningModel, Config: cfg}
}

// Resolve runs the three-step triage (§4.11).
func (r *Resolver) Resolve(ctx context.Context, in Input) ResolutionResult {
	summary := r.summarize(ctx, in.Content)
	candidates := r.searchCandidates(ctx, in.Title, summary, in.Collection)
	action, reason, updatedID := r.classify(ctx, in.Title, summary, candidates)

	return ResolutionResult{
		Action:     action,
		Reason:     reason,
		UpdatedID:  updatedID,
		Summary:    summary,
		Candidates: candidates,
	}
}

// summarize asks the LLM in QA mode for a <=80-word Vietnamese summary,
// falling back to the first FallbackChars characters of content on any
// failure (empty response included).
func (r *Resolver) summarize(ctx context.Context, content string) string {
	input := content
	if len(input) > r.Config.SummaryInputChars {
		input = input[:r.Config.SummaryInputChars]
	}
	fallback := content
	if len(fallback) > r.Config.FallbackChars {
		fallback = fallback[:r.Config.FallbackChars]
	}

	prompt := "Tóm tắt thông báo sau trong <=" + strconv.Itoa(r.Config.SummaryWordLimit) + " từ để dùng cho hệ thống triage.\n" +
		"Chỉ trả lời phần tóm tắt tiếng Việt, không thêm giải thích.\n\n" + input

	resp, err := r.Provider.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil, r.QAModel)
	if err != nil {
		return fallback
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return fallback
	}
	return summary
}

// searchCandidates embeds "Tiêu đề: <title>\nTóm tắt: <summary>" and
// searches collection for the nearest chunks, collapsed to one candidate
// per source_id keeping the highest-scoring hit, capped at MaxCandidates.
// A failure here yields no candidates rather than failing resolution — an
// empty candidate list is a legitimate "no matches" signal.
func (r *Resolver) searchCandidates(ctx context.Context, title, summary, collection string) []CandidateDocument {
	combined := "Tiêu đề: " + title + "\nTóm tắt: " + summary
	vecs, err := r.Embed.EmbedBatch(ctx, []string{combined})
	if err != nil || len(vecs) == 0 {
		return nil
	}

	hits, err := r.Index.Search(ctx, collection, vecs[0], r.Config.MaxCandidates*3, nil)
	if err != nil {
		return nil
	}

	bySource := map[string]CandidateDocument{}
	order := []string{}
	for _, h := range hits {
		sourceID := h.Payload["source_id"]
		if sourceID == "" {
			continue
		}
		existing, seen := bySource[sourceID]
		if seen && existing.Score >= h.Score {
			continue
		}
		if !seen {
			order = append(order, sourceID)
		}
		summaryText := h.Payload["content"]
		if len(summaryText) > 400 {
			summaryText = summaryText[:400]
		}
		bySource[sourceID] = CandidateDocument{
			ID:        sourceID,
			Title:     h.Payload["source_title"],
			Summary:   summaryText,
			Score:     h.Score,
			SourceURL: h.Payload["source_url"],
		}
	}

	candidates := make([]CandidateDocument, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, bySource[id])
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > r.Config.MaxCandidates {
		candidates = candidates[:r.Config.MaxCandidates]
	}
	return candidates
}

type triageResponse struct {
	Action    json.Number `json:"action"`
	Reason    string      `json:"reason"`
	UpdatedID string      `json:"updated_id"`
}

// classify submits title + summary + numbered candidates to the LLM in
// reasoning mode, requiring JSON {action, reason, updated_id}. Malformed
// JSON (or a call failure) defaults to ActionNew with no updated_id, per
// §4.11 step 3.
func (r *Resolver) classify(ctx context.Context, title, summary string, candidates []CandidateDocument) (Action, string, string) {
	prompt := "Bạn là hệ thống phân loại thông báo đại học.\n" +
		"Quy tắc:\n" +
		"- action=1 nếu nội dung mới và hữu ích.\n" +
		"- action=0 nếu giá trị thấp/không liên quan.\n" +
		"- action=2 nếu đây là bản cập nhật của một nội dung cũ (ghi rõ updated_id nếu biết).\n\n" +
		"Thông báo mới:\nTiêu đề: " + title + "\nTóm tắt: " + summary + "\n\n" +
		"Các thông báo gần nhất:\n" + candidateBlock(candidates) + "\n\n" +
		`Chỉ trả về JSON: {"action":1|0|2,"reason":"...", "updated_id":"id hoặc null"}`

	resp, err := r.Provider.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil, r.ReasoningModel)
	if err != nil {
		return ActionNew, "", ""
	}

	parsed, ok := parseTriage(resp.Content)
	if !ok {
		return ActionNew, "", ""
	}

	n, err := parsed.Action.Int64()
	if err != nil {
		return ActionNew, "", ""
	}

	updatedID := parsed.UpdatedID
	if updatedID == "" || updatedID == "null" {
		updatedID = ""
	}

	switch n {
	case int64(ActionUpdate):
		return ActionUpdate, parsed.Reason, updatedID
	case int64(ActionUnrelated):
		return ActionUnrelated, parsed.Reason, ""
	default:
		return ActionNew, parsed.Reason, ""
	}
}

func candidateBlock(candidates []CandidateDocument) string {
	if len(candidates) == 0 {
		return "Không có dữ liệu gần nhất."
	}
	var b strings.Builder
	for i, c := range candidates {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". id=")
		b.WriteString(c.ID)
		b.WriteString("; score=")
		b.WriteString(strconv.FormatFloat(c.Score, 'f', 3, 64))
		b.WriteString("; title=")
		b.WriteString(c.Title)
		b.WriteString("; source=")
		b.WriteString(c.SourceURL)
		b.WriteString("; summary=")
		b.WriteString(c.Summary)
		b.WriteString("\n")
	}
	return b.String()
}

// parseTriage tolerates surrounding prose by extracting the outermost JSON
// object before unmarshaling (§4.11 step 3's "malformed JSON" fallback
// path).
func parseTriage(content string) (triageResponse, bool) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start == -1 || end == -1 || end < start {
		return triageResponse{}, false
	}
	var resp triageResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &resp); err != nil {
		return triageResponse{}, false
	}
	return resp, true
}
