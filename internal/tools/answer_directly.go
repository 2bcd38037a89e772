package tools

import (
	"context"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/llm"
)

// AnswerDirectly uses pre_answer when supplied, otherwise generates a reply
// via the LLM without any retrieval step.
type AnswerDirectly struct {
	Provider llm.Provider
	Model    string
}

func (h *AnswerDirectly) ToolType() domain.ToolType { return domain.ToolAnswerDirectly }

func (h *AnswerDirectly) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	if pre := argString(args, "pre_answer"); pre != "" {
		return map[string]any{
			"answer":    pre,
			"reasoning": argString(args, "reason"),
		}, nil
	}

	query := argString(args, "query")
	msgs := []llm.Message{
		{Role: "system", Content: "Answer the student's question directly from general knowledge. Be concise."},
		{Role: "user", Content: query},
	}
	resp, err := h.Provider.Chat(ctx, msgs, nil, h.Model)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"answer":    resp.Content,
		"reasoning": argString(args, "reason"),
	}, nil
}
