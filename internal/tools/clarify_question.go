package tools

import (
	"context"
	"fmt"

	"university-query-engine/internal/domain"
)

// ClarifyQuestion emits the clarification prompt verbatim as the assistant
// reply, never fabricating content, per §4.9 S6.
type ClarifyQuestion struct{}

func (h *ClarifyQuestion) ToolType() domain.ToolType { return domain.ToolClarify }

func (h *ClarifyQuestion) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	if prompt := argString(args, "clarification_prompt"); prompt != "" {
		return map[string]any{
			"clarification_question": prompt,
			"clarification_type":     "general",
			"options":                argStringSlice(args, "suggestions"),
		}, nil
	}

	clarType := argString(args, "clarification_type")
	if clarType == "" {
		clarType = "general"
	}

	question := defaultClarificationQuestion(clarType, args)
	return map[string]any{
		"clarification_question": question,
		"clarification_type":     clarType,
		"options":                argStringSlice(args, "options"),
	}, nil
}

func defaultClarificationQuestion(clarType string, args map[string]any) string {
	switch clarType {
	case "ambiguous_topic":
		topic := argString(args, "topic")
		return fmt.Sprintf("Bạn muốn hỏi về khía cạnh nào của \"%s\"?", topic)
	case "missing_context":
		missing := argString(args, "missing_info")
		return fmt.Sprintf("Bạn có thể cho biết thêm %s không?", missing)
	case "multiple_meanings":
		examples := argStringSlice(args, "examples")
		if len(examples) > 0 {
			return fmt.Sprintf("Bạn đang hỏi về %s, hay ý khác?", examples[0])
		}
		return "Câu hỏi của bạn có thể hiểu theo nhiều cách, bạn có thể nói rõ hơn không?"
	case "form_type":
		return "Bạn cần mẫu đơn nào cụ thể?"
	case "time_period":
		return "Bạn đang hỏi về học kỳ hoặc năm học nào?"
	default:
		return "Bạn có thể nói rõ hơn câu hỏi của mình được không?"
	}
}
