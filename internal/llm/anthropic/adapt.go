package anthropic

import (
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"university-query-engine/internal/llm"
)

type toolBuffer struct {
	id   string
	name string
	args strings.Builder
}

// adaptMessages splits the portable message list into Anthropic's separate
// system-prompt field and turn list, folding tool results into the
// following user turn the way the Messages API expects.
func adaptMessages(msgs []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var sys []anthropic.TextBlockParam
	var out []anthropic.MessageParam

	for _, m := range msgs {
		switch m.Role {
		case "system":
			sys = append(sys, anthropic.TextBlockParam{Text: m.Content})
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(tc.Args), tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case "tool":
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolID, m.Content, false)))
		}
	}
	return sys, out
}

func adaptTools(tools []llm.ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
			Properties: t.Parameters["properties"],
		}, t.Name))
	}
	return out
}

func messageFromResponse(resp *anthropic.Message) llm.Message {
	out := llm.Message{Role: "assistant"}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += b.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: b.ID, Name: b.Name, Args: b.Input})
		}
	}
	return out
}
