package google

import (
	"encoding/json"
	"strings"

	genai "google.golang.org/genai"

	"university-query-engine/internal/llm"
)

func buildContentConfig(sysInstr *genai.Content, tools []llm.ToolSchema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: sysInstr}
	if len(tools) == 0 {
		return cfg
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaFromMap(t.Parameters),
		})
	}
	cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	return cfg
}

func schemaFromMap(params map[string]any) *genai.Schema {
	if len(params) == 0 {
		return &genai.Schema{Type: genai.TypeObject}
	}
	b, _ := json.Marshal(params)
	var s genai.Schema
	_ = json.Unmarshal(b, &s)
	return &s
}

// toContents converts the portable message list into Gemini's content/turn
// shape, splitting off any system message as the dedicated system
// instruction field.
func toContents(msgs []llm.Message) ([]*genai.Content, *genai.Content) {
	var sysInstr *genai.Content
	toolNamesByID := map[string]string{}
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			sysInstr = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "user":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "assistant":
			parts := []*genai.Part{}
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				toolNamesByID[tc.ID] = tc.Name
				var args map[string]any
				_ = json.Unmarshal(tc.Args, &args)
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, args))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case "tool":
			name := toolNamesByID[m.ToolID]
			if name == "" {
				name = "tool_response"
			}
			respMap := map[string]any{"output": m.Content}
			if trimmed := strings.TrimSpace(m.Content); trimmed != "" {
				var decoded map[string]any
				if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
					respMap = decoded
				}
			}
			part := genai.NewPartFromFunctionResponse(name, respMap)
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return contents, sysInstr
}

func messageFromResponse(resp *genai.GenerateContentResponse) llm.Message {
	out := llm.Message{Role: "assistant"}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				Name: part.FunctionCall.Name, Args: args,
			})
		}
	}
	return out
}
