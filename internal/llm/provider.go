// Package llm is the LLM Provider port: a portable chat abstraction that
// the orchestrator and personalization engine drive without caring whether
// the answer came from Anthropic, OpenAI, or Google.
package llm

import (
	"context"
	"encoding/json"
)

// ToolCall is a function call the model asked the caller to execute.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// Message is one turn of a chat conversation.
type Message struct {
	Role      string // "system" | "user" | "assistant" | "tool"
	Content   string
	ToolID    string // set on tool-role messages, echoes the ToolCall.ID it answers
	ToolCalls []ToolCall
}

// ToolSchema describes a callable tool in JSON-Schema form, the shape every
// provider adapter below converts into its own function-calling wire format.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// StreamHandler receives incremental output during ChatStream.
type StreamHandler interface {
	OnDelta(content string)
	OnToolCall(tc ToolCall)
}

// Provider is the uniform interface every model backend implements.
type Provider interface {
	Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Message, error)
	ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) error
	Name() string
}

// VisionDescriber is implemented by providers that can answer over an
// inline image attachment (currently only the OpenAI adapter). The
// analyze_image tool handler type-asserts a Provider against this
// interface and fails gracefully when the active provider lacks it.
type VisionDescriber interface {
	ChatWithImageAttachment(ctx context.Context, msgs []Message, mimeType, base64Data string, tools []ToolSchema, model string) (Message, error)
}
