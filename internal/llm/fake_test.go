package llm

import (
	"context"
	"testing"
)

func TestFakeChatReturnsCannedResponsesInOrder(t *testing.T) {
	f := &Fake{Responses: []Message{{Role: "assistant", Content: "first"}, {Role: "assistant", Content: "second"}}}
	ctx := context.Background()

	m1, _ := f.Chat(ctx, nil, nil, "")
	if m1.Content != "first" {
		t.Fatalf("expected first, got %q", m1.Content)
	}
	m2, _ := f.Chat(ctx, nil, nil, "")
	if m2.Content != "second" {
		t.Fatalf("expected second, got %q", m2.Content)
	}
	if len(f.Calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(f.Calls))
	}
}

type collectingHandler struct {
	deltas    []string
	toolCalls []ToolCall
}

func (c *collectingHandler) OnDelta(s string)     { c.deltas = append(c.deltas, s) }
func (c *collectingHandler) OnToolCall(tc ToolCall) { c.toolCalls = append(c.toolCalls, tc) }

func TestFakeChatStreamEmitsDeltaAndToolCalls(t *testing.T) {
	f := &Fake{Responses: []Message{{Role: "assistant", Content: "hi", ToolCalls: []ToolCall{{ID: "1", Name: "search_web"}}}}}
	h := &collectingHandler{}
	if err := f.ChatStream(context.Background(), nil, nil, "", h); err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if len(h.deltas) != 1 || h.deltas[0] != "hi" {
		t.Fatalf("unexpected deltas: %v", h.deltas)
	}
	if len(h.toolCalls) != 1 || h.toolCalls[0].Name != "search_web" {
		t.Fatalf("unexpected tool calls: %v", h.toolCalls)
	}
}
