package llm

import "context"

// Fake is an in-memory Provider for tests: it returns canned responses in
// order and never touches the network.
type Fake struct {
	Responses []Message
	Calls     []FakeCall
	next      int
}

// FakeCall records one Chat/ChatStream invocation for assertions.
type FakeCall struct {
	Messages []Message
	Tools    []ToolSchema
	Model    string
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Message, error) {
	f.Calls = append(f.Calls, FakeCall{Messages: msgs, Tools: tools, Model: model})
	if f.next >= len(f.Responses) {
		return Message{Role: "assistant", Content: ""}, nil
	}
	resp := f.Responses[f.next]
	f.next++
	return resp, nil
}

func (f *Fake) ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) error {
	resp, err := f.Chat(ctx, msgs, tools, model)
	if err != nil {
		return err
	}
	if resp.Content != "" {
		h.OnDelta(resp.Content)
	}
	for _, tc := range resp.ToolCalls {
		h.OnToolCall(tc)
	}
	return nil
}
