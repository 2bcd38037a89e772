// Package anthropic adapts the Anthropic Messages API to the llm.Provider port.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"university-query-engine/internal/config"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/logging"
)

const defaultMaxTokens int64 = 1024

// Client implements llm.Provider over the Anthropic Messages API.
type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// New builds a Client from configuration.
func New(cfg config.AnthropicConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}

	return &Client{sdk: anthropic.NewClient(opts...), model: model, maxTokens: defaultMaxTokens}
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) == "" {
		return c.model
	}
	return model
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, error) {
	sys, converted := adaptMessages(msgs)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.pickModel(model)),
		Messages:  converted,
		System:    sys,
		Tools:     adaptTools(tools),
		MaxTokens: c.maxTokens,
	}

	log := logging.For("llm.anthropic")
	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", time.Since(start)).Msg("chat_error")
		return llm.Message{}, err
	}
	log.Debug().Str("model", string(params.Model)).Dur("duration", time.Since(start)).
		Int("input_tokens", int(resp.Usage.InputTokens)).Int("output_tokens", int(resp.Usage.OutputTokens)).
		Msg("chat_ok")
	return messageFromResponse(resp), nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	sys, converted := adaptMessages(msgs)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.pickModel(model)),
		Messages:  converted,
		System:    sys,
		Tools:     adaptTools(tools),
		MaxTokens: c.maxTokens,
	}

	stream := c.sdk.Messages.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	toolBuffers := map[int64]*toolBuffer{}
	for stream.Next() {
		event := stream.Current()
		switch delta := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta.Delta.Text != "" {
				h.OnDelta(delta.Delta.Text)
			}
			if delta.Delta.PartialJSON != "" {
				if buf, ok := toolBuffers[delta.Index]; ok {
					buf.args.WriteString(delta.Delta.PartialJSON)
				}
			}
		case anthropic.ContentBlockStartEvent:
			if tu, ok := delta.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				toolBuffers[delta.Index] = &toolBuffer{id: tu.ID, name: tu.Name}
			}
		case anthropic.ContentBlockStopEvent:
			if buf, ok := toolBuffers[delta.Index]; ok {
				h.OnToolCall(llm.ToolCall{ID: buf.id, Name: buf.name, Args: json.RawMessage(buf.args.String())})
				delete(toolBuffers, delta.Index)
			}
		}
	}
	return stream.Err()
}
