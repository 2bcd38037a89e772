// Package openai adapts the OpenAI chat-completions API to the llm.Provider port.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"university-query-engine/internal/config"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/logging"
)

// Client implements llm.Provider over OpenAI's chat completions endpoint.
// It also serves self-hosted, OpenAI-compatible backends (vLLM, mlx_lm) via
// BaseURL, the way the engine's campus deployment runs an on-prem model for
// PII-sensitive queries.
type Client struct {
	sdk   sdk.Client
	model string
}

func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithHTTPClient(httpClient)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) effectiveModel(model string) string {
	if strings.TrimSpace(model) == "" {
		return c.model
	}
	return model
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, error) {
	log := logging.For("llm.openai")
	params := sdk.ChatCompletionNewParams{Model: sdk.ChatModel(c.effectiveModel(model))}
	params.Messages = adaptMessages(msgs)
	if len(tools) > 0 {
		params.Tools = adaptSchemas(tools)
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", time.Since(start)).Msg("chat_error")
		return llm.Message{}, err
	}
	log.Debug().Str("model", string(params.Model)).Dur("duration", time.Since(start)).
		Int("prompt_tokens", int(comp.Usage.PromptTokens)).Int("completion_tokens", int(comp.Usage.CompletionTokens)).
		Msg("chat_ok")

	if len(comp.Choices) == 0 {
		return llm.Message{}, nil
	}
	msg := comp.Choices[0].Message
	out := llm.Message{Role: "assistant", Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		if fn, ok := tc.AsAny().(sdk.ChatCompletionMessageFunctionToolCall); ok {
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID: fn.ID, Name: fn.Function.Name, Args: json.RawMessage(fn.Function.Arguments),
			})
		}
	}
	return out, nil
}

// ChatWithImageAttachment sends msgs with an inline image appended to the
// last user turn, the way analyze_image asks the vision model to describe
// an uploaded photo or scanned document.
func (c *Client) ChatWithImageAttachment(ctx context.Context, msgs []llm.Message, mimeType, base64Data string, tools []llm.ToolSchema, model string) (llm.Message, error) {
	log := logging.For("llm.openai")
	params := sdk.ChatCompletionNewParams{Model: sdk.ChatModel(c.effectiveModel(model))}

	adapted := adaptMessages(msgs)
	dataURL := "data:" + mimeType + ";base64," + base64Data
	for i := len(adapted) - 1; i >= 0; i-- {
		if adapted[i].OfUser == nil {
			continue
		}
		var parts []sdk.ChatCompletionContentPartUnionParam
		if text := adapted[i].OfUser.Content.OfString.Value; text != "" {
			parts = append(parts, sdk.ChatCompletionContentPartUnionParam{
				OfText: &sdk.ChatCompletionContentPartTextParam{Text: text},
			})
		}
		parts = append(parts, sdk.ChatCompletionContentPartUnionParam{
			OfImageURL: &sdk.ChatCompletionContentPartImageParam{
				ImageURL: sdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL},
			},
		})
		adapted[i] = sdk.ChatCompletionMessageParamUnion{OfUser: &sdk.ChatCompletionUserMessageParam{
			Content: sdk.ChatCompletionUserMessageParamContentUnion{OfArrayOfContentParts: parts},
		}}
		break
	}
	params.Messages = adapted
	if len(tools) > 0 {
		params.Tools = adaptSchemas(tools)
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", time.Since(start)).Msg("chat_with_image_error")
		return llm.Message{}, err
	}
	if len(comp.Choices) == 0 {
		return llm.Message{}, nil
	}
	return llm.Message{Role: "assistant", Content: comp.Choices[0].Message.Content}, nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	params := sdk.ChatCompletionNewParams{Model: sdk.ChatModel(c.effectiveModel(model))}
	params.Messages = adaptMessages(msgs)
	if len(tools) > 0 {
		params.Tools = adaptSchemas(tools)
	}

	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	toolArgs := map[int64]*toolAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			h.OnDelta(delta.Content)
		}
		for _, tc := range delta.ToolCalls {
			acc, ok := toolArgs[tc.Index]
			if !ok {
				acc = &toolAccumulator{id: tc.ID, name: tc.Function.Name}
				toolArgs[tc.Index] = acc
			}
			acc.args.WriteString(tc.Function.Arguments)
		}
	}
	for _, acc := range toolArgs {
		h.OnToolCall(llm.ToolCall{ID: acc.id, Name: acc.name, Args: json.RawMessage(acc.args.String())})
	}
	return stream.Err()
}
