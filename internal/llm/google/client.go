// Package google adapts the Gemini API (via google.golang.org/genai) to the
// llm.Provider port.
package google

import (
	"context"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"university-query-engine/internal/config"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/logging"
)

// Client implements llm.Provider over the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// New builds a Client. Construction failures are deferred to the first
// call: a misconfigured API key shouldn't block process startup when
// Google isn't the active provider.
func New(cfg config.GoogleConfig) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}

	httpOpts := genai.HTTPOptions{}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPOptions: httpOpts,
	})
	if err != nil {
		logging.For("llm.google").Error().Err(err).Msg("init_failed")
	}
	return &Client{client: client, model: model}
}

func (c *Client) Name() string { return "google" }

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) == "" {
		return c.model
	}
	return model
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, error) {
	effectiveModel := c.pickModel(model)
	contents, sysInstr := toContents(msgs)
	cfg := buildContentConfig(sysInstr, tools)

	log := logging.For("llm.google")
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, effectiveModel, contents, cfg)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", time.Since(start)).Msg("chat_error")
		return llm.Message{}, err
	}
	log.Debug().Str("model", effectiveModel).Dur("duration", time.Since(start)).Msg("chat_ok")
	return messageFromResponse(resp), nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	effectiveModel := c.pickModel(model)
	contents, sysInstr := toContents(msgs)
	cfg := buildContentConfig(sysInstr, tools)

	stream := c.client.Models.GenerateContentStream(ctx, effectiveModel, contents, cfg)
	for resp, err := range stream {
		if err != nil {
			return err
		}
		msg := messageFromResponse(resp)
		if msg.Content != "" {
			h.OnDelta(msg.Content)
		}
		for _, tc := range msg.ToolCalls {
			h.OnToolCall(tc)
		}
	}
	return nil
}
