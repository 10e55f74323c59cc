package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	defaultTimeout         = 120 * time.Second
	defaultClaudeMaxTokens = 8192
)

// LLMClient performs single, blocking chat completions against one provider.
type LLMClient struct {
	ChatModel model.BaseChatModel
	Provider  string
	Model     string
	Timeout   time.Duration
}

type OpenAIModelOptions struct {
	Model string
	// BaseURL points at any OpenAI-compatible endpoint, e.g. an OpenRouter proxy.
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type ClaudeModelOptions struct {
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

type GeminiModelOptions struct {
	Model   string
	Timeout time.Duration
}

func NewOpenAIClient(ctx context.Context, key string, opts OpenAIModelOptions) (*LLMClient, error) {
	timeout := orDefault(opts.Timeout)
	cfg := &openai.ChatModelConfig{
		APIKey:     key,
		Model:      opts.Model,
		BaseURL:    strings.TrimRight(opts.BaseURL, "/"),
		Timeout:    timeout,
		HTTPClient: opts.HTTPClient,
	}
	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create chat model", "provider", ProviderOpenAI, "error", err)
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &LLMClient{ChatModel: chatModel, Provider: ProviderOpenAI, Model: opts.Model, Timeout: timeout}, nil
}

func NewClaudeClient(ctx context.Context, key string, opts ClaudeModelOptions) (*LLMClient, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	cfg := &claude.Config{
		APIKey:    key,
		Model:     opts.Model,
		MaxTokens: maxTokens,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = &base
	}
	chatModel, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create chat model", "provider", ProviderAnthropic, "error", err)
		return nil, fmt.Errorf("create claude chat model: %w", err)
	}
	return &LLMClient{ChatModel: chatModel, Provider: ProviderAnthropic, Model: opts.Model, Timeout: orDefault(opts.Timeout)}, nil
}

func NewGeminiClient(ctx context.Context, key string, opts GeminiModelOptions) (*LLMClient, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create genai client", "provider", ProviderGemini, "error", err)
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: genaiClient,
		Model:  opts.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create chat model", "provider", ProviderGemini, "error", err)
		return nil, fmt.Errorf("create gemini chat model: %w", err)
	}
	return &LLMClient{ChatModel: chatModel, Provider: ProviderGemini, Model: opts.Model, Timeout: orDefault(opts.Timeout)}, nil
}

// Complete sends one system + user message pair and returns the assistant
// content. There is no retry and no streaming.
func (c *LLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c == nil || c.ChatModel == nil {
		return "", errors.New("chat model is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(c.Timeout))
	defer cancel()

	msg, err := c.ChatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", c.Provider, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%s completion: empty response", c.Provider)
	}
	return msg.Content, nil
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}
