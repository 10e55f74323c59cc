package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"appforge/internal/config"
	"appforge/internal/llm/client"
	"appforge/internal/models"
)

// ClientService builds chat-completion clients from configuration.
type ClientService struct {
	catalog    ModelCatalogService
	httpClient *http.Client
}

func NewClientService(catalog ModelCatalogService, httpClient *http.Client) *ClientService {
	return &ClientService{catalog: catalog, httpClient: httpClient}
}

// Instantiate resolves cfg.Provider and cfg.Model against the catalog and
// returns a ready client. A missing credential is a fatal configuration error.
func (s *ClientService) Instantiate(ctx context.Context, cfg config.Config) (*client.LLMClient, models.LLMModel, error) {
	if err := cfg.ValidateLLM(); err != nil {
		return nil, models.LLMModel{}, err
	}

	providerID := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if providerID == "" {
		providerID = config.DefaultProvider
	}
	model := models.LLMModel{ProviderID: providerID, APIName: cfg.Model, DisplayName: cfg.Model}
	if s.catalog != nil {
		model = s.catalog.Resolve(providerID, cfg.Model)
		providerID = model.ProviderID
	}
	if strings.TrimSpace(model.APIName) == "" {
		return nil, model, fmt.Errorf("model is required")
	}

	var (
		llmClient *client.LLMClient
		createErr error
	)
	switch providerID {
	case client.ProviderOpenAI:
		llmClient, createErr = client.NewOpenAIClient(ctx, cfg.LLMToken, client.OpenAIModelOptions{
			Model:      model.APIName,
			BaseURL:    cfg.LLMBaseURL,
			Timeout:    cfg.LLMTimeout,
			HTTPClient: s.httpClient,
		})
	case client.ProviderAnthropic:
		llmClient, createErr = client.NewClaudeClient(ctx, cfg.LLMToken, client.ClaudeModelOptions{
			Model:   model.APIName,
			BaseURL: customBaseURL(cfg.LLMBaseURL),
			Timeout: cfg.LLMTimeout,
		})
	case client.ProviderGemini:
		llmClient, createErr = client.NewGeminiClient(ctx, cfg.LLMToken, client.GeminiModelOptions{
			Model:   model.APIName,
			Timeout: cfg.LLMTimeout,
		})
	default:
		return nil, model, fmt.Errorf("unsupported provider: %s", providerID)
	}

	if createErr != nil {
		return nil, model, fmt.Errorf("failed to create %s client: %w", providerID, createErr)
	}
	return llmClient, model, nil
}

// customBaseURL drops the default OpenAI-compatible proxy, which only makes
// sense for the openai provider.
func customBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == config.DefaultLLMBaseURL {
		return ""
	}
	return base
}
