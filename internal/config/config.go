package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultGitHubAPI     = "https://api.github.com"
	DefaultLLMBaseURL    = "https://aipipe.org/openrouter/v1"
	DefaultModel         = "openai/gpt-4.1-nano"
	DefaultProvider      = "openai"
	DefaultBranch        = "main"
	DefaultAttachmentDir = "/tmp/llm_attachments"
	DefaultPagesTimeout  = 120 * time.Second
	DefaultPollInterval  = 3 * time.Second
	DefaultLLMTimeout    = 120 * time.Second
)

// Environment variable names understood by appforge.
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvOwner       = "GITHUB_USERNAME"
	EnvGitHubAPI   = "GITHUB_API_URL"
	EnvLLMToken    = "OPENAI_API_KEY"
	EnvLLMBaseURL  = "LLM_BASE_URL"
	EnvModel       = "OPENROUTER_MODEL"
	EnvProvider    = "LLM_PROVIDER"
	// Unlocks the encrypted file keyring used when no OS keyring is available.
	EnvKeyringPassword = "APPFORGE_KEYRING_PASSWORD"
)

// Keyring entries consulted when a credential is absent from flags and env.
const (
	KeyGitHubToken = "github-token"
	KeyLLMToken    = "llm-token"
)

var (
	ErrMissingLLMToken    = errors.New("OPENAI_API_KEY is not set")
	ErrMissingGitHubToken = errors.New("GITHUB_TOKEN is not set")
	ErrMissingOwner       = errors.New("GITHUB_USERNAME is not set")
)

// Config is read once at startup and passed explicitly to every component.
type Config struct {
	// Source hosting
	Token         string
	Owner         string
	BaseURL       string
	HostingBranch string
	PagesTimeout  time.Duration
	PollInterval  time.Duration

	// Completion endpoint
	Model      string
	Provider   string
	LLMToken   string
	LLMBaseURL string
	LLMTimeout time.Duration

	AttachmentDir string
	DatabasePath  string
	LogLevel      string
	LogFormat     string
}

// CredentialLookup resolves a named secret, e.g. from the OS keyring.
type CredentialLookup interface {
	Lookup(name string) (string, error)
}

func Default() Config {
	return Config{
		BaseURL:       DefaultGitHubAPI,
		HostingBranch: DefaultBranch,
		PagesTimeout:  DefaultPagesTimeout,
		PollInterval:  DefaultPollInterval,
		Model:         DefaultModel,
		Provider:      DefaultProvider,
		LLMBaseURL:    DefaultLLMBaseURL,
		LLMTimeout:    DefaultLLMTimeout,
		AttachmentDir: DefaultAttachmentDir,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// FromEnv overlays non-empty environment values on the defaults.
func FromEnv(getenv func(string) string) Config {
	cfg := Default()
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Token, EnvGitHubToken)
	set(&cfg.Owner, EnvOwner)
	set(&cfg.BaseURL, EnvGitHubAPI)
	set(&cfg.LLMToken, EnvLLMToken)
	set(&cfg.LLMBaseURL, EnvLLMBaseURL)
	set(&cfg.Model, EnvModel)
	set(&cfg.Provider, EnvProvider)
	return cfg
}

// ResolveCredentials fills missing tokens from the given lookup. Lookup errors
// leave the field empty; validation reports the missing value later.
func (c Config) ResolveCredentials(lookup CredentialLookup) Config {
	if lookup == nil {
		return c
	}
	if c.Token == "" {
		if v, err := lookup.Lookup(KeyGitHubToken); err == nil {
			c.Token = strings.TrimSpace(v)
		}
	}
	if c.LLMToken == "" {
		if v, err := lookup.Lookup(KeyLLMToken); err == nil {
			c.LLMToken = strings.TrimSpace(v)
		}
	}
	return c
}

// ValidateLLM reports the fatal configuration error for a missing completion credential.
func (c Config) ValidateLLM() error {
	if strings.TrimSpace(c.LLMToken) == "" {
		return ErrMissingLLMToken
	}
	return nil
}

func (c Config) ValidatePublishing() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingGitHubToken
	}
	if strings.TrimSpace(c.Owner) == "" {
		return ErrMissingOwner
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}
