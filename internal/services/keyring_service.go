package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"appforge/internal/config"

	"github.com/99designs/keyring"
)

const serviceName = "appforge"

var knownCredentials = map[string]string{
	config.KeyGitHubToken: "GitHub token used to create repositories and enable Pages",
	config.KeyLLMToken:    "API key for the chat-completion endpoint",
}

// KeyringService stores credentials in the OS keyring. It satisfies
// config.CredentialLookup.
type KeyringService struct {
	ring keyring.Keyring
}

func NewKeyringService(ring keyring.Keyring) *KeyringService {
	return &KeyringService{ring: ring}
}

// defaultFileKeyringDir holds the encrypted fallback keyring on hosts without
// a keychain, secret service or similar backend.
const defaultFileKeyringDir = "~/.appforge/keyring"

// OpenKeyringService opens the platform keyring for appforge.
func OpenKeyringService() (*KeyringService, error) {
	ring, err := keyring.Open(keyringConfig(defaultFileKeyringDir, os.Getenv))
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringService(ring), nil
}

func keyringConfig(fileDir string, getenv func(string) string) keyring.Config {
	cfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  serviceName,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
	}
	if pw := getenv(config.EnvKeyringPassword); pw != "" {
		cfg.FilePasswordFunc = keyring.FixedStringPrompt(pw)
	}
	return cfg
}

func (s *KeyringService) StoreApiKey(name string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	if name == "" {
		return errors.New("credential name is required")
	}
	return s.ring.Set(keyring.Item{
		Key:         name,
		Data:        apiKey,
		Label:       serviceName + " " + name,
		Description: knownCredentials[name],
	})
}

func (s *KeyringService) GetApiKey(name string) (string, error) {
	if name == "" {
		return "", errors.New("credential name is required")
	}
	item, err := s.ring.Get(name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(item.Data)), nil
}

func (s *KeyringService) DeleteApiKey(name string) error {
	if name == "" {
		return errors.New("credential name is required")
	}
	return s.ring.Remove(name)
}

func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var results []map[string]string
	for _, key := range keys {
		results = append(results, map[string]string{
			"name":        key,
			"label":       serviceName + " " + key,
			"description": knownCredentials[key],
		})
	}
	return results, nil
}

func (s *KeyringService) Lookup(name string) (string, error) {
	return s.GetApiKey(name)
}
