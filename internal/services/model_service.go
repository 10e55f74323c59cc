package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"appforge/internal/assets"
	"appforge/internal/models"
)

// ModelCatalogService exposes the embedded catalog of known chat models.
type ModelCatalogService interface {
	ListModelGroups() []models.LLMModelGroup
	GetModel(modelKey string) (*models.LLMModel, error)
	// Resolve finds a model by key, or by API name within provider. Unknown
	// API names are still returned so any endpoint-supported model can be used.
	Resolve(provider, name string) models.LLMModel
}

type modelCatalogService struct {
	mu            sync.RWMutex
	providerOrder []string
	providerNames map[string]string
	models        map[string]*models.LLMModel
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Models      []rawModel `json:"models"`
}

type rawModel struct {
	DisplayName string `json:"displayName"`
	APIName     string `json:"apiName"`
}

func NewModelCatalogService() (ModelCatalogService, error) {
	return newModelCatalog(assets.ModelsData)
}

func newModelCatalog(data []byte) (*modelCatalogService, error) {
	var parsed rawModelFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse models asset: %w", err)
	}

	s := &modelCatalogService{
		providerNames: make(map[string]string),
		models:        make(map[string]*models.LLMModel),
	}
	for _, provider := range parsed.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		providerName := strings.TrimSpace(provider.DisplayName)
		s.providerNames[providerID] = providerName
		s.providerOrder = append(s.providerOrder, providerID)
		for _, mdl := range provider.Models {
			apiName := strings.TrimSpace(mdl.APIName)
			if apiName == "" {
				continue
			}
			key := computeModelKey(providerID, apiName)
			s.models[key] = &models.LLMModel{
				Key:          key,
				DisplayName:  strings.TrimSpace(mdl.DisplayName),
				APIName:      apiName,
				ProviderID:   providerID,
				ProviderName: providerName,
			}
		}
	}
	return s, nil
}

func (s *modelCatalogService) ListModelGroups() []models.LLMModelGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.LLMModelGroup, 0, len(s.providerOrder))
	for _, providerID := range s.providerOrder {
		group := models.LLMModelGroup{
			ProviderID:   providerID,
			ProviderName: s.providerName(providerID),
		}
		var modelsForProvider []models.LLMModel
		for _, mdl := range s.models {
			if mdl.ProviderID != providerID {
				continue
			}
			modelsForProvider = append(modelsForProvider, *mdl)
		}
		sort.SliceStable(modelsForProvider, func(i, j int) bool {
			return strings.ToLower(modelsForProvider[i].DisplayName) < strings.ToLower(modelsForProvider[j].DisplayName)
		})
		group.Models = modelsForProvider
		groups = append(groups, group)
	}
	return groups
}

func (s *modelCatalogService) GetModel(modelKey string) (*models.LLMModel, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	mdl, ok := s.models[modelKey]
	if !ok {
		return nil, fmt.Errorf("model %s not found", modelKey)
	}
	out := *mdl
	return &out, nil
}

func (s *modelCatalogService) Resolve(provider, name string) models.LLMModel {
	provider = strings.TrimSpace(provider)
	name = strings.TrimSpace(name)
	if mdl, err := s.GetModel(name); err == nil {
		return *mdl
	}
	if mdl, err := s.GetModel(computeModelKey(provider, name)); err == nil {
		return *mdl
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.LLMModel{
		Key:          computeModelKey(provider, name),
		DisplayName:  name,
		APIName:      name,
		ProviderID:   provider,
		ProviderName: s.providerName(provider),
	}
}

func (s *modelCatalogService) providerName(providerID string) string {
	if name, ok := s.providerNames[providerID]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	return providerID
}

func computeModelKey(providerID, apiName string) string {
	return strings.TrimSpace(providerID) + "|" + strings.TrimSpace(apiName)
}
