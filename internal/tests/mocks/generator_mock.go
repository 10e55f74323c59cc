package mocks

import (
	"context"

	"appforge/internal/models"
)

type GeneratorMock struct {
	GenerateFunc func(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
	Requests     []models.GenerationRequest
}

func (m *GeneratorMock) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	m.Requests = append(m.Requests, req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &models.GenerationResult{
		Files: map[string]string{
			models.IndexFile:  "<!DOCTYPE html><html><body>" + req.Brief + "</body></html>",
			models.ReadmeFile: "# " + req.Brief,
		},
	}, nil
}
