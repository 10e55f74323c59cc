package mocks

import (
	"appforge/internal/models"
)

type DeploymentRepositoryMock struct {
	CreateFunc       func(deployment *models.Deployment) error
	GetByBuildIDFunc func(buildID string) (*models.Deployment, error)
	LatestByRepoFunc func(repoName string) (*models.Deployment, error)
	ListByRepoFunc   func(repoName string) ([]models.Deployment, error)
	ListFunc         func(limit int) ([]models.Deployment, error)
	DeleteByRepoFunc func(repoName string) error
}

func (m *DeploymentRepositoryMock) Create(deployment *models.Deployment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(deployment)
	}
	return nil
}

func (m *DeploymentRepositoryMock) GetByBuildID(buildID string) (*models.Deployment, error) {
	if m.GetByBuildIDFunc != nil {
		return m.GetByBuildIDFunc(buildID)
	}
	return nil, nil
}

func (m *DeploymentRepositoryMock) LatestByRepo(repoName string) (*models.Deployment, error) {
	if m.LatestByRepoFunc != nil {
		return m.LatestByRepoFunc(repoName)
	}
	return nil, nil
}

func (m *DeploymentRepositoryMock) ListByRepo(repoName string) ([]models.Deployment, error) {
	if m.ListByRepoFunc != nil {
		return m.ListByRepoFunc(repoName)
	}
	return nil, nil
}

func (m *DeploymentRepositoryMock) List(limit int) ([]models.Deployment, error) {
	if m.ListFunc != nil {
		return m.ListFunc(limit)
	}
	return nil, nil
}

func (m *DeploymentRepositoryMock) DeleteByRepo(repoName string) error {
	if m.DeleteByRepoFunc != nil {
		return m.DeleteByRepoFunc(repoName)
	}
	return nil
}
