package services

import (
	"fmt"
	"strings"

	"appforge/internal/models"
	"appforge/internal/repositories"
)

// DeploymentService keeps the history of published builds.
type DeploymentService interface {
	Record(deployment *models.Deployment) (*models.Deployment, error)
	GetByBuildID(buildID string) (*models.Deployment, error)
	Latest(repoName string) (*models.Deployment, error)
	History(repoName string, limit int) ([]models.Deployment, error)
	DeleteAll(repoName string) error
}

type deploymentService struct {
	repo repositories.DeploymentRepository
}

func NewDeploymentService(repo repositories.DeploymentRepository) DeploymentService {
	return &deploymentService{repo: repo}
}

func (s *deploymentService) Record(deployment *models.Deployment) (*models.Deployment, error) {
	if deployment == nil {
		return nil, fmt.Errorf("deployment is required")
	}
	deployment.RepoName = strings.TrimSpace(deployment.RepoName)
	deployment.Provider = strings.TrimSpace(deployment.Provider)
	deployment.Model = strings.TrimSpace(deployment.Model)
	if deployment.RepoName == "" {
		return nil, fmt.Errorf("repo name is required")
	}
	if deployment.Round != 2 {
		deployment.Round = 1
	}

	if err := s.repo.Create(deployment); err != nil {
		return nil, err
	}
	return deployment, nil
}

func (s *deploymentService) GetByBuildID(buildID string) (*models.Deployment, error) {
	buildID = strings.TrimSpace(buildID)
	if buildID == "" {
		return nil, fmt.Errorf("build ID is required")
	}
	return s.repo.GetByBuildID(buildID)
}

func (s *deploymentService) Latest(repoName string) (*models.Deployment, error) {
	repoName = strings.TrimSpace(repoName)
	if repoName == "" {
		return nil, fmt.Errorf("repo name is required")
	}
	return s.repo.LatestByRepo(repoName)
}

// History lists deployments newest first. An empty repoName lists every repo.
func (s *deploymentService) History(repoName string, limit int) ([]models.Deployment, error) {
	repoName = strings.TrimSpace(repoName)
	if repoName == "" {
		return s.repo.List(limit)
	}
	list, err := s.repo.ListByRepo(repoName)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *deploymentService) DeleteAll(repoName string) error {
	repoName = strings.TrimSpace(repoName)
	if repoName == "" {
		return fmt.Errorf("repo name is required")
	}
	return s.repo.DeleteByRepo(repoName)
}
