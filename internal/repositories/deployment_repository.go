package repositories

import (
	"errors"
	"fmt"

	"appforge/internal/models"

	"gorm.io/gorm"
)

type DeploymentRepository interface {
	Create(deployment *models.Deployment) error
	GetByBuildID(buildID string) (*models.Deployment, error)
	LatestByRepo(repoName string) (*models.Deployment, error)
	ListByRepo(repoName string) ([]models.Deployment, error)
	List(limit int) ([]models.Deployment, error)
	DeleteByRepo(repoName string) error
}

type deploymentRepository struct {
	db *gorm.DB
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{db: db}
}

func (r *deploymentRepository) Create(deployment *models.Deployment) error {
	if deployment == nil {
		return fmt.Errorf("deployment is required")
	}
	if deployment.BuildID == "" || deployment.RepoName == "" {
		return fmt.Errorf("build id and repo name are required")
	}
	return r.db.Create(deployment).Error
}

// GetByBuildID returns nil, nil when no deployment matches.
func (r *deploymentRepository) GetByBuildID(buildID string) (*models.Deployment, error) {
	var d models.Deployment
	res := r.db.Where("build_id = ?", buildID).Take(&d)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &d, nil
}

// LatestByRepo returns the most recent deployment of repoName, or nil, nil.
func (r *deploymentRepository) LatestByRepo(repoName string) (*models.Deployment, error) {
	var d models.Deployment
	res := r.db.Where("repo_name = ?", repoName).Order("id desc").Take(&d)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &d, nil
}

func (r *deploymentRepository) ListByRepo(repoName string) ([]models.Deployment, error) {
	var deployments []models.Deployment
	res := r.db.Where("repo_name = ?", repoName).Order("id desc").Find(&deployments)
	if res.Error != nil {
		return nil, res.Error
	}
	return deployments, nil
}

func (r *deploymentRepository) List(limit int) ([]models.Deployment, error) {
	var deployments []models.Deployment
	q := r.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if res := q.Find(&deployments); res.Error != nil {
		return nil, res.Error
	}
	return deployments, nil
}

func (r *deploymentRepository) DeleteByRepo(repoName string) error {
	return r.db.Where("repo_name = ?", repoName).Delete(&models.Deployment{}).Error
}
