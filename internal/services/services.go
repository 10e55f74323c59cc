package services

import (
	"appforge/internal/repositories"

	"gorm.io/gorm"
)

// Services aggregates the services that do not depend on credentials.
// Fields use plural names (e.g., Deployments) to align with Go conventions
// seen in service/store containers.
type Services struct {
	Deployments DeploymentService
	Models      ModelCatalogService
	Git         *GitService
}

// NewServices constructs the service container using repositories backed by db.
func NewServices(db *gorm.DB) (*Services, error) {
	catalog, err := NewModelCatalogService()
	if err != nil {
		return nil, err
	}
	return &Services{
		Deployments: NewDeploymentService(repositories.NewDeploymentRepository(db)),
		Models:      catalog,
		Git:         NewGitService(),
	}, nil
}
