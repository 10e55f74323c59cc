package models

import "time"

// Deployment records one build that was published to a remote repository.
type Deployment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BuildID      string    `gorm:"size:36;not null;uniqueIndex" json:"build_id"`
	RepoName     string    `gorm:"size:255;not null;index:idx_deployment_repo_round" json:"repo_name"`
	RepoFullName string    `gorm:"size:255;not null" json:"repo_full_name"`
	Round        int       `gorm:"not null;index:idx_deployment_repo_round" json:"round"`
	Provider     string    `gorm:"size:64" json:"provider,omitempty"`
	Model        string    `gorm:"size:255" json:"model,omitempty"`
	CommitSHA    string    `gorm:"size:64" json:"commit_sha,omitempty"`
	PagesURL     string    `gorm:"size:512" json:"pages_url,omitempty"`
	Readme       string    `gorm:"type:text" json:"readme,omitempty"`
	Fallback     bool      `gorm:"not null;default:false" json:"fallback"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
