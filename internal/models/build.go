package models

// BuildRequest drives one full generate-and-publish round.
type BuildRequest struct {
	GenerationRequest

	// Task is the remote repository name.
	Task        string `json:"task"`
	Description string `json:"description,omitempty"`

	// Publish pushes the files to the remote repository. When false only the
	// local steps run.
	Publish bool `json:"publish"`

	// Workspace, when set, is a local directory mirrored as a git repository.
	Workspace string `json:"workspace,omitempty"`
}

// BuildResult is returned by a completed build.
type BuildResult struct {
	BuildID     string            `json:"build_id"`
	Round       int               `json:"round"`
	Repo        *RepoHandle       `json:"repo,omitempty"`
	Files       map[string]string `json:"files"`
	Attachments []SavedAttachment `json:"attachments"`
	CommitSHA   string            `json:"commit_sha,omitempty"`
	PagesURL    string            `json:"pages_url,omitempty"`
	Fallback    bool              `json:"fallback"`
	Warnings    []string          `json:"warnings,omitempty"`
	LocalCommit *WorkspaceCommit  `json:"local_commit,omitempty"`
}

// WorkspaceCommit describes a commit made in the local workspace mirror.
type WorkspaceCommit struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files"`
	Diff  string   `json:"diff,omitempty"`
}
