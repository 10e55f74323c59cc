package models

import "strings"

// RepoHandle identifies a remote repository. It is produced once by repository
// creation and passed explicitly to every publishing call.
type RepoHandle struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// Owner returns the owner part of FullName.
func (r RepoHandle) Owner() string {
	owner, _, found := strings.Cut(r.FullName, "/")
	if !found {
		return ""
	}
	return owner
}

// Repo returns the repository part of FullName, falling back to Name.
func (r RepoHandle) Repo() string {
	if _, repo, found := strings.Cut(r.FullName, "/"); found && repo != "" {
		return repo
	}
	return r.Name
}
