package services

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"appforge/internal/models"
	"appforge/internal/utils"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	workspaceAuthor = "appforge"
	workspaceEmail  = "appforge@localhost"
)

// GitService mirrors generated files into a local git repository so rounds
// can be diffed offline.
type GitService struct{}

func NewGitService() *GitService {
	return &GitService{}
}

// PlainInit initializes a new git repo at given path
func (g *GitService) Init(path string) (*git.Repository, error) {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// Open an existing repo
func (g *GitService) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// OpenOrInit opens the repository at path, creating the directory and an empty
// repository when none exists yet.
func (g *GitService) OpenOrInit(path string) (*git.Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("workspace path cannot be empty")
	}
	repo, err := g.Open(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open workspace at %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return g.Init(path)
}

// CommitFiles writes files into the workspace and commits them. When nothing
// changed the current HEAD is returned with an empty file list.
func (g *GitService) CommitFiles(path string, files map[string][]byte, message string) (*models.WorkspaceCommit, error) {
	repo, err := g.OpenOrInit(path)
	if err != nil {
		return nil, err
	}
	w, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("refusing to write %q outside the workspace", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		full := filepath.Join(path, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(full, files[name], 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		if _, err := w.Add(filepath.ToSlash(name)); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", name, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return nil, err
	}
	var changed []string
	for _, name := range names {
		if st, ok := status[filepath.ToSlash(name)]; ok && st.Staging != git.Unmodified {
			changed = append(changed, name)
		}
	}

	var parent string
	if head, err := repo.Head(); err == nil {
		parent = head.Hash().String()
	}
	if len(changed) == 0 && parent != "" {
		return &models.WorkspaceCommit{Hash: parent, Files: []string{}}, nil
	}

	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: workspaceAuthor, Email: workspaceEmail, When: time.Now()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	commit := &models.WorkspaceCommit{Hash: hash.String(), Files: changed}
	if parent != "" {
		diff, err := g.DiffBetweenCommits(repo, parent, commit.Hash)
		if err != nil {
			return nil, err
		}
		commit.Diff = diff
	}
	return commit, nil
}

// DiffBetweenCommits returns the patch (diff) between two commits by their hashes.
func (g *GitService) DiffBetweenCommits(repo *git.Repository, hash1, hash2 string) (string, error) {
	commit1, err := repo.CommitObject(plumbing.NewHash(hash1))
	if err != nil {
		return "", fmt.Errorf("failed to get commit1: %w", err)
	}
	commit2, err := repo.CommitObject(plumbing.NewHash(hash2))
	if err != nil {
		return "", fmt.Errorf("failed to get commit2: %w", err)
	}

	tree1, err := commit1.Tree()
	if err != nil {
		return "", fmt.Errorf("failed to get tree1: %w", err)
	}
	tree2, err := commit2.Tree()
	if err != nil {
		return "", fmt.Errorf("failed to get tree2: %w", err)
	}

	patch, err := tree1.Patch(tree2)
	if err != nil {
		return "", fmt.Errorf("failed to get patch: %w", err)
	}

	var buf bytes.Buffer
	if err := patch.Encode(&buf); err != nil {
		return "", fmt.Errorf("failed to encode patch: %w", err)
	}
	return buf.String(), nil
}

// LatestCommit returns the latest commit hash for the given repository path
func (g *GitService) LatestCommit(repoPath string) (string, error) {
	if err := g.ValidateRepository(repoPath); err != nil {
		return "", fmt.Errorf("invalid repository: %w", err)
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", repoPath, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	return ref.Hash().String(), nil
}

// ReadHeadFile returns the contents of name as committed at HEAD of the
// workspace at path. Uncommitted edits in the worktree are ignored.
func (g *GitService) ReadHeadFile(path, name string) (string, error) {
	if !utils.DirectoryExists(path) {
		return "", fmt.Errorf("workspace %s does not exist", path)
	}
	head, err := g.LatestCommit(path)
	if err != nil {
		return "", err
	}
	repo, err := g.Open(path)
	if err != nil {
		return "", err
	}
	commit, err := repo.CommitObject(plumbing.NewHash(head))
	if err != nil {
		return "", fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	f, err := commit.File(filepath.ToSlash(name))
	if err != nil {
		return "", fmt.Errorf("%s not committed in %s: %w", name, path, err)
	}
	return f.Contents()
}

// ValidateRepository checks if the given path is a valid git repository
func (g *GitService) ValidateRepository(repoPath string) error {
	if repoPath == "" {
		return fmt.Errorf("repository path cannot be empty")
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("not a valid git repository: %w", err)
	}

	// HEAD must resolve, which rules out freshly initialised repositories
	if _, err = repo.Head(); err != nil {
		return fmt.Errorf("repository is in an invalid state: %w", err)
	}
	return nil
}
