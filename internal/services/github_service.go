package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"appforge/internal/config"
	"appforge/internal/events"
	"appforge/internal/models"

	"github.com/google/go-github/v66/github"
)

const (
	maxDescriptionLen = 350
	apiCallTimeout    = 30 * time.Second
	pagesCallTimeout  = 15 * time.Second
	licenseTemplate   = "mit"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status from source hosting API")
	ErrRepoCreate       = errors.New("failed to create repository")
	ErrFileUpsert       = errors.New("failed to create or update file")
)

// APIError describes a non-success answer from the source hosting API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	kind       error
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() []error {
	if e.kind == nil {
		return []error{ErrUnexpectedStatus}
	}
	return []error{ErrUnexpectedStatus, e.kind}
}

// GitHubService publishes generated files through the GitHub REST API. Every
// call is independent and keyed by an explicit RepoHandle.
type GitHubService struct {
	client       *github.Client
	owner        string
	pollInterval time.Duration
}

func NewGitHubService(cfg config.Config, httpClient *http.Client) (*GitHubService, error) {
	if err := cfg.ValidatePublishing(); err != nil {
		return nil, err
	}
	client := github.NewClient(httpClient).WithAuthToken(cfg.Token)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" && base != config.DefaultGitHubAPI {
		u, err := url.Parse(strings.TrimRight(base, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse GitHub API url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHubService{client: client, owner: cfg.Owner, pollInterval: cfg.PollInterval}, nil
}

func (s *GitHubService) Owner() string {
	return s.owner
}

// EnsureRepo returns the existing repository unchanged, or creates a public,
// auto-initialised, MIT-licensed one. A creation answer other than 201 is fatal.
func (s *GitHubService) EnsureRepo(ctx context.Context, name, description string) (*models.RepoHandle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("repository name is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	existing, resp, err := s.client.Repositories.Get(callCtx, s.owner, name)
	cancel()
	if statusOf(resp) == http.StatusOK && existing != nil {
		slog.InfoContext(ctx, "repository already exists", "repo", s.owner+"/"+name)
		return handleFromRepo(existing, s.owner, name), nil
	}
	if err != nil && statusOf(resp) != http.StatusNotFound {
		// creation is still attempted; its answer is authoritative
		slog.WarnContext(ctx, "repository lookup failed", "repo", s.owner+"/"+name, "error", err)
	}

	callCtx, cancel = context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()
	created, resp, err := s.client.Repositories.Create(callCtx, "", &github.Repository{
		Name:            github.String(name),
		Description:     github.String(SanitizeDescription(description)),
		Private:         github.Bool(false),
		AutoInit:        github.Bool(true),
		LicenseTemplate: github.String(licenseTemplate),
	})
	if statusOf(resp) != http.StatusCreated || created == nil {
		return nil, apiError("create repository", resp, err, ErrRepoCreate)
	}
	handle := handleFromRepo(created, s.owner, name)
	events.Emit(ctx, events.BuildPublish, events.NewInfo("created repository").With("repo", handle.FullName))
	return handle, nil
}

// UpsertFile creates or updates a text file and returns the resulting commit SHA.
// Any unexpected status is returned as an error.
func (s *GitHubService) UpsertFile(ctx context.Context, repo models.RepoHandle, path, content, message string) (string, error) {
	return s.upsert(ctx, repo, path, []byte(content), message)
}

// UpsertBinaryFile is the non-fatal variant used for attachments.
func (s *GitHubService) UpsertBinaryFile(ctx context.Context, repo models.RepoHandle, path string, data []byte, message string) bool {
	if _, err := s.upsert(ctx, repo, path, data, message); err != nil {
		slog.WarnContext(ctx, "binary upload failed", "path", path, "error", err)
		return false
	}
	return true
}

func (s *GitHubService) upsert(ctx context.Context, repo models.RepoHandle, path string, data []byte, message string) (string, error) {
	owner, name := s.ownerOf(repo), repo.Repo()

	callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	current, _, resp, err := s.client.Repositories.GetContents(callCtx, owner, name, path, nil)
	cancel()

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: data,
	}

	callCtx, cancel = context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()

	switch statusOf(resp) {
	case http.StatusOK:
		// the blob sha is the optimistic concurrency token for updates
		opts.SHA = github.String(current.GetSHA())
		out, resp, err := s.client.Repositories.UpdateFile(callCtx, owner, name, path, opts)
		if statusOf(resp) != http.StatusOK {
			return "", apiError("update "+path, resp, err, ErrFileUpsert)
		}
		slog.InfoContext(ctx, "updated file", "path", path, "repo", owner+"/"+name)
		return out.Commit.GetSHA(), nil
	case http.StatusNotFound:
		out, resp, err := s.client.Repositories.CreateFile(callCtx, owner, name, path, opts)
		if statusOf(resp) != http.StatusCreated {
			return "", apiError("create "+path, resp, err, ErrFileUpsert)
		}
		slog.InfoContext(ctx, "created file", "path", path, "repo", owner+"/"+name)
		return out.Commit.GetSHA(), nil
	default:
		return "", apiError("check "+path, resp, err, ErrFileUpsert)
	}
}

// EnablePages asks for static hosting of branch/path. 201, 202 and 204 count
// as success; anything else is logged and reported as false.
func (s *GitHubService) EnablePages(ctx context.Context, repo models.RepoHandle, branch, path string) bool {
	if path == "" {
		path = "/"
	}
	callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()

	_, resp, err := s.client.Repositories.EnablePages(callCtx, s.ownerOf(repo), repo.Repo(), &github.Pages{
		Source: &github.PagesSource{Branch: github.String(branch), Path: github.String(path)},
	})
	switch code := statusOf(resp); code {
	case http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		slog.InfoContext(ctx, "pages enable accepted", "repo", repo.FullName, "status", code)
		return true
	default:
		slog.WarnContext(ctx, "pages enable failed", "repo", repo.FullName, "error", apiError("enable pages", resp, err, nil))
		return false
	}
}

// WaitForPages polls the hosting status until a URL is published with a
// "built" or absent status, or until timeout elapses. It returns "" on timeout.
func (s *GitHubService) WaitForPages(ctx context.Context, repo models.RepoHandle, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	interval := s.pollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	for time.Now().Before(deadline) {
		callCtx, cancel := context.WithTimeout(ctx, pagesCallTimeout)
		info, resp, _ := s.client.Repositories.GetPagesInfo(callCtx, s.ownerOf(repo), repo.Repo())
		cancel()

		if statusOf(resp) == http.StatusOK && info != nil {
			status := info.GetStatus()
			if u := info.GetHTMLURL(); u != "" && (status == "" || status == "built") {
				return u
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ""
		case <-timer.C:
		}
	}
	return ""
}

// GetFileText fetches and decodes a text file. ok is false when the file is
// missing or cannot be decoded.
func (s *GitHubService) GetFileText(ctx context.Context, repo models.RepoHandle, path string) (text string, ok bool) {
	callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()

	file, _, resp, err := s.client.Repositories.GetContents(callCtx, s.ownerOf(repo), repo.Repo(), path, nil)
	if err != nil || statusOf(resp) != http.StatusOK || file == nil {
		return "", false
	}
	content, err := file.GetContent()
	if err != nil {
		return "", false
	}
	return strings.ToValidUTF8(content, ""), true
}

// LatestCommitSHA returns the newest commit on the default branch.
func (s *GitHubService) LatestCommitSHA(ctx context.Context, repo models.RepoHandle) (string, bool) {
	callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()

	commits, resp, err := s.client.Repositories.ListCommits(callCtx, s.ownerOf(repo), repo.Repo(), &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil || statusOf(resp) != http.StatusOK || len(commits) == 0 {
		return "", false
	}
	return commits[0].GetSHA(), true
}

// SanitizeDescription drops control characters, collapses whitespace and caps
// the length.
func SanitizeDescription(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if utf8.RuneCountInString(cleaned) <= maxDescriptionLen {
		return cleaned
	}
	return string([]rune(cleaned)[:maxDescriptionLen-3]) + "..."
}

func (s *GitHubService) ownerOf(repo models.RepoHandle) string {
	if owner := repo.Owner(); owner != "" {
		return owner
	}
	return s.owner
}

func handleFromRepo(r *github.Repository, owner, name string) *models.RepoHandle {
	h := &models.RepoHandle{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		HTMLURL:       r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}
	if h.Name == "" {
		h.Name = name
	}
	if h.FullName == "" {
		h.FullName = owner + "/" + name
	}
	return h
}

func statusOf(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func apiError(op string, resp *github.Response, err error, kind error) error {
	e := &APIError{Op: op, StatusCode: statusOf(resp), kind: kind}
	var ghErr *github.ErrorResponse
	switch {
	case errors.As(err, &ghErr):
		e.Body = ghErr.Message
	case err != nil:
		e.Body = err.Error()
	}
	return e
}

// Whoami returns the login of the token owner and up to limit of its
// repository names, most recently updated first.
func (s *GitHubService) Whoami(ctx context.Context, limit int) (string, []string, error) {
	callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()

	user, resp, err := s.client.Users.Get(callCtx, "")
	if statusOf(resp) != http.StatusOK || user == nil {
		return "", nil, apiError("get authenticated user", resp, err, nil)
	}
	if limit <= 0 {
		return user.GetLogin(), nil, nil
	}

	repos, resp, err := s.client.Repositories.ListByAuthenticatedUser(callCtx, &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if statusOf(resp) != http.StatusOK {
		return user.GetLogin(), nil, apiError("list repositories", resp, err, nil)
	}
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.GetName())
	}
	return user.GetLogin(), names, nil
}
