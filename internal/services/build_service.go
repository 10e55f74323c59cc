package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"appforge/internal/config"
	"appforge/internal/events"
	"appforge/internal/models"

	"github.com/google/uuid"
)

// AppGenerator produces the files for one round.
type AppGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
}

// Publisher is the subset of GitHubService used by builds.
type Publisher interface {
	Owner() string
	EnsureRepo(ctx context.Context, name, description string) (*models.RepoHandle, error)
	UpsertFile(ctx context.Context, repo models.RepoHandle, path, content, message string) (string, error)
	UpsertBinaryFile(ctx context.Context, repo models.RepoHandle, path string, data []byte, message string) bool
	EnablePages(ctx context.Context, repo models.RepoHandle, branch, path string) bool
	WaitForPages(ctx context.Context, repo models.RepoHandle, timeout time.Duration) string
	GetFileText(ctx context.Context, repo models.RepoHandle, path string) (string, bool)
	LatestCommitSHA(ctx context.Context, repo models.RepoHandle) (string, bool)
}

var ErrPublishingDisabled = errors.New("publishing requested but GitHub is not configured")

// BuildService runs one generate-and-publish round end to end. Steps run
// strictly in order; nothing is retried.
type BuildService struct {
	generator   AppGenerator
	publisher   Publisher
	git         *GitService
	deployments DeploymentService
	cfg         config.Config
	model       models.LLMModel
}

type BuildOption func(*BuildService)

func WithPublisher(p Publisher) BuildOption {
	return func(s *BuildService) { s.publisher = p }
}

func WithGitService(g *GitService) BuildOption {
	return func(s *BuildService) { s.git = g }
}

func WithDeployments(d DeploymentService) BuildOption {
	return func(s *BuildService) { s.deployments = d }
}

// WithModel records which model produced the build in deployment history.
func WithModel(m models.LLMModel) BuildOption {
	return func(s *BuildService) { s.model = m }
}

func NewBuildService(gen AppGenerator, cfg config.Config, opts ...BuildOption) *BuildService {
	s := &BuildService{generator: gen, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BuildService) Build(ctx context.Context, req models.BuildRequest) (*models.BuildResult, error) {
	if s.generator == nil {
		return nil, config.ErrMissingLLMToken
	}
	req.Task = strings.TrimSpace(req.Task)
	if req.Publish {
		if s.publisher == nil {
			return nil, ErrPublishingDisabled
		}
		if req.Task == "" {
			return nil, fmt.Errorf("task name is required to publish")
		}
	}
	if req.Round != 2 {
		req.Round = 1
	}

	buildID := uuid.NewString()
	ctx = events.WithBuild(ctx, buildID)
	slog.InfoContext(ctx, "build started", "build", buildID, "task", req.Task, "round", req.Round, "publish", req.Publish)

	if req.Round == 2 && strings.TrimSpace(req.PrevReadme) == "" {
		req.PrevReadme = s.previousReadme(ctx, req)
	}

	events.Emit(ctx, events.BuildGenerate, events.NewInfo("generating files").With("round", fmt.Sprint(req.Round)))
	gen, err := s.generator.Generate(ctx, req.GenerationRequest)
	if err != nil {
		events.Emit(ctx, events.BuildDone, events.NewError("generation failed").With("error", err.Error()))
		return nil, err
	}
	for _, f := range gen.Failures() {
		events.Emit(ctx, events.BuildGenerate, events.NewWarn("attachment skipped").With("name", f.Name).With("error", f.Err.Error()))
	}
	for _, r := range gen.AttachmentResults {
		if r.Skipped {
			events.Emit(ctx, events.BuildGenerate, events.NewWarn("attachment skipped").With("name", r.Name).With("error", "not a data: URI"))
		}
	}

	result := &models.BuildResult{
		BuildID:     buildID,
		Round:       req.Round,
		Files:       gen.Files,
		Attachments: gen.Attachments,
		Fallback:    gen.Fallback,
		Warnings:    gen.Warnings,
	}

	if req.Workspace != "" {
		if err := s.commitWorkspace(ctx, req, gen, result); err != nil {
			return nil, err
		}
	}

	if !req.Publish {
		events.Emit(ctx, events.BuildDone, events.NewSuccess("build finished without publishing"))
		return result, nil
	}

	if err := s.publish(ctx, req, gen, result); err != nil {
		events.Emit(ctx, events.BuildDone, events.NewError("publish failed").With("error", err.Error()))
		return nil, err
	}

	s.record(ctx, req, result)
	events.Emit(ctx, events.BuildDone, events.NewSuccess("build published").
		With("repo", result.Repo.FullName).
		With("pages_url", result.PagesURL))
	return result, nil
}

func (s *BuildService) publish(ctx context.Context, req models.BuildRequest, gen *models.GenerationResult, result *models.BuildResult) error {
	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = req.Brief
	}

	events.Emit(ctx, events.BuildPublish, events.NewInfo("ensuring repository").With("repo", req.Task))
	repo, err := s.publisher.EnsureRepo(ctx, req.Task, description)
	if err != nil {
		return err
	}
	result.Repo = repo

	for _, name := range []string{models.IndexFile, models.ReadmeFile} {
		sha, err := s.publisher.UpsertFile(ctx, *repo, name, gen.Files[name], commitMessage(name, req.Round))
		if err != nil {
			return err
		}
		if sha != "" {
			result.CommitSHA = sha
		}
	}

	for _, att := range gen.Attachments {
		data, err := os.ReadFile(att.Path)
		if err != nil {
			slog.WarnContext(ctx, "could not read saved attachment", "name", att.Name, "error", err)
			continue
		}
		name := filepath.Base(att.Path)
		if !s.publisher.UpsertBinaryFile(ctx, *repo, name, data, commitMessage(name, req.Round)) {
			events.Emit(ctx, events.BuildPublish, events.NewWarn("attachment upload failed").With("name", att.Name))
		}
	}

	if result.CommitSHA == "" {
		if sha, ok := s.publisher.LatestCommitSHA(ctx, *repo); ok {
			result.CommitSHA = sha
		}
	}

	branch := s.cfg.HostingBranch
	if branch == "" {
		branch = config.DefaultBranch
	}
	if req.Round == 1 {
		if !s.publisher.EnablePages(ctx, *repo, branch, "/") {
			events.Emit(ctx, events.BuildHosting, events.NewWarn("pages could not be enabled"))
		}
	}

	events.Emit(ctx, events.BuildHosting, events.NewInfo("waiting for pages"))
	timeout := s.cfg.PagesTimeout
	if timeout <= 0 {
		timeout = config.DefaultPagesTimeout
	}
	result.PagesURL = s.publisher.WaitForPages(ctx, *repo, timeout)
	if result.PagesURL == "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		events.Emit(ctx, events.BuildHosting, events.NewWarn("pages URL not available before timeout"))
	}
	return nil
}

func (s *BuildService) commitWorkspace(ctx context.Context, req models.BuildRequest, gen *models.GenerationResult, result *models.BuildResult) error {
	if s.git == nil {
		s.git = NewGitService()
	}
	files := make(map[string][]byte, len(gen.Files)+len(gen.Attachments))
	for name, content := range gen.Files {
		files[name] = []byte(content)
	}
	for _, att := range gen.Attachments {
		data, err := os.ReadFile(att.Path)
		if err != nil {
			slog.WarnContext(ctx, "could not read saved attachment", "name", att.Name, "error", err)
			continue
		}
		files[filepath.Base(att.Path)] = data
	}

	commit, err := s.git.CommitFiles(req.Workspace, files, fmt.Sprintf("Round %d: %s", req.Round, firstLine(req.Brief)))
	if err != nil {
		return fmt.Errorf("workspace commit: %w", err)
	}
	result.LocalCommit = commit
	slog.InfoContext(ctx, "workspace committed", "hash", commit.Hash, "files", len(commit.Files))
	return nil
}

// previousReadme prefers the published README, then the last recorded
// deployment, then README.md committed in the local workspace.
func (s *BuildService) previousReadme(ctx context.Context, req models.BuildRequest) string {
	task := req.Task
	if task != "" && s.publisher != nil {
		repo := models.RepoHandle{Name: task, FullName: s.publisher.Owner() + "/" + task}
		if text, ok := s.publisher.GetFileText(ctx, repo, models.ReadmeFile); ok && strings.TrimSpace(text) != "" {
			return text
		}
	}
	if task != "" && s.deployments != nil {
		latest, err := s.deployments.Latest(task)
		if err != nil {
			slog.WarnContext(ctx, "could not load deployment history", "task", task, "error", err)
		} else if latest != nil && strings.TrimSpace(latest.Readme) != "" {
			return latest.Readme
		}
	}
	if req.Workspace != "" {
		gs := s.git
		if gs == nil {
			gs = NewGitService()
		}
		text, err := gs.ReadHeadFile(req.Workspace, models.ReadmeFile)
		if err != nil {
			slog.DebugContext(ctx, "no previous README in workspace", "workspace", req.Workspace, "error", err)
			return ""
		}
		return text
	}
	return ""
}

func (s *BuildService) record(ctx context.Context, req models.BuildRequest, result *models.BuildResult) {
	if s.deployments == nil {
		return
	}
	_, err := s.deployments.Record(&models.Deployment{
		BuildID:      result.BuildID,
		RepoName:     req.Task,
		RepoFullName: result.Repo.FullName,
		Round:        result.Round,
		Provider:     s.model.ProviderID,
		Model:        s.model.APIName,
		CommitSHA:    result.CommitSHA,
		PagesURL:     result.PagesURL,
		Readme:       result.Files[models.ReadmeFile],
		Fallback:     result.Fallback,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record deployment", "error", err)
	}
}

func commitMessage(path string, round int) string {
	return fmt.Sprintf("Round %d: update %s", round, path)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		s = line
	}
	if r := []rune(s); len(r) > 72 {
		s = string(r[:72])
	}
	if s == "" {
		return "generated app"
	}
	return s
}
