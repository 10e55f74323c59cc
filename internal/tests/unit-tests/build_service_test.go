package unit_tests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"appforge/internal/config"
	"appforge/internal/events"
	"appforge/internal/models"
	"appforge/internal/services"
	"appforge/internal/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuildFixture(t *testing.T) (*mocks.GeneratorMock, *mocks.PublisherMock, *[]models.Deployment, services.DeploymentService) {
	t.Helper()
	stored := &[]models.Deployment{}
	repo := &mocks.DeploymentRepositoryMock{
		CreateFunc: func(d *models.Deployment) error {
			*stored = append(*stored, *d)
			return nil
		},
	}
	return &mocks.GeneratorMock{}, &mocks.PublisherMock{OwnerName: "octo"}, stored, services.NewDeploymentService(repo)
}

func TestBuildService_RoundOnePublishesInOrder(t *testing.T) {
	gen, pub, stored, deployments := newBuildFixture(t)
	shas := map[string]string{models.IndexFile: "sha-index", models.ReadmeFile: "sha-readme"}
	pub.UpsertFileFunc = func(_ context.Context, repo models.RepoHandle, path, content, message string) (string, error) {
		assert.Equal(t, "octo/captcha-solver", repo.FullName)
		assert.NotEmpty(t, content)
		assert.Equal(t, "Round 1: update "+path, message)
		return shas[path], nil
	}
	pub.WaitForPagesFunc = func(_ context.Context, _ models.RepoHandle, timeout time.Duration) string {
		assert.Equal(t, config.DefaultPagesTimeout, timeout)
		return "https://octo.github.io/captcha-solver/"
	}

	svc := services.NewBuildService(gen, config.Default(),
		services.WithPublisher(pub),
		services.WithDeployments(deployments),
		services.WithModel(models.LLMModel{ProviderID: "openai", APIName: "openai/gpt-4.1-nano"}))

	res, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "Solve captchas"},
		Task:              "captcha-solver",
		Publish:           true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"EnsureRepo:captcha-solver",
		"UpsertFile:index.html",
		"UpsertFile:README.md",
		"EnablePages:main",
		"WaitForPages",
	}, pub.Calls)
	assert.Equal(t, 1, res.Round)
	assert.Equal(t, "sha-readme", res.CommitSHA)
	assert.Equal(t, "https://octo.github.io/captcha-solver/", res.PagesURL)
	assert.NotEmpty(t, res.BuildID)

	require.Len(t, *stored, 1)
	d := (*stored)[0]
	assert.Equal(t, res.BuildID, d.BuildID)
	assert.Equal(t, "captcha-solver", d.RepoName)
	assert.Equal(t, "openai/gpt-4.1-nano", d.Model)
	assert.Equal(t, "# Solve captchas", d.Readme)
}

func TestBuildService_RoundTwoUsesPublishedReadmeAndSkipsEnable(t *testing.T) {
	gen, pub, _, deployments := newBuildFixture(t)
	pub.GetFileTextFunc = func(_ context.Context, repo models.RepoHandle, path string) (string, bool) {
		assert.Equal(t, "octo/app", repo.FullName)
		assert.Equal(t, models.ReadmeFile, path)
		return "# Round one readme", true
	}

	svc := services.NewBuildService(gen, config.Default(), services.WithPublisher(pub), services.WithDeployments(deployments))
	_, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "Improve", Round: 2},
		Task:              "app",
		Publish:           true,
	})
	require.NoError(t, err)

	require.Len(t, gen.Requests, 1)
	assert.Equal(t, "# Round one readme", gen.Requests[0].PrevReadme)
	assert.NotContains(t, pub.Calls, "EnablePages:main")
	assert.Contains(t, pub.Calls, "LatestCommitSHA")
}

func TestBuildService_RoundTwoFallsBackToHistory(t *testing.T) {
	gen, pub, _, _ := newBuildFixture(t)
	deployments := services.NewDeploymentService(&mocks.DeploymentRepositoryMock{
		LatestByRepoFunc: func(name string) (*models.Deployment, error) {
			return &models.Deployment{RepoName: name, Readme: "# stored readme"}, nil
		},
	})

	svc := services.NewBuildService(gen, config.Default(), services.WithPublisher(pub), services.WithDeployments(deployments))
	_, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "Improve", Round: 2},
		Task:              "app",
	})
	require.NoError(t, err)
	assert.Equal(t, "# stored readme", gen.Requests[0].PrevReadme)
}

func TestBuildService_ExplicitPrevReadmeWins(t *testing.T) {
	gen, pub, _, deployments := newBuildFixture(t)
	svc := services.NewBuildService(gen, config.Default(), services.WithPublisher(pub), services.WithDeployments(deployments))

	_, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "b", Round: 2, PrevReadme: "# given"},
		Task:              "app",
	})
	require.NoError(t, err)
	assert.Equal(t, "# given", gen.Requests[0].PrevReadme)
	assert.Empty(t, pub.Calls)
}

func TestBuildService_PublishWithoutPublisher(t *testing.T) {
	gen, _, _, _ := newBuildFixture(t)
	svc := services.NewBuildService(gen, config.Default())

	_, err := svc.Build(context.Background(), models.BuildRequest{Task: "app", Publish: true})
	assert.ErrorIs(t, err, services.ErrPublishingDisabled)
	assert.Empty(t, gen.Requests)
}

func TestBuildService_UpsertFailureIsFatal(t *testing.T) {
	gen, pub, stored, deployments := newBuildFixture(t)
	boom := &services.APIError{Op: "create index.html", StatusCode: 409}
	pub.UpsertFileFunc = func(context.Context, models.RepoHandle, string, string, string) (string, error) {
		return "", boom
	}

	svc := services.NewBuildService(gen, config.Default(), services.WithPublisher(pub), services.WithDeployments(deployments))
	_, err := svc.Build(context.Background(), models.BuildRequest{Task: "app", Publish: true})

	var apiErr *services.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.StatusCode)
	assert.Empty(t, *stored)
	assert.NotContains(t, pub.Calls, "WaitForPages")
}

func TestBuildService_AttachmentUploadFailureIsNotFatal(t *testing.T) {
	gen, pub, _, deployments := newBuildFixture(t)
	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	gen.GenerateFunc = func(_ context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
		return &models.GenerationResult{
			Files:       map[string]string{models.IndexFile: "<html></html>", models.ReadmeFile: "# r"},
			Attachments: []models.SavedAttachment{{Name: "logo.png", Path: logo, MIME: "image/png", Size: 4}},
		}, nil
	}
	var uploaded []byte
	pub.UpsertBinaryFileFunc = func(_ context.Context, _ models.RepoHandle, path string, data []byte, _ string) bool {
		assert.Equal(t, "logo.png", path)
		uploaded = data
		return false
	}

	svc := services.NewBuildService(gen, config.Default(), services.WithPublisher(pub), services.WithDeployments(deployments))
	res, err := svc.Build(context.Background(), models.BuildRequest{Task: "app", Publish: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, uploaded)
	assert.Len(t, res.Attachments, 1)
	assert.Contains(t, pub.Calls, "WaitForPages")
}

func TestBuildService_LocalWorkspaceWithoutPublishing(t *testing.T) {
	gen, _, _, _ := newBuildFixture(t)
	workspace := filepath.Join(t.TempDir(), "ws")
	svc := services.NewBuildService(gen, config.Default(), services.WithGitService(services.NewGitService()))

	first, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "one"},
		Workspace:         workspace,
	})
	require.NoError(t, err)
	require.NotNil(t, first.LocalCommit)
	assert.Nil(t, first.Repo)

	second, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "two", Round: 2, PrevReadme: "# one"},
		Workspace:         workspace,
	})
	require.NoError(t, err)
	assert.Contains(t, second.LocalCommit.Diff, "+# two")

	data, err := os.ReadFile(filepath.Join(workspace, models.IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "two")
}

func TestBuildService_GeneratorErrorPropagates(t *testing.T) {
	gen, _, _, _ := newBuildFixture(t)
	gen.GenerateFunc = func(context.Context, models.GenerationRequest) (*models.GenerationResult, error) {
		return nil, config.ErrMissingLLMToken
	}

	_, err := services.NewBuildService(gen, config.Default()).Build(context.Background(), models.BuildRequest{})
	assert.True(t, errors.Is(err, config.ErrMissingLLMToken))
}

func TestBuildService_RoundTwoReadsReadmeFromWorkspace(t *testing.T) {
	gen, _, _, _ := newBuildFixture(t)
	workspace := filepath.Join(t.TempDir(), "ws")
	svc := services.NewBuildService(gen, config.Default(), services.WithGitService(services.NewGitService()))

	_, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "one"},
		Workspace:         workspace,
	})
	require.NoError(t, err)

	// uncommitted edits do not count as the previous round
	require.NoError(t, os.WriteFile(filepath.Join(workspace, models.ReadmeFile), []byte("# scratch"), 0o644))

	_, err = svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "two", Round: 2},
		Workspace:         workspace,
	})
	require.NoError(t, err)
	require.Len(t, gen.Requests, 2)
	assert.Equal(t, "# one", gen.Requests[1].PrevReadme)
}

func TestBuildService_RoundTwoWithoutAnyPreviousReadme(t *testing.T) {
	gen, _, _, _ := newBuildFixture(t)
	svc := services.NewBuildService(gen, config.Default())

	_, err := svc.Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "two", Round: 2},
		Workspace:         filepath.Join(t.TempDir(), "missing"),
	})
	require.NoError(t, err)
	assert.Empty(t, gen.Requests[0].PrevReadme)
}

func TestBuildService_WarnsAboutSkippedAttachments(t *testing.T) {
	gen, _, _, _ := newBuildFixture(t)
	gen.GenerateFunc = func(_ context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
		return &models.GenerationResult{
			Files: map[string]string{models.IndexFile: "<html></html>", models.ReadmeFile: "# x"},
			AttachmentResults: []models.AttachmentResult{
				{Name: "logo.png", Skipped: true},
				{Name: "bad.csv", Err: errors.New("illegal base64 data")},
			},
		}, nil
	}

	var warned []events.BuildEvent
	events.SetCustomEmitter(func(_ context.Context, _ string, evt events.BuildEvent) {
		if evt.Type == events.EventWarn {
			warned = append(warned, evt)
		}
	})
	t.Cleanup(func() { events.SetCustomEmitter(nil) })

	_, err := services.NewBuildService(gen, config.Default()).Build(context.Background(), models.BuildRequest{
		GenerationRequest: models.GenerationRequest{Brief: "x"},
	})
	require.NoError(t, err)

	names := make([]string, 0, len(warned))
	for _, evt := range warned {
		names = append(names, evt.Metadata["name"])
	}
	assert.ElementsMatch(t, []string{"logo.png", "bad.csv"}, names)
}
