package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"appforge/internal/config"
	"appforge/internal/database"
	"appforge/internal/generator"
	"appforge/internal/services"

	"gorm.io/gorm/logger"
)

// App owns the long-lived resources shared by every command: the database,
// the service container and the credential store.
type App struct {
	ctx        context.Context
	cfg        config.Config
	Services   *services.Services
	httpClient *http.Client
	dbClose    func() error

	mu    sync.Mutex
	build *services.BuildService
}

// NewApp creates a new App. httpClient is used for every outbound call; nil
// selects http.DefaultClient.
func NewApp(cfg config.Config, httpClient *http.Client) *App {
	return &App{cfg: cfg, httpClient: httpClient}
}

func (a *App) Config() config.Config {
	return a.cfg
}

// Startup opens the database and wires the service container.
func (a *App) Startup(ctx context.Context) error {
	a.ctx = ctx

	level := logger.Warn
	if a.cfg.LogLevel == "debug" {
		level = logger.Info
	}
	db, err := database.Init(database.Config{
		Path:     a.cfg.DatabasePath,
		LogLevel: level,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.dbClose = func() error { return database.Close(db) }

	svc, err := services.NewServices(db)
	if err != nil {
		_ = a.dbClose()
		a.dbClose = nil
		return err
	}
	a.Services = svc
	return nil
}

// Shutdown is called when the app is closing. Clean up resources here.
func (a *App) Shutdown(ctx context.Context) {
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		} else {
			slog.DebugContext(ctx, "database closed")
		}
		a.dbClose = nil
	}
}

// BuildService lazily creates the pipeline. The completion credential is
// always required; GitHub is wired only when its credentials are present, so
// local-only builds work without them.
func (a *App) BuildService(ctx context.Context) (*services.BuildService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.build != nil {
		return a.build, nil
	}
	if a.Services == nil {
		return nil, fmt.Errorf("app not started")
	}

	llm, model, err := services.NewClientService(a.Services.Models, a.httpClient).Instantiate(ctx, a.cfg)
	if err != nil {
		return nil, err
	}

	opts := []services.BuildOption{
		services.WithGitService(a.Services.Git),
		services.WithDeployments(a.Services.Deployments),
		services.WithModel(model),
	}
	if a.cfg.ValidatePublishing() == nil {
		gh, err := services.NewGitHubService(a.cfg, a.httpClient)
		if err != nil {
			return nil, err
		}
		opts = append(opts, services.WithPublisher(gh))
	}

	a.build = services.NewBuildService(generator.NewGenerator(llm, a.cfg.AttachmentDir), a.cfg, opts...)
	slog.DebugContext(ctx, "build service ready", "provider", model.ProviderID, "model", model.APIName)
	return a.build, nil
}

// GitHub returns a client for the configured account.
func (a *App) GitHub() (*services.GitHubService, error) {
	return services.NewGitHubService(a.cfg, a.httpClient)
}
