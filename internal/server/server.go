// Package server exposes the build pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"appforge/internal/config"
	"appforge/internal/models"
	"appforge/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Builder runs one build.
type Builder interface {
	Build(ctx context.Context, req models.BuildRequest) (*models.BuildResult, error)
}

// BuilderFunc returns the builder to use, creating it on first use.
type BuilderFunc func(ctx context.Context) (Builder, error)

type Server struct {
	engine      *gin.Engine
	builder     BuilderFunc
	deployments services.DeploymentService

	// builds run one at a time
	buildMu sync.Mutex
}

type buildRequest struct {
	Task        string              `json:"task"`
	Brief       string              `json:"brief"`
	Description string              `json:"description"`
	Round       int                 `json:"round"`
	Checks      []string            `json:"checks"`
	Attachments []models.Attachment `json:"attachments"`
	PrevReadme  string              `json:"prev_readme"`
	Publish     *bool               `json:"publish"`
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}

func New(builder BuilderFunc, deployments services.DeploymentService) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger())

	s := &Server{engine: engine, builder: builder, deployments: deployments}
	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	api.POST("/builds", s.createBuild)
	api.GET("/builds", s.listBuilds)
	api.GET("/builds/:id", s.getBuild)
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createBuild(c *gin.Context) {
	var body buildRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(body.Brief) == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: "brief is required"})
		return
	}
	publish := body.Publish == nil || *body.Publish
	if publish && strings.TrimSpace(body.Task) == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: "task is required to publish"})
		return
	}

	ctx := c.Request.Context()
	builder, err := s.builder(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	result, err := builder.Build(ctx, models.BuildRequest{
		GenerationRequest: models.GenerationRequest{
			Brief:       body.Brief,
			Attachments: body.Attachments,
			Checks:      body.Checks,
			Round:       body.Round,
			PrevReadme:  body.PrevReadme,
		},
		Task:        body.Task,
		Description: body.Description,
		Publish:     publish,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listBuilds(c *gin.Context) {
	if s.deployments == nil {
		c.JSON(http.StatusOK, []models.Deployment{})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	list, err := s.deployments.History(c.Query("repo"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []models.Deployment{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getBuild(c *gin.Context) {
	if s.deployments == nil {
		c.JSON(http.StatusNotFound, errorBody{Error: "build not found"})
		return
	}
	d, err := s.deployments.GetByBuildID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, errorBody{Error: "build not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var apiErr *services.APIError
	switch {
	case errors.Is(err, config.ErrMissingLLMToken),
		errors.Is(err, config.ErrMissingGitHubToken),
		errors.Is(err, config.ErrMissingOwner),
		errors.Is(err, services.ErrPublishingDisabled):
		status = http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	body := errorBody{Error: err.Error()}
	if apiErr != nil {
		body.Status = apiErr.StatusCode
	}
	slog.WarnContext(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
	c.JSON(status, body)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}
