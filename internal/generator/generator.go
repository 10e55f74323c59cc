package generator

import (
	"context"
	"log/slog"
	"strings"

	"appforge/internal/config"
	"appforge/internal/events"
	"appforge/internal/models"
)

// Completer sends one system + user prompt pair to a chat model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator turns a brief into an index.html and README.md pair.
type Generator struct {
	llm           Completer
	attachmentDir string
}

func NewGenerator(llm Completer, attachmentDir string) *Generator {
	if strings.TrimSpace(attachmentDir) == "" {
		attachmentDir = config.DefaultAttachmentDir
	}
	return &Generator{llm: llm, attachmentDir: attachmentDir}
}

// Generate runs decode, summarize, compose, complete, split and repair.
// Upstream failures are replaced by fallback content, so the only errors
// returned are a missing completer (no credential) and a cancelled context.
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	if g == nil || g.llm == nil {
		return nil, config.ErrMissingLLMToken
	}
	round := req.Round
	if round != 2 {
		round = 1
	}

	decoded := DecodeAttachments(g.attachmentDir, req.Attachments)
	saved := SavedAttachments(decoded)
	summaries := SummarizeAttachments(saved)
	attachmentsMeta := RenderSummaries(summaries)

	prompt := ComposePrompt(PromptInput{
		Brief:           req.Brief,
		Round:           round,
		PrevReadme:      req.PrevReadme,
		AttachmentsMeta: attachmentsMeta,
		Checks:          req.Checks,
	})

	fallback := false
	text, err := g.llm.Complete(ctx, SystemPrompt, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		events.Emit(ctx, events.BuildGenerate, events.NewWarn("completion failed, using fallback content").With("error", err.Error()))
		text = FallbackResponse(req.Brief, req.Checks, attachmentsMeta, round)
		fallback = true
	}

	code, readme, found := SplitResponse(text)
	if !found || readme == "" {
		readme = FallbackReadme(req.Brief, req.Checks, attachmentsMeta, round)
	}
	code = RepairHTML(code)

	warnings := LengthWarnings(code, readme)
	for _, w := range warnings {
		events.Emit(ctx, events.BuildGenerate, events.NewWarn(w))
	}

	slog.InfoContext(ctx, "parsed model response", "html_chars", len(code), "readme_chars", len(readme), "fallback", fallback)

	return &models.GenerationResult{
		Files: map[string]string{
			models.IndexFile:  code,
			models.ReadmeFile: readme,
		},
		Attachments:       saved,
		Fallback:          fallback,
		Warnings:          warnings,
		AttachmentResults: decoded,
		Summaries:         summaries,
	}, nil
}
