package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"appforge/internal/app"
	"appforge/internal/generator"
	"appforge/internal/models"
	"appforge/internal/server"
	"appforge/internal/services"
	"appforge/internal/utils"
)

func (r *runner) startApp(ctx context.Context) (*app.App, error) {
	a := app.NewApp(r.cfg, r.conf.HTTPClient)
	if err := a.Startup(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *runner) build(ctx context.Context, cmd *cmdBuild, publish bool) error {
	if publish && strings.TrimSpace(cmd.Task) == "" {
		return errors.New("publish needs a task name")
	}
	if publish {
		if err := r.cfg.ValidatePublishing(); err != nil {
			return err
		}
	}
	req, err := r.buildRequest(cmd)
	if err != nil {
		return err
	}
	req.Publish = publish

	a, err := r.startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	svc, err := a.BuildService(ctx)
	if err != nil {
		return err
	}
	result, err := svc.Build(ctx, req)
	if err != nil {
		return err
	}

	if cmd.Out != "" {
		if err := writeFiles(cmd.Out, result.Files); err != nil {
			return err
		}
	}
	return r.printBuild(cmd, result)
}

func (r *runner) buildRequest(cmd *cmdBuild) (models.BuildRequest, error) {
	brief := cmd.Brief
	switch {
	case cmd.BriefFile != "":
		data, err := os.ReadFile(cmd.BriefFile)
		if err != nil {
			return models.BuildRequest{}, err
		}
		brief = string(data)
	case brief == "-":
		data, err := io.ReadAll(r.conf.Stdin)
		if err != nil {
			return models.BuildRequest{}, err
		}
		brief = string(data)
	}
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return models.BuildRequest{}, errors.New("a brief is required (--brief or --brief-file)")
	}
	if cmd.Round != 1 && cmd.Round != 2 {
		return models.BuildRequest{}, fmt.Errorf("round must be 1 or 2, got %d", cmd.Round)
	}

	checks := append([]string(nil), cmd.Checks...)
	if cmd.ChecksFile != "" {
		lines, err := utils.ReadNonEmptyLines(cmd.ChecksFile)
		if err != nil {
			return models.BuildRequest{}, fmt.Errorf("read checks: %w", err)
		}
		checks = append(checks, lines...)
	}

	attachments, err := collectAttachments(cmd.Attach)
	if err != nil {
		return models.BuildRequest{}, err
	}

	var prev string
	if cmd.PrevReadme != "" {
		data, err := os.ReadFile(cmd.PrevReadme)
		if err != nil {
			return models.BuildRequest{}, err
		}
		prev = string(data)
	}

	return models.BuildRequest{
		GenerationRequest: models.GenerationRequest{
			Brief:       brief,
			Attachments: attachments,
			Checks:      checks,
			Round:       cmd.Round,
			PrevReadme:  prev,
		},
		Task:        strings.TrimSpace(cmd.Task),
		Description: cmd.Description,
		Workspace:   cmd.Workspace,
	}, nil
}

// collectAttachments passes data URIs through untouched and expands everything
// else as a file glob. Remote URLs are refused: only inline content is decoded.
func collectAttachments(specs []string) ([]models.Attachment, error) {
	var out []models.Attachment
	var patterns []string
	for _, spec := range specs {
		switch {
		case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
			return nil, fmt.Errorf("cannot attach %s: download it first, only files and data: URIs are supported", spec)
		case strings.HasPrefix(spec, "data:"):
			out = append(out, models.Attachment{Name: fmt.Sprintf("attachment-%d", len(out)+1), URL: spec})
		default:
			patterns = append(patterns, spec)
		}
	}
	if len(patterns) == 0 {
		return out, nil
	}
	paths, err := utils.ExpandGlobs(patterns)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		att, err := generator.AttachmentFromFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}

func writeFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func (r *runner) printBuild(cmd *cmdBuild, res *models.BuildResult) error {
	out := r.conf.Stdout
	if cmd.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	// nothing was written anywhere else, so print the files themselves
	if cmd.Out == "" && cmd.Workspace == "" && res.Repo == nil {
		fmt.Fprintln(out, res.Files[models.IndexFile])
		fmt.Fprintln(out, generator.Separator)
		fmt.Fprintln(out, res.Files[models.ReadmeFile])
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "build\t%s\n", res.BuildID)
	fmt.Fprintf(w, "round\t%d\n", res.Round)
	if res.Fallback {
		fmt.Fprintf(w, "fallback\tyes\n")
	}
	if cmd.Out != "" {
		fmt.Fprintf(w, "files\t%s\n", cmd.Out)
	}
	if res.LocalCommit != nil {
		fmt.Fprintf(w, "workspace\t%s %s\n", cmd.Workspace, shortHash(res.LocalCommit.Hash))
	}
	if res.Repo != nil {
		fmt.Fprintf(w, "repo\t%s\n", res.Repo.HTMLURL)
		fmt.Fprintf(w, "commit\t%s\n", res.CommitSHA)
		pages := res.PagesURL
		if pages == "" {
			pages = "(not ready)"
		}
		fmt.Fprintf(w, "pages\t%s\n", pages)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning\t%s\n", warn)
	}
	return w.Flush()
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func (r *runner) serve(ctx context.Context) error {
	a, err := r.startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	srv := server.New(func(ctx context.Context) (server.Builder, error) {
		return a.BuildService(ctx)
	}, a.Services.Deployments)
	return srv.ListenAndServe(ctx, r.cli.Serve.Addr)
}

func (r *runner) history(ctx context.Context) error {
	a, err := r.startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	if r.cli.History.Clear {
		if strings.TrimSpace(r.cli.History.Repo) == "" {
			return fmt.Errorf("--clear needs a repository name")
		}
		if err := a.Services.Deployments.DeleteAll(r.cli.History.Repo); err != nil {
			return err
		}
		fmt.Fprintf(r.conf.Stdout, "cleared history of %s\n", r.cli.History.Repo)
		return nil
	}

	list, err := a.Services.Deployments.History(r.cli.History.Repo, r.cli.History.Limit)
	if err != nil {
		return err
	}
	if r.cli.History.JSON {
		enc := json.NewEncoder(r.conf.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	w := tabwriter.NewWriter(r.conf.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tREPO\tROUND\tMODEL\tCOMMIT\tPAGES")
	for _, d := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			d.CreatedAt.Format("2006-01-02 15:04"), d.RepoFullName, d.Round, d.Model, shortHash(d.CommitSHA), d.PagesURL)
	}
	return w.Flush()
}

func (r *runner) models() error {
	catalog, err := services.NewModelCatalogService()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(r.conf.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tNAME")
	for _, group := range catalog.ListModelGroups() {
		for _, m := range group.Models {
			marker := ""
			if m.ProviderID == r.cfg.Provider && m.APIName == r.cfg.Model {
				marker = " (default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s%s\n", group.ProviderID, m.APIName, m.DisplayName, marker)
		}
	}
	return w.Flush()
}

func (r *runner) whoami(ctx context.Context) error {
	a := app.NewApp(r.cfg, r.conf.HTTPClient)
	gh, err := a.GitHub()
	if err != nil {
		return err
	}
	login, repos, err := gh.Whoami(ctx, r.cli.Whoami.Repos)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.conf.Stdout, "authenticated as %s\n", login)
	if !strings.EqualFold(login, r.cfg.Owner) {
		fmt.Fprintf(r.conf.Stdout, "warning: configured owner %q does not match the token owner\n", r.cfg.Owner)
	}
	for _, name := range repos {
		fmt.Fprintf(r.conf.Stdout, "- %s\n", name)
	}
	return nil
}

func (r *runner) keys(cmd string) error {
	ring := r.keyring()
	if ring == nil {
		return errors.New("OS keyring is not available")
	}
	switch cmd {
	case "keys set <name>":
		data, err := io.ReadAll(r.conf.Stdin)
		if err != nil {
			return err
		}
		if err := ring.StoreApiKey(r.cli.Keys.Set.Name, []byte(strings.TrimSpace(string(data)))); err != nil {
			return err
		}
		fmt.Fprintf(r.conf.Stdout, "stored %s\n", r.cli.Keys.Set.Name)
	case "keys delete <name>":
		if err := ring.DeleteApiKey(r.cli.Keys.Delete.Name); err != nil {
			return err
		}
		fmt.Fprintf(r.conf.Stdout, "deleted %s\n", r.cli.Keys.Delete.Name)
	case "keys list":
		list, err := ring.ListApiKeys()
		if err != nil {
			return err
		}
		sort.Slice(list, func(i, j int) bool { return list[i]["name"] < list[j]["name"] })
		for _, item := range list {
			fmt.Fprintf(r.conf.Stdout, "%s\t%s\n", item["name"], item["description"])
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}
