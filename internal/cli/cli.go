package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"appforge/internal/config"
	"appforge/internal/events"
	"appforge/internal/logging"
	"appforge/internal/services"
	"appforge/internal/utils"

	"github.com/99designs/keyring"
	"github.com/alecthomas/kong"
)

// Version is overridden at link time.
var Version = "dev"

// cmdBuild is shared by generate and publish. Task is required to publish and
// lets generate find the previous README for round 2.
type cmdBuild struct {
	Task        string   `arg:"" optional:"" help:"Repository name for the app."`
	Brief       string   `short:"b" help:"What the app should do. Use - to read it from stdin."`
	BriefFile   string   `type:"existingfile" help:"Read the brief from a file."`
	Round       int      `short:"r" default:"1" help:"1 for a new app, 2 to revise an existing one."`
	Checks      []string `short:"c" help:"Evaluation check the app must satisfy (repeatable)."`
	ChecksFile  string   `type:"existingfile" help:"File with one check per line; # starts a comment."`
	Attach      []string `short:"a" help:"File glob (** allowed) or data: URI to attach (repeatable)."`
	PrevReadme  string   `type:"existingfile" help:"README.md of the previous round (round 2)."`
	Description string   `help:"Repository description; defaults to the brief."`
	Out         string   `short:"o" help:"Directory to write the generated files into."`
	Workspace   string   `short:"w" help:"Local git repository mirroring every round."`
	JSON        bool     `help:"Print the build result as JSON."`
}

type cmdServe struct {
	Addr string `default:":8080" help:"Listen address."`
}

type cmdHistory struct {
	Repo  string `arg:"" optional:"" help:"Only show builds of this repository."`
	Limit int    `short:"n" default:"20" help:"Maximum number of builds to show."`
	JSON  bool   `help:"Print as JSON."`
	Clear bool   `help:"Forget the recorded builds of the repository."`
}

type cmdModels struct{}

type cmdWhoami struct {
	Repos int `default:"5" help:"Number of recent repositories to list."`
}

type cmdKeyName struct {
	Name string `arg:"" enum:"github-token,llm-token" help:"Credential name: github-token or llm-token."`
}

type cmdKeys struct {
	Set    cmdKeyName `cmd:"" help:"Store a credential read from stdin."`
	Delete cmdKeyName `cmd:"" help:"Remove a stored credential."`
	List   struct{}   `cmd:"" help:"List stored credentials."`
}

type cliArgs struct {
	Generate cmdBuild   `cmd:"" help:"Generate index.html and README.md without publishing."`
	Publish  cmdBuild   `cmd:"" help:"Generate and publish to a GitHub repository with Pages."`
	Serve    cmdServe   `cmd:"" help:"Serve the build API over HTTP."`
	History  cmdHistory `cmd:"" help:"List published builds."`
	Models   cmdModels  `cmd:"" help:"List known chat models."`
	Whoami   cmdWhoami  `cmd:"" help:"Check the GitHub credential."`
	Keys     cmdKeys    `cmd:"" help:"Manage credentials in the OS keyring."`

	GitHubToken   string        `name:"github-token" help:"GitHub token (env GITHUB_TOKEN)."`
	Owner         string        `help:"GitHub account owning the repositories (env GITHUB_USERNAME)."`
	GitHubAPI     string        `name:"github-api" help:"GitHub API base URL (env GITHUB_API_URL)."`
	LLMToken      string        `name:"llm-token" help:"Chat-completion API key (env OPENAI_API_KEY)."`
	LLMBaseURL    string        `name:"llm-base-url" help:"OpenAI-compatible endpoint (env LLM_BASE_URL)."`
	Model         string        `short:"m" help:"Model name or catalog key (env OPENROUTER_MODEL)."`
	Provider      string        `help:"openai, anthropic or gemini (env LLM_PROVIDER)."`
	Branch        string        `help:"Branch served by Pages."`
	PagesTimeout  time.Duration `help:"How long to wait for the Pages URL."`
	LLMTimeout    time.Duration `name:"llm-timeout" help:"Timeout of the completion call."`
	AttachmentDir string        `help:"Directory for decoded attachments."`
	DB            string        `name:"db" help:"SQLite database path."`
	LogLevel      string        `default:"info" enum:"debug,info,warn,error" help:"Log level."`
	LogFormat     string        `default:"text" enum:"text,json" help:"Log format."`
	NoKeyring     bool          `help:"Do not read credentials from the OS keyring."`

	Version kong.VersionFlag `help:"Print the version."`
}

// CliConfig contains the configuration for the appforge cli
type CliConfig struct {
	Name        string
	Description string
	Version     string
	// Exit is the function to call to exit the program
	Exit   func(int)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Context context.Context
	// Getenv reads the process environment. When nil, .env is loaded and
	// os.Getenv is used.
	Getenv     func(string) string
	HTTPClient *http.Client
	// Keyring overrides the OS keyring.
	Keyring keyring.Keyring
}

// NewCliConfig returns a new Config struct with default values populated
func NewCliConfig() *CliConfig {
	return &CliConfig{
		Name:        "appforge",
		Description: "Generate a single-page web app with an LLM and publish it to GitHub Pages.",
		Version:     Version,
		Exit:        func(i int) { os.Exit(i) },
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Context:     context.Background(),
	}
}

// Cli parses args and runs the selected subcommand.
func Cli(args []string, conf *CliConfig) (rc int, err error) {
	var cli cliArgs
	parser, err := kong.New(&cli,
		kong.Name(conf.Name),
		kong.Description(conf.Description),
		kong.Exit(conf.Exit),
		kong.Writers(conf.Stdout, conf.Stderr),
		kong.Vars{"version": conf.Version},
	)
	if err != nil {
		return 1, err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(conf.Stderr, "%s: error: %v\n", conf.Name, err)
		return 2, err
	}

	logging.Init(cli.LogLevel, cli.LogFormat, conf.Stderr)
	if cli.LogFormat != "json" {
		events.SetCustomEmitter(progressPrinter(conf.Stderr))
		defer events.SetCustomEmitter(nil)
	}

	ctx := conf.Context
	if ctx == nil {
		ctx = context.Background()
	}

	r := &runner{conf: conf, cli: &cli}
	r.cfg = r.loadConfig()

	cmd := kctx.Command()
	slog.Debug("running command", "cmd", cmd)
	switch {
	case cmd == "generate" || cmd == "generate <task>":
		err = r.build(ctx, &cli.Generate, false)
	case cmd == "publish" || cmd == "publish <task>":
		err = r.build(ctx, &cli.Publish, true)
	case cmd == "serve":
		err = r.serve(ctx)
	case strings.HasPrefix(cmd, "history"):
		err = r.history(ctx)
	case cmd == "models":
		err = r.models()
	case cmd == "whoami":
		err = r.whoami(ctx)
	case strings.HasPrefix(cmd, "keys"):
		err = r.keys(cmd)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintf(conf.Stderr, "%s: error: %v\n", conf.Name, err)
		return 1, err
	}
	return 0, nil
}

type runner struct {
	conf *CliConfig
	cli  *cliArgs
	cfg  config.Config
	ring *services.KeyringService
}

// loadConfig layers flags over the environment (.env included) and fills
// missing credentials from the keyring.
func (r *runner) loadConfig() config.Config {
	getenv := r.conf.Getenv
	if getenv == nil {
		if path, err := utils.LoadEnv(); err != nil {
			slog.Warn("failed to load .env", "path", path, "error", err)
		} else if path != "" {
			slog.Debug("loaded .env", "path", path)
		}
		getenv = os.Getenv
	}
	cfg := config.FromEnv(getenv)

	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	c := r.cli
	set(&cfg.Token, c.GitHubToken)
	set(&cfg.Owner, c.Owner)
	set(&cfg.BaseURL, c.GitHubAPI)
	set(&cfg.LLMToken, c.LLMToken)
	set(&cfg.LLMBaseURL, c.LLMBaseURL)
	set(&cfg.Model, c.Model)
	set(&cfg.Provider, c.Provider)
	set(&cfg.HostingBranch, c.Branch)
	set(&cfg.AttachmentDir, c.AttachmentDir)
	set(&cfg.DatabasePath, c.DB)
	if c.PagesTimeout > 0 {
		cfg.PagesTimeout = c.PagesTimeout
	}
	if c.LLMTimeout > 0 {
		cfg.LLMTimeout = c.LLMTimeout
	}
	cfg.LogLevel = c.LogLevel
	cfg.LogFormat = c.LogFormat

	if !c.NoKeyring {
		if ring := r.keyring(); ring != nil {
			cfg = cfg.ResolveCredentials(ring)
		}
	}
	return cfg
}

func (r *runner) keyring() *services.KeyringService {
	if r.ring != nil {
		return r.ring
	}
	if r.conf.Keyring != nil {
		r.ring = services.NewKeyringService(r.conf.Keyring)
		return r.ring
	}
	ring, err := services.OpenKeyringService()
	if err != nil {
		slog.Debug("keyring unavailable", "error", err)
		return nil
	}
	r.ring = ring
	return r.ring
}

func progressPrinter(w io.Writer) func(ctx context.Context, name string, evt events.BuildEvent) {
	return func(_ context.Context, _ string, evt events.BuildEvent) {
		marker := "·"
		switch evt.Type {
		case events.EventWarn:
			marker = "!"
		case events.EventError:
			marker = "✗"
		case events.EventSuccess:
			marker = "✓"
		}
		line := marker + " " + evt.Message
		if v, ok := evt.Metadata["error"]; ok {
			line += ": " + v
		}
		fmt.Fprintln(w, line)
	}
}
