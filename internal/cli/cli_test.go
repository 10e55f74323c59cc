package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appforge/internal/models"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completion = "```html\n<!DOCTYPE html><html><head><title>Counter</title></head><body><button>+1</button></body></html>\n```\n" +
	"---README.md---\n# Counter\n\nA small counter app with a single button that increments."

type harness struct {
	conf   *CliConfig
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	dir    string
	ring   keyring.Keyring
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, dir: t.TempDir(), ring: keyring.NewArrayKeyring(nil)}
	h.conf = &CliConfig{
		Name:        "appforge",
		Description: "test",
		Version:     "test",
		Exit:        func(int) {},
		Stdin:       strings.NewReader(""),
		Stdout:      h.stdout,
		Stderr:      h.stderr,
		Context:     context.Background(),
		Getenv:      func(string) string { return "" },
		Keyring:     h.ring,
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (int, error) {
	t.Helper()
	h.stdout.Reset()
	base := []string{
		"--db", filepath.Join(h.dir, "appforge.db"),
		"--attachment-dir", filepath.Join(h.dir, "attachments"),
		"--log-level", "error",
	}
	return Cli(append(args, base...), h.conf)
}

func fakeLLM(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "c1", "object": "chat.completion", "created": 1, "model": "m",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]string{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fakeGitHub(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var puts []string
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/counter", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusCreated, map[string]any{"name": "counter", "full_name": "octo/counter", "html_url": "https://github.com/octo/counter"})
	})
	mux.HandleFunc("GET /repos/octo/counter/contents/{path...}", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	mux.HandleFunc("PUT /repos/octo/counter/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		puts = append(puts, r.PathValue("path"))
		reply(w, http.StatusCreated, map[string]any{"commit": map[string]string{"sha": "abc123def456"}})
	})
	mux.HandleFunc("POST /repos/octo/counter/pages", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusCreated, map[string]any{})
	})
	mux.HandleFunc("GET /repos/octo/counter/pages", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, map[string]any{"html_url": "https://octo.github.io/counter/", "status": "built"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &puts
}

func TestCliModels(t *testing.T) {
	h := newHarness(t)
	rc, err := h.run(t, "models")
	require.NoError(t, err)
	assert.Equal(t, 0, rc)
	assert.Contains(t, h.stdout.String(), "openai/gpt-4.1-nano")
	assert.Contains(t, h.stdout.String(), "(default)")
}

func TestCliGenerateWritesFiles(t *testing.T) {
	h := newHarness(t)
	llm := fakeLLM(t, completion)
	out := filepath.Join(h.dir, "out")

	rc, err := h.run(t, "generate", "--brief", "A counter", "--llm-token", "sk-test", "--llm-base-url", llm.URL, "--out", out)
	require.NoError(t, err)
	assert.Equal(t, 0, rc)

	index, err := os.ReadFile(filepath.Join(out, models.IndexFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(index), "<!DOCTYPE html>"))
	readme, err := os.ReadFile(filepath.Join(out, models.ReadmeFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(readme), "# Counter"))
}

func TestCliGeneratePrintsFilesWithoutDestination(t *testing.T) {
	h := newHarness(t)
	llm := fakeLLM(t, completion)

	_, err := h.run(t, "generate", "--brief", "A counter", "--llm-token", "sk-test", "--llm-base-url", llm.URL)
	require.NoError(t, err)
	assert.Contains(t, h.stdout.String(), "<button>+1</button>")
	assert.Contains(t, h.stdout.String(), "---README.md---")
}

func TestCliGenerateFallsBackWhenModelIsDown(t *testing.T) {
	h := newHarness(t)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	_, err := h.run(t, "generate", "--brief", "A counter", "--llm-token", "sk-test", "--llm-base-url", down.URL, "--json")
	require.NoError(t, err)

	var res models.BuildResult
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &res))
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Files[models.IndexFile], "Hello (fallback)")
}

func TestCliGenerateRequiresLLMToken(t *testing.T) {
	h := newHarness(t)
	rc, err := h.run(t, "generate", "--brief", "x")
	assert.Equal(t, 1, rc)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestCliGenerateValidatesInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "generate", "--llm-token", "k")
	assert.ErrorContains(t, err, "brief is required")

	_, err = h.run(t, "generate", "--brief", "x", "--round", "3", "--llm-token", "k")
	assert.ErrorContains(t, err, "round must be 1 or 2")

	_, err = h.run(t, "publish", "--brief", "x", "--llm-token", "k")
	assert.ErrorContains(t, err, "task name")

	rc, err := h.run(t, "generate", "--brief", "x", "--llm-token", "k", "--attach", "https://example.com/logo.png")
	assert.Equal(t, 1, rc)
	assert.ErrorContains(t, err, "only files and data: URIs")
}

func TestCliPublishAndHistory(t *testing.T) {
	h := newHarness(t)
	llm := fakeLLM(t, completion)
	gh, puts := fakeGitHub(t)

	checks := filepath.Join(h.dir, "checks.txt")
	require.NoError(t, os.WriteFile(checks, []byte("# required\nPage has a button\n"), 0o644))
	sample := filepath.Join(h.dir, "data", "sample.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(sample), 0o755))
	require.NoError(t, os.WriteFile(sample, []byte("a,b\n1,2\n"), 0o644))

	rc, err := h.run(t, "publish", "counter",
		"--brief", "A counter",
		"--checks-file", checks,
		"--attach", filepath.Join(h.dir, "**", "*.csv"),
		"--llm-token", "sk-test", "--llm-base-url", llm.URL,
		"--github-token", "ghp-test", "--owner", "octo", "--github-api", gh.URL,
		"--json",
	)
	require.NoError(t, err, h.stderr.String())
	assert.Equal(t, 0, rc)

	var res models.BuildResult
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &res))
	assert.Equal(t, "https://octo.github.io/counter/", res.PagesURL)
	assert.Equal(t, "abc123def456", res.CommitSHA)
	assert.Equal(t, []string{"index.html", "README.md", "sample.csv"}, *puts)

	_, err = h.run(t, "history", "counter", "--json")
	require.NoError(t, err)
	var list []models.Deployment
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, res.BuildID, list[0].BuildID)
	assert.Equal(t, "octo/counter", list[0].RepoFullName)

	_, err = h.run(t, "history", "--clear")
	assert.ErrorContains(t, err, "needs a repository name")

	_, err = h.run(t, "history", "counter", "--clear")
	require.NoError(t, err)
	assert.Contains(t, h.stdout.String(), "cleared history of counter")

	_, err = h.run(t, "history", "counter", "--json")
	require.NoError(t, err)
	list = nil
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &list))
	assert.Empty(t, list)
}

func TestCliKeys(t *testing.T) {
	h := newHarness(t)
	h.conf.Stdin = strings.NewReader("ghp_from_stdin\n")

	_, err := h.run(t, "keys", "set", "github-token")
	require.NoError(t, err)

	item, err := h.ring.Get("github-token")
	require.NoError(t, err)
	assert.Equal(t, "ghp_from_stdin", string(item.Data))

	_, err = h.run(t, "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, h.stdout.String(), "github-token")

	_, err = h.run(t, "keys", "delete", "github-token")
	require.NoError(t, err)
	_, err = h.ring.Get("github-token")
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestCliUsesKeyringCredentials(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ring.Set(keyring.Item{Key: "llm-token", Data: []byte("sk-ring")}))
	llm := fakeLLM(t, completion)

	_, err := h.run(t, "generate", "--brief", "A counter", "--llm-base-url", llm.URL)
	require.NoError(t, err)

	_, err = h.run(t, "generate", "--brief", "A counter", "--llm-base-url", llm.URL, "--no-keyring")
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestCliParseError(t *testing.T) {
	h := newHarness(t)
	rc, err := Cli([]string{"bogus"}, h.conf)
	assert.Error(t, err)
	assert.Equal(t, 2, rc)
}
