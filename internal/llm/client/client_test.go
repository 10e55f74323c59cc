package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	generate func(ctx context.Context, in []*schema.Message) (*schema.Message, error)
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return f.generate(ctx, in)
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestComplete_SendsSystemAndUserMessages(t *testing.T) {
	c := &LLMClient{Provider: ProviderOpenAI, ChatModel: &fakeChatModel{
		generate: func(ctx context.Context, in []*schema.Message) (*schema.Message, error) {
			require.Len(t, in, 2)
			assert.Equal(t, schema.System, in[0].Role)
			assert.Equal(t, "sys", in[0].Content)
			assert.Equal(t, schema.User, in[1].Role)
			assert.Equal(t, "usr", in[1].Content)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return schema.AssistantMessage("answer", nil), nil
		},
	}}

	out, err := c.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestComplete_WrapsProviderErrors(t *testing.T) {
	c := &LLMClient{Provider: ProviderGemini, ChatModel: &fakeChatModel{
		generate: func(context.Context, []*schema.Message) (*schema.Message, error) {
			return nil, errors.New("quota exceeded")
		},
	}}

	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini completion: quota exceeded")
}

func TestComplete_Unconfigured(t *testing.T) {
	var c *LLMClient
	_, err := c.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestOpenAIClient_AgainstCompatibleEndpoint(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"<html></html>\n---README.md---\n# hi"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(context.Background(), "sk-test", OpenAIModelOptions{
		Model:   "openai/gpt-4.1-nano",
		BaseURL: srv.URL + "/",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>\n---README.md---\n# hi", out)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "openai/gpt-4.1-nano", gotModel)
}

func TestOpenAIClient_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(context.Background(), "sk-test", OpenAIModelOptions{Model: "m", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestGeminiClient_MissingKeyIsLogged(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, err := NewGeminiClient(context.Background(), "", GeminiModelOptions{Model: "gemini-2.5-flash"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create genai client")
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "provider=gemini")
}
