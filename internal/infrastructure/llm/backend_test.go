package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-story-studio/internal/config"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/service"
)

func testConfig(openaiURL, anthropicURL string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Providers: map[string]config.ProviderConfig{
				config.ProviderOpenAI:    {BaseURL: openaiURL},
				config.ProviderAnthropic: {BaseURL: anthropicURL, MaxTokens: 4000},
			},
		},
	}
}

func ptr(f float64) *float64 { return &f }

type capturedRequest struct {
	Path    string
	Headers http.Header
	Body    map[string]any
}

func newCaptureServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest, *int32) {
	t.Helper()
	captured := &capturedRequest{}
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		captured.Path = r.URL.Path
		captured.Headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&captured.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, captured, &calls
}

func messageRoles(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["messages"].([]any)
	require.True(t, ok, "messages missing from request body")
	roles := make([]string, 0, len(raw))
	for _, m := range raw {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	return roles
}

const chatReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "The ship left orbit."}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

func TestChatCompletionBackendSendsSystemFirst(t *testing.T) {
	srv, captured, _ := newCaptureServer(t, http.StatusOK, chatReply)
	backend := NewChatCompletionBackend(NewEinoFactory(testConfig(srv.URL+"/v1", "")))

	out, err := backend.Complete(context.Background(), &service.CompletionRequest{
		APIKey:        "sk-test",
		ProviderModel: "gpt-4o",
		SystemPrompt:  "S",
		Turns:         []entity.Turn{entity.UserTurn("I")},
		Temperature:   ptr(0.7),
	})
	require.NoError(t, err)

	assert.Equal(t, "The ship left orbit.", out.Text)
	assert.Equal(t, 12, out.PromptTokens)
	assert.Equal(t, 5, out.CompletionTokens)

	assert.True(t, strings.HasSuffix(captured.Path, "/chat/completions"), captured.Path)
	assert.Equal(t, "Bearer sk-test", captured.Headers.Get("Authorization"))
	assert.Equal(t, "gpt-4o", captured.Body["model"])
	assert.InDelta(t, 0.7, captured.Body["temperature"], 1e-6)
	assert.Equal(t, []string{"system", "user"}, messageRoles(t, captured.Body))

	msgs := captured.Body["messages"].([]any)
	assert.Equal(t, "S", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "I", msgs[1].(map[string]any)["content"])
}

func TestChatCompletionBackendRevisionTurns(t *testing.T) {
	srv, captured, _ := newCaptureServer(t, http.StatusOK, chatReply)
	backend := NewChatCompletionBackend(NewEinoFactory(testConfig(srv.URL+"/v1", "")))

	_, err := backend.Complete(context.Background(), &service.CompletionRequest{
		APIKey:        "sk-test",
		ProviderModel: "gpt-4o-mini",
		SystemPrompt:  "editor",
		Turns: []entity.Turn{
			entity.UserTurn("first"), entity.AssistantTurn("story one"),
			entity.UserTurn("Revise the story according to the following requirements: more"),
		},
		Temperature: ptr(1.2),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, messageRoles(t, captured.Body))
}

func TestChatCompletionBackendEmptyReply(t *testing.T) {
	empty := strings.Replace(chatReply, "The ship left orbit.", "  ", 1)
	srv, _, _ := newCaptureServer(t, http.StatusOK, empty)
	backend := NewChatCompletionBackend(NewEinoFactory(testConfig(srv.URL+"/v1", "")))

	_, err := backend.Complete(context.Background(), &service.CompletionRequest{
		APIKey: "sk-test", ProviderModel: "gpt-4o", Turns: []entity.Turn{entity.UserTurn("I")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestChatCompletionBackendProviderFailure(t *testing.T) {
	srv, _, calls := newCaptureServer(t, http.StatusInternalServerError,
		`{"error": {"message": "upstream exploded", "type": "server_error"}}`)
	backend := NewChatCompletionBackend(NewEinoFactory(testConfig(srv.URL+"/v1", "")))

	_, err := backend.Complete(context.Background(), &service.CompletionRequest{
		APIKey: "sk-test", ProviderModel: "gpt-4o", Turns: []entity.Turn{entity.UserTurn("I")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestEinoFactoryCachesPerKey(t *testing.T) {
	f := NewEinoFactory(testConfig("http://127.0.0.1:1/v1", ""))
	ctx := context.Background()

	a, err := f.Get(ctx, "gpt-4o", "k1")
	require.NoError(t, err)
	b, err := f.Get(ctx, "gpt-4o", "k1")
	require.NoError(t, err)
	c, err := f.Get(ctx, "gpt-4o", "k2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

const messagesReply = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-opus-20240229",
  "content": [{"type": "text", "text": "The crew woke early."}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 20, "output_tokens": 7}
}`

func TestMessagesBackendUsesDedicatedSystemParam(t *testing.T) {
	srv, captured, _ := newCaptureServer(t, http.StatusOK, messagesReply)
	backend := NewMessagesBackend(testConfig("", srv.URL))

	out, err := backend.Complete(context.Background(), &service.CompletionRequest{
		APIKey:        "ant-test",
		ProviderModel: "claude-3-opus-20240229",
		SystemPrompt:  "S",
		Turns:         []entity.Turn{entity.UserTurn("I")},
		Temperature:   ptr(0.9),
	})
	require.NoError(t, err)

	assert.Equal(t, "The crew woke early.", out.Text)
	assert.Equal(t, 20, out.PromptTokens)
	assert.Equal(t, 7, out.CompletionTokens)

	assert.Equal(t, "/v1/messages", captured.Path)
	assert.Equal(t, "ant-test", captured.Headers.Get("X-Api-Key"))
	assert.Equal(t, "claude-3-opus-20240229", captured.Body["model"])
	assert.EqualValues(t, 4000, captured.Body["max_tokens"])
	assert.NotContains(t, captured.Body, "temperature")
	assert.Equal(t, []string{"user"}, messageRoles(t, captured.Body))

	system, ok := captured.Body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "S", system[0].(map[string]any)["text"])
}

func TestMessagesBackendOmitsEmptySystem(t *testing.T) {
	srv, captured, _ := newCaptureServer(t, http.StatusOK, messagesReply)
	backend := NewMessagesBackend(testConfig("", srv.URL))

	_, err := backend.Complete(context.Background(), &service.CompletionRequest{
		APIKey:        "ant-test",
		ProviderModel: "claude-3-opus-20240229",
		Turns: []entity.Turn{
			entity.UserTurn("a"), entity.AssistantTurn("b"), entity.UserTurn("c"),
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, captured.Body, "system")
	assert.Equal(t, []string{"user", "assistant", "user"}, messageRoles(t, captured.Body))
}

func TestMessagesBackendDoesNotRetry(t *testing.T) {
	srv, _, calls := newCaptureServer(t, http.StatusInternalServerError,
		`{"type": "error", "error": {"type": "api_error", "message": "overloaded"}}`)
	backend := NewMessagesBackend(testConfig("", srv.URL))

	_, err := backend.Complete(context.Background(), &service.CompletionRequest{
		APIKey: "ant-test", ProviderModel: "claude-3-opus-20240229", Turns: []entity.Turn{entity.UserTurn("I")},
	})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestMessagesBackendDefaultMaxTokens(t *testing.T) {
	b := NewMessagesBackend(&config.Config{})
	assert.EqualValues(t, 4000, b.maxTokens)
}
