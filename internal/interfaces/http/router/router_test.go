package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-story-studio/internal/application/story"
	"z-story-studio/internal/config"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/service"
	"z-story-studio/internal/infrastructure/persistence/memory"
	"z-story-studio/internal/interfaces/http/handler"
	workflowprompt "z-story-studio/internal/workflow/prompt"
)

type stubBackend struct {
	err error
}

func (b *stubBackend) Complete(_ context.Context, req *service.CompletionRequest) (*service.Completion, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &service.Completion{Text: "generated: " + req.Turns[len(req.Turns)-1].Text}, nil
}

type stubCredentials map[entity.BackendFamily]string

func (s stubCredentials) Credential(f entity.BackendFamily) (string, bool) {
	v, ok := s[f]
	return v, ok
}

func (s stubCredentials) KeyName(f entity.BackendFamily) string {
	if f == entity.FamilyMessages {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
		Details   string `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, backend *stubBackend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App: config.AppConfig{Name: "story-studio", Env: "test"},
		UI:  config.UIConfig{DefaultTemperature: 0.7, DefaultInstruction: "configured instruction"},
	}
	catalog := entity.DefaultCatalog()
	creds := stubCredentials{entity.FamilyChatCompletion: "sk-test"}
	prompts := workflowprompt.NewRegistry()

	dispatcher := story.NewDispatcher(catalog, creds, map[entity.BackendFamily]service.CompletionBackend{
		entity.FamilyChatCompletion: backend,
		entity.FamilyMessages:       backend,
	}, cfg.UI.DefaultTemperature)
	studio := story.NewStudio(memory.NewSessionStore(time.Hour), story.NewAssembler(prompts), dispatcher, nil)

	r := New(cfg, &Handlers{
		Health:    handler.NewHealthHandler(nil, creds, "test"),
		Session:   handler.NewSessionHandler(studio),
		Story:     handler.NewStoryHandler(studio),
		Selection: handler.NewSelectionHandler(studio),
		Model:     handler.NewModelHandler(catalog, creds),
		UI:        handler.NewUIHandler(cfg.UI, prompts),
	})
	return r.Engine()
}

func do(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func createSession(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w, env := do(t, engine, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var s struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &s))
	require.NotEmpty(t, s.ID)
	return s.ID
}

type storyData struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	Content     string   `json:"content"`
	DerivedFrom []string `json:"derived_from"`
	Selected    bool     `json:"selected"`
}

func generate(t *testing.T, engine *gin.Engine, sid, instruction string) storyData {
	t.Helper()
	w, env := do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/stories", map[string]any{
		"system_prompt": "S",
		"instruction":   instruction,
		"model":         "gpt-4o",
		"temperature":   0.9,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s storyData
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestSystemEndpoints(t *testing.T) {
	engine := newTestRouter(t, &stubBackend{})

	w, _ := do(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, engine, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var ready struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "disabled", ready.Checks["redis"].Status)
	assert.Equal(t, "ok", ready.Checks["credentials.chat_completion"].Status)
	assert.Equal(t, "missing", ready.Checks["credentials.messages"].Status)
	assert.Contains(t, ready.Checks["credentials.messages"].Error, "ANTHROPIC_API_KEY")

	w, _ = do(t, engine, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Story Studio")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestModelsReportCredentialAvailability(t *testing.T) {
	engine := newTestRouter(t, &stubBackend{})

	w, env := do(t, engine, http.MethodGet, "/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var models []struct {
		ID                  string `json:"id"`
		Available           bool   `json:"available"`
		SupportsTemperature bool   `json:"supports_temperature"`
		UnavailableReason   string `json:"unavailable_reason"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &models))
	require.Len(t, models, 4)
	assert.Equal(t, "gpt-4o", models[0].ID)
	assert.True(t, models[0].Available)
	assert.Equal(t, "o1", models[3].ID)
	assert.False(t, models[3].Available)
	assert.False(t, models[3].SupportsTemperature)
	assert.Contains(t, models[3].UnavailableReason, "ANTHROPIC_API_KEY")
}

func TestUIDefaults(t *testing.T) {
	engine := newTestRouter(t, &stubBackend{})

	w, env := do(t, engine, http.MethodGet, "/v1/ui/defaults", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var d struct {
		SystemPrompt   string  `json:"system_prompt"`
		Instruction    string  `json:"instruction"`
		Temperature    float64 `json:"temperature"`
		MaxTemperature float64 `json:"max_temperature"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "configured instruction", d.Instruction)
	assert.Equal(t, "You are a creative writer who creates interesting and engaging stories", d.SystemPrompt)
	assert.Equal(t, 0.7, d.Temperature)
	assert.Equal(t, 2.0, d.MaxTemperature)
}

func TestGenerateSelectReviseFlow(t *testing.T) {
	engine := newTestRouter(t, &stubBackend{})
	sid := createSession(t, engine)

	first := generate(t, engine, sid, "first story")
	second := generate(t, engine, sid, "second story")
	require.NotNil(t, first.Temperature)
	assert.Equal(t, 0.9, *first.Temperature)
	assert.Contains(t, first.Title, " - first story...")

	for _, id := range []string{second.ID, first.ID} {
		w, _ := do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/selection/"+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, env := do(t, engine, http.MethodGet, "/v1/sessions/"+sid+"/stories?order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Stories []storyData `json:"stories"`
		Total   int         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Equal(t, 2, list.Total)
	assert.Equal(t, second.ID, list.Stories[0].ID)
	assert.True(t, list.Stories[0].Selected)

	w, env = do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/revisions", map[string]any{
		"system_prompt":        "editor",
		"revision_instruction": "add detail",
		"model":                "gpt-4o-mini",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var revised storyData
	require.NoError(t, json.Unmarshal(env.Data, &revised))
	assert.Equal(t, []string{second.ID, first.ID}, revised.DerivedFrom)
	assert.Equal(t, "generated: Revise the story according to the following requirements: add detail", revised.Content)

	w, env = do(t, engine, http.MethodGet, "/v1/sessions/"+sid+"/selection", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sel struct {
		Selection []string `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sel))
	assert.Empty(t, sel.Selection)

	w, env = do(t, engine, http.MethodGet, "/v1/sessions/"+sid+"/stories/"+revised.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	engine := newTestRouter(t, &stubBackend{})
	sid := createSession(t, engine)

	// 缺少 messages 家族凭证
	w, env := do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/stories", map[string]any{
		"instruction": "x", "model": "o1",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "4003", env.Error.ErrorCode)
	assert.Contains(t, env.Error.Details, "ANTHROPIC_API_KEY")

	w, env = do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/stories", map[string]any{
		"instruction": "x", "model": "gpt-9",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "4004", env.Error.ErrorCode)

	w, _ = do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/stories", map[string]any{
		"instruction": "x", "model": "gpt-4o", "temperature": 3,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/stories", map[string]any{"instruction": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, engine, http.MethodGet, "/v1/sessions/nope/stories", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/selection/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, engine, http.MethodDelete, "/v1/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = do(t, engine, http.MethodGet, "/v1/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProviderFailureSurfacesCause(t *testing.T) {
	backend := &stubBackend{err: errors.New("dial tcp: connection refused")}
	engine := newTestRouter(t, backend)
	sid := createSession(t, engine)

	w, env := do(t, engine, http.MethodPost, "/v1/sessions/"+sid+"/stories", map[string]any{
		"instruction": "x", "model": "gpt-4o",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "connection refused")

	w, env = do(t, engine, http.MethodGet, "/v1/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var s struct {
		StoryCount int `json:"story_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, 0, s.StoryCount)
}
