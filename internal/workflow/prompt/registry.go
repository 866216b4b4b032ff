// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	// PromptStoryV1 新故事：默认系统提示与默认指令
	PromptStoryV1 PromptID = "story_v1"
	// PromptRevisionV1 修订：默认系统提示与修订请求模板
	PromptRevisionV1 PromptID = "revision_v1"
)

// VarRevisionInstruction 修订模板中的占位变量
const VarRevisionInstruction = "revision_instruction"

// Defaults 页面预填内容
type Defaults struct {
	SystemPrompt         string
	Instruction          string
	RevisionSystemPrompt string
	RevisionInstruction  string
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// UserTemplate 返回只含一条用户消息的模板；系统提示由调用方单独携带
func (r *Registry) UserTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	user, err := readEmbeddedText(templatePath(id, "user"))
	if err != nil {
		return nil, err
	}
	tpl := einoprompt.FromMessages(schema.FString, schema.UserMessage(user))
	r.cache[id] = tpl
	return tpl, nil
}

// RenderUser 渲染用户消息模板
func (r *Registry) RenderUser(ctx context.Context, id PromptID, vars map[string]any) (string, error) {
	tpl, err := r.UserTemplate(id)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", id, err)
	}
	if len(msgs) != 1 {
		return "", fmt.Errorf("prompt %s rendered %d messages, want 1", id, len(msgs))
	}
	return msgs[0].Content, nil
}

// Defaults 读取内嵌的默认文本
func (r *Registry) Defaults() (Defaults, error) {
	var d Defaults
	var err error
	if d.SystemPrompt, err = readEmbeddedText(templatePath(PromptStoryV1, "system")); err != nil {
		return d, err
	}
	if d.Instruction, err = readEmbeddedText(templatePath(PromptStoryV1, "user")); err != nil {
		return d, err
	}
	if d.RevisionSystemPrompt, err = readEmbeddedText(templatePath(PromptRevisionV1, "system")); err != nil {
		return d, err
	}
	if d.RevisionInstruction, err = readEmbeddedText(templatePath(PromptRevisionV1, "example")); err != nil {
		return d, err
	}
	return d, nil
}

func templatePath(id PromptID, part string) string {
	return fmt.Sprintf("templates/%s.%s.txt", id, part)
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt template %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}
