package llm

import (
	"context"
	"fmt"
	"strings"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/service"
)

// ChatCompletionBackend chat-completion 家族：系统提示作为首条消息
type ChatCompletionBackend struct {
	factory *EinoFactory
}

// NewChatCompletionBackend 创建 chat-completion 后端
func NewChatCompletionBackend(factory *EinoFactory) *ChatCompletionBackend {
	return &ChatCompletionBackend{factory: factory}
}

// Complete 发起一次生成
func (b *ChatCompletionBackend) Complete(ctx context.Context, req *service.CompletionRequest) (*service.Completion, error) {
	msgs, err := buildChatMessages(req)
	if err != nil {
		return nil, err
	}

	chatModel, err := b.factory.Get(ctx, req.ProviderModel, req.APIKey)
	if err != nil {
		return nil, err
	}

	ctx = einocallbacks.InitCallbacks(ctx, &einocallbacks.RunInfo{
		Name:      "story_completion",
		Type:      "OpenAI",
		Component: components.ComponentOfChatModel,
	})

	out, err := chatModel.Generate(ctx, msgs, buildChatOptions(req)...)
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, fmt.Errorf("provider returned an empty completion")
	}

	res := &service.Completion{Text: out.Content}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		res.PromptTokens = out.ResponseMeta.Usage.PromptTokens
		res.CompletionTokens = out.ResponseMeta.Usage.CompletionTokens
	}
	return res, nil
}

func buildChatMessages(req *service.CompletionRequest) ([]*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(req.Turns)+1)
	msgs = append(msgs, schema.SystemMessage(req.SystemPrompt))
	for _, t := range req.Turns {
		switch t.Role {
		case entity.RoleUser:
			msgs = append(msgs, schema.UserMessage(t.Text))
		case entity.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(t.Text, nil))
		default:
			return nil, fmt.Errorf("unsupported turn role %q", t.Role)
		}
	}
	return msgs, nil
}

func buildChatOptions(req *service.CompletionRequest) []model.Option {
	var opts []model.Option
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	return opts
}
