package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"z-story-studio/internal/config"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/service"
)

const defaultMessagesMaxTokens = 4000

// MessagesBackend messages 家族：系统提示为独立参数，忽略 temperature
type MessagesBackend struct {
	baseURL   string
	timeout   time.Duration
	maxTokens int64

	mu      sync.Mutex
	clients map[string]*anthropic.Client
}

// NewMessagesBackend 创建 messages 后端
func NewMessagesBackend(cfg *config.Config) *MessagesBackend {
	providerCfg := cfg.LLM.Providers[config.ProviderAnthropic]
	maxTokens := int64(providerCfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMessagesMaxTokens
	}
	return &MessagesBackend{
		baseURL:   providerCfg.BaseURL,
		timeout:   providerCfg.Timeout,
		maxTokens: maxTokens,
		clients:   make(map[string]*anthropic.Client),
	}
}

func (b *MessagesBackend) client(apiKey string) *anthropic.Client {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.clients[apiKey]; ok {
		return c
	}

	// 失败不重试，由用户重新发起
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if b.baseURL != "" {
		opts = append(opts, option.WithBaseURL(b.baseURL))
	}
	if b.timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(b.timeout))
	}

	c := anthropic.NewClient(opts...)
	b.clients[apiKey] = &c
	return &c
}

// Complete 发起一次生成
func (b *MessagesBackend) Complete(ctx context.Context, req *service.CompletionRequest) (*service.Completion, error) {
	msgs, err := buildAnthropicMessages(req.Turns)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.ProviderModel),
		MaxTokens: b.maxTokens,
		Messages:  msgs,
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := b.client(req.APIKey).Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("provider returned an empty completion")
	}

	return &service.Completion{
		Text:             text,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func buildAnthropicMessages(turns []entity.Turn) ([]anthropic.MessageParam, error) {
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case entity.RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case entity.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		default:
			return nil, fmt.Errorf("unsupported turn role %q", t.Role)
		}
	}
	return msgs, nil
}
