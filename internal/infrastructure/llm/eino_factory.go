// Package llm 提供两个协议家族的文本生成后端
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"z-story-studio/internal/config"
)

// EinoFactory 按模型与凭证缓存 Eino ChatModel 实例
type EinoFactory struct {
	config config.ProviderConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: cfg.LLM.Providers[config.ProviderOpenAI],
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定模型的 ChatModel，凭证变化时创建新实例
func (f *EinoFactory) Get(ctx context.Context, providerModel, apiKey string) (model.BaseChatModel, error) {
	cacheKey := providerModel + "\x00" + apiKey

	f.mu.RLock()
	m, ok := f.models[cacheKey]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[cacheKey]; ok {
		return m, nil
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: f.config.BaseURL,
		Model:   providerModel,
		Timeout: f.config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", providerModel, err)
	}

	f.models[cacheKey] = chatModel
	return chatModel, nil
}
