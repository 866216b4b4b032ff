package service

import (
	"context"

	"z-story-studio/internal/domain/entity"
)

// CompletionRequest 一次文本生成请求，已按家族解析好模型
type CompletionRequest struct {
	APIKey        string
	ProviderModel string
	// SystemPrompt 与轮次分离，由后端按协议放置
	SystemPrompt string
	Turns        []entity.Turn
	// Temperature 为 nil 时不下发
	Temperature *float64
}

// Completion 提供商返回的单条文本
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// CompletionBackend 某一协议家族的文本生成后端
type CompletionBackend interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
