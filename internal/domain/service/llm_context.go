// Package service 定义领域服务契约
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyModel    llmCtxKey = "llm_model"
)

// 生成类型，作为 workflow 标签
const (
	WorkflowFresh    = "fresh"
	WorkflowRevision = "revision"
)

// WithWorkflow 在 ctx 上记录本次调用的生成类型
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

// WithModel 在 ctx 上记录页面选择的模型标识
func WithModel(ctx context.Context, model string) context.Context {
	m := strings.TrimSpace(model)
	if m == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyModel, m)
}

func WorkflowFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyWorkflow)
}

func ModelFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyModel)
}

func stringFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
