// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"github.com/google/wire"

	"z-story-studio/internal/application/story"
	"z-story-studio/internal/config"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/repository"
	"z-story-studio/internal/domain/service"
	"z-story-studio/internal/infrastructure/llm"
	"z-story-studio/internal/infrastructure/messaging"
	"z-story-studio/internal/infrastructure/persistence/memory"
	"z-story-studio/internal/infrastructure/persistence/redis"
	"z-story-studio/internal/infrastructure/secrets"
	"z-story-studio/internal/interfaces/http/handler"
	"z-story-studio/internal/interfaces/http/router"
	workflowprompt "z-story-studio/internal/workflow/prompt"
	"z-story-studio/pkg/logger"
)

// DataSet 会话存储与事件流
var DataSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideSessionStore,
	ProvideEventPublisher,
)

// LLMSet 模型目录、凭证与两类后端
var LLMSet = wire.NewSet(
	ProvideCatalog,
	ProvideSecretsStore,
	wire.Bind(new(story.CredentialSource), new(*secrets.Store)),
	llm.NewEinoFactory,
	llm.NewChatCompletionBackend,
	llm.NewMessagesBackend,
	ProvideBackends,
)

// StorySet 应用层
var StorySet = wire.NewSet(
	workflowprompt.NewRegistry,
	story.NewAssembler,
	ProvideDispatcher,
	story.NewStudio,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewSessionHandler,
	handler.NewStoryHandler,
	handler.NewSelectionHandler,
	handler.NewModelHandler,
	ProvideUIHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvideRedisClientOptional 仅在 redis 会话或事件流启用时连接
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.NeedsRedis() {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "redis connected", "host", cfg.Cache.Redis.Host, "port", cfg.Cache.Redis.Port)
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSessionStore 按配置选择会话存储后端
func ProvideSessionStore(cfg *config.Config, client *redis.Client) (repository.SessionStore, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("session backend redis requires a redis client")
		}
		return redis.NewSessionStore(client, cfg.Session.TTL, cfg.Session.KeyPrefix), nil
	default:
		return memory.NewSessionStore(cfg.Session.TTL), nil
	}
}

// ProvideEventPublisher 事件流关闭时返回 nil 接口
func ProvideEventPublisher(cfg *config.Config, client *redis.Client) story.EventPublisher {
	rs := cfg.Messaging.RedisStream
	if !rs.Enabled || client == nil {
		return nil
	}
	return messaging.NewProducer(client.Redis(), rs.Stream, int64(rs.MaxLen))
}

// ProvideCatalog 配置未声明模型时使用内置目录
func ProvideCatalog(cfg *config.Config) (*entity.Catalog, error) {
	if len(cfg.LLM.Models) == 0 {
		return entity.DefaultCatalog(), nil
	}
	specs := make([]entity.ModelSpec, 0, len(cfg.LLM.Models))
	for _, m := range cfg.LLM.Models {
		specs = append(specs, entity.ModelSpec{
			ID:            entity.ModelID(m.ID),
			Family:        entity.BackendFamily(m.Family),
			ProviderModel: m.ProviderModel,
			InputPrice:    m.InputPrice,
			OutputPrice:   m.OutputPrice,
		})
	}
	return entity.NewCatalog(specs)
}

func ProvideSecretsStore(cfg *config.Config) (*secrets.Store, error) {
	return secrets.NewStoreFromConfig(&cfg.LLM)
}

// ProvideBackends 家族到后端的映射
func ProvideBackends(chat *llm.ChatCompletionBackend, messages *llm.MessagesBackend) map[entity.BackendFamily]service.CompletionBackend {
	return map[entity.BackendFamily]service.CompletionBackend{
		entity.FamilyChatCompletion: chat,
		entity.FamilyMessages:       messages,
	}
}

func ProvideDispatcher(
	catalog *entity.Catalog,
	creds story.CredentialSource,
	backends map[entity.BackendFamily]service.CompletionBackend,
	cfg *config.Config,
) *story.Dispatcher {
	return story.NewDispatcher(catalog, creds, backends, cfg.UI.DefaultTemperature)
}

func ProvideHealthHandler(cfg *config.Config, client *redis.Client, creds story.CredentialSource) *handler.HealthHandler {
	return handler.NewHealthHandler(client, creds, cfg.App.Version)
}

func ProvideUIHandler(cfg *config.Config, prompts *workflowprompt.Registry) *handler.UIHandler {
	return handler.NewUIHandler(cfg.UI, prompts)
}
