// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
	UI            UIConfig            `yaml:"ui" mapstructure:"ui"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// SessionBackend 会话存储后端
type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendRedis  SessionBackend = "redis"
)

// SessionConfig 会话存储配置
type SessionConfig struct {
	Backend SessionBackend `yaml:"backend" mapstructure:"backend"`
	// TTL 会话空闲过期时间，每次保存时刷新
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// SecretsFile 可选的 TOML 凭证文件，环境变量优先
	SecretsFile string                    `yaml:"secrets_file" mapstructure:"secrets_file"`
	Providers   map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	// Models 为空时使用内置模型目录
	Models []ModelConfig `yaml:"models" mapstructure:"models"`
}

// 提供商名称，与后端家族一一对应
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// SecretKeys 按顺序查找的凭证键名
	SecretKeys []string      `yaml:"secret_keys" mapstructure:"secret_keys"`
	MaxTokens  int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ModelConfig 模型目录条目
type ModelConfig struct {
	ID            string `yaml:"id" mapstructure:"id"`
	Family        string `yaml:"family" mapstructure:"family"`
	ProviderModel string `yaml:"provider_model" mapstructure:"provider_model"`
	InputPrice    string `yaml:"input_price" mapstructure:"input_price"`
	OutputPrice   string `yaml:"output_price" mapstructure:"output_price"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Stream  string `yaml:"stream" mapstructure:"stream"`
	MaxLen  int    `yaml:"max_len" mapstructure:"max_len"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// UIConfig 页面预填内容，留空时使用内置模板
type UIConfig struct {
	DefaultSystemPrompt         string  `yaml:"default_system_prompt" mapstructure:"default_system_prompt"`
	DefaultInstruction          string  `yaml:"default_instruction" mapstructure:"default_instruction"`
	DefaultRevisionSystemPrompt string  `yaml:"default_revision_system_prompt" mapstructure:"default_revision_system_prompt"`
	DefaultRevisionInstruction  string  `yaml:"default_revision_instruction" mapstructure:"default_revision_instruction"`
	DefaultTemperature          float64 `yaml:"default_temperature" mapstructure:"default_temperature"`
}
