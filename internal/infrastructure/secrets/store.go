// Package secrets 提供提供商凭证的键值读取
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"z-story-studio/internal/config"
	"z-story-studio/internal/domain/entity"
)

// Store 凭证存储：可选的 TOML 文件，环境变量优先
type Store struct {
	v    *viper.Viper
	keys map[entity.BackendFamily][]string
}

// NewStore 创建凭证存储，path 指向的文件不存在时仅使用环境变量
func NewStore(path string, keys map[entity.BackendFamily][]string) (*Store, error) {
	v := viper.New()
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read secrets file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat secrets file %s: %w", path, err)
		}
	}

	return &Store{v: v, keys: keys}, nil
}

// NewStoreFromConfig 按 LLM 配置创建凭证存储
func NewStoreFromConfig(cfg *config.LLMConfig) (*Store, error) {
	keys := map[entity.BackendFamily][]string{
		entity.FamilyChatCompletion: cfg.Providers[config.ProviderOpenAI].SecretKeys,
		entity.FamilyMessages:       cfg.Providers[config.ProviderAnthropic].SecretKeys,
	}
	return NewStore(cfg.SecretsFile, keys)
}

// Lookup 读取单个键
func (s *Store) Lookup(key string) (string, bool) {
	val := strings.TrimSpace(s.v.GetString(key))
	return val, val != ""
}

// Credential 按配置的键名顺序查找家族凭证
func (s *Store) Credential(family entity.BackendFamily) (string, bool) {
	for _, key := range s.keys[family] {
		if val, ok := s.Lookup(key); ok {
			return val, true
		}
	}
	return "", false
}

// KeyName 家族的首选键名，用于提示
func (s *Store) KeyName(family entity.BackendFamily) string {
	if keys := s.keys[family]; len(keys) > 0 {
		return keys[0]
	}
	return ""
}
