package entity

import (
	"fmt"
	"strings"
)

// ModelID 页面可选的模型标识
type ModelID string

const (
	ModelGPT4o        ModelID = "gpt-4o"
	ModelGPT4oMini    ModelID = "gpt-4o-mini"
	ModelGPT45Preview ModelID = "gpt-4.5-preview"
	ModelO1           ModelID = "o1"
)

// BackendFamily 提供商协议家族
type BackendFamily string

const (
	// FamilyChatCompletion 系统提示作为首条消息，支持 temperature
	FamilyChatCompletion BackendFamily = "chat_completion"
	// FamilyMessages 系统提示为独立参数，不支持 temperature
	FamilyMessages BackendFamily = "messages"
)

// Valid 是否为已知家族
func (f BackendFamily) Valid() bool {
	return f == FamilyChatCompletion || f == FamilyMessages
}

// ModelSpec 模型目录条目
type ModelSpec struct {
	ID            ModelID       `json:"id"`
	Family        BackendFamily `json:"family"`
	ProviderModel string        `json:"provider_model"`
	InputPrice    string        `json:"input_price,omitempty"`
	OutputPrice   string        `json:"output_price,omitempty"`
}

// SupportsTemperature 仅 chat-completion 家族接受采样温度
func (s ModelSpec) SupportsTemperature() bool {
	return s.Family == FamilyChatCompletion
}

// Catalog 封闭的模型目录，保持声明顺序
type Catalog struct {
	order []ModelID
	specs map[ModelID]ModelSpec
}

// DefaultModels 内置模型目录
func DefaultModels() []ModelSpec {
	return []ModelSpec{
		{ID: ModelGPT4o, Family: FamilyChatCompletion, ProviderModel: "gpt-4o", InputPrice: "$10.00 per 1M tokens", OutputPrice: "$30.00 per 1M tokens"},
		{ID: ModelGPT4oMini, Family: FamilyChatCompletion, ProviderModel: "gpt-4o-mini", InputPrice: "$0.15 per 1M tokens", OutputPrice: "$0.60 per 1M tokens"},
		{ID: ModelGPT45Preview, Family: FamilyChatCompletion, ProviderModel: "gpt-4.5-preview", InputPrice: "$5.00 per 1M tokens", OutputPrice: "$15.00 per 1M tokens"},
		{ID: ModelO1, Family: FamilyMessages, ProviderModel: "claude-3-opus-20240229", InputPrice: "$15.00 per 1M tokens", OutputPrice: "$75.00 per 1M tokens"},
	}
}

// DefaultCatalog 返回内置模型目录
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultModels())
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog 创建模型目录
func NewCatalog(specs []ModelSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}
	c := &Catalog{specs: make(map[ModelID]ModelSpec, len(specs))}
	for _, s := range specs {
		s.ID = ModelID(strings.TrimSpace(string(s.ID)))
		if s.ID == "" {
			return nil, fmt.Errorf("model id is required")
		}
		if !s.Family.Valid() {
			return nil, fmt.Errorf("model %s: unknown backend family %q", s.ID, s.Family)
		}
		if _, dup := c.specs[s.ID]; dup {
			return nil, fmt.Errorf("model %s declared twice", s.ID)
		}
		if strings.TrimSpace(s.ProviderModel) == "" {
			s.ProviderModel = string(s.ID)
		}
		c.order = append(c.order, s.ID)
		c.specs[s.ID] = s
	}
	return c, nil
}

// Lookup 按标识查找模型
func (c *Catalog) Lookup(id ModelID) (ModelSpec, bool) {
	s, ok := c.specs[id]
	return s, ok
}

// All 按声明顺序返回全部模型
func (c *Catalog) All() []ModelSpec {
	out := make([]ModelSpec, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.specs[id])
	}
	return out
}
