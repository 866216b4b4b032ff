package entity

import (
	"time"
)

// StoryRecord 一次成功生成的故事，创建后不可变
type StoryRecord struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Instruction  string    `json:"instruction"`
	SystemPrompt string    `json:"system_prompt"`
	Model        ModelID   `json:"model"`
	// Temperature 仅 chat-completion 家族存在，nil 表示不适用
	Temperature *float64 `json:"temperature,omitempty"`
	Content     string   `json:"content"`
	// DerivedFrom 修订所依据的记录，按选择顺序
	DerivedFrom []string `json:"derived_from"`
}

// Clone 深拷贝
func (r *StoryRecord) Clone() *StoryRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Temperature != nil {
		t := *r.Temperature
		cp.Temperature = &t
	}
	cp.DerivedFrom = append([]string{}, r.DerivedFrom...)
	return &cp
}
