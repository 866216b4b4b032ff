package dto

import (
	"fmt"
	"time"
	"unicode/utf8"

	"z-story-studio/internal/domain/entity"
)

const (
	timeLayout     = "2006-01-02 15:04:05"
	titlePreviewLn = 50
)

// GenerateStoryRequest 新故事请求
type GenerateStoryRequest struct {
	SystemPrompt string   `json:"system_prompt"`
	Instruction  string   `json:"instruction"`
	Model        string   `json:"model" binding:"required"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// ReviseStoryRequest 修订请求，上下文取自当前选择集
type ReviseStoryRequest struct {
	SystemPrompt        string   `json:"system_prompt"`
	RevisionInstruction string   `json:"revision_instruction"`
	Model               string   `json:"model" binding:"required"`
	Temperature         *float64 `json:"temperature,omitempty"`
}

// SessionResponse 会话概要
type SessionResponse struct {
	ID         string   `json:"id"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
	StoryCount int      `json:"story_count"`
	Selection  []string `json:"selection"`
}

// StoryResponse 单条故事记录
type StoryResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	CreatedAt    string   `json:"created_at"`
	Instruction  string   `json:"instruction"`
	SystemPrompt string   `json:"system_prompt"`
	Model        string   `json:"model"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Content      string   `json:"content"`
	DerivedFrom  []string `json:"derived_from"`
	Selected     bool     `json:"selected"`
}

// StoryListResponse 故事列表
type StoryListResponse struct {
	Stories []*StoryResponse `json:"stories"`
	Total   int              `json:"total"`
}

// SelectionResponse 选择集
type SelectionResponse struct {
	Selection []string         `json:"selection"`
	Stories   []*StoryResponse `json:"stories,omitempty"`
}

// ToggleSelectionResponse 切换结果
type ToggleSelectionResponse struct {
	StoryID   string   `json:"story_id"`
	Selected  bool     `json:"selected"`
	Selection []string `json:"selection"`
}

// ModelResponse 可选模型
type ModelResponse struct {
	ID                  string `json:"id"`
	Family              string `json:"family"`
	ProviderModel       string `json:"provider_model"`
	SupportsTemperature bool   `json:"supports_temperature"`
	Available           bool   `json:"available"`
	UnavailableReason   string `json:"unavailable_reason,omitempty"`
	InputPrice          string `json:"input_price"`
	OutputPrice         string `json:"output_price"`
}

// UIDefaultsResponse 页面预填内容
type UIDefaultsResponse struct {
	SystemPrompt         string  `json:"system_prompt"`
	Instruction          string  `json:"instruction"`
	RevisionSystemPrompt string  `json:"revision_system_prompt"`
	RevisionInstruction  string  `json:"revision_instruction"`
	Temperature          float64 `json:"temperature"`
	MinTemperature       float64 `json:"min_temperature"`
	MaxTemperature       float64 `json:"max_temperature"`
	TemperatureStep      float64 `json:"temperature_step"`
}

// ToSessionResponse 转换会话
func ToSessionResponse(s *entity.Session) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:         s.ID,
		CreatedAt:  formatTime(s.CreatedAt),
		UpdatedAt:  formatTime(s.UpdatedAt),
		StoryCount: s.Len(),
		Selection:  append([]string{}, s.Selection...),
	}
}

// ToStoryResponse 转换记录；selected 由调用方根据选择集给出
func ToStoryResponse(r *entity.StoryRecord, selected bool) *StoryResponse {
	if r == nil {
		return nil
	}
	resp := &StoryResponse{
		ID:           r.ID,
		Title:        StoryTitle(r),
		CreatedAt:    formatTime(r.CreatedAt),
		Instruction:  r.Instruction,
		SystemPrompt: r.SystemPrompt,
		Model:        string(r.Model),
		Content:      r.Content,
		DerivedFrom:  append([]string{}, r.DerivedFrom...),
		Selected:     selected,
	}
	if r.Temperature != nil {
		t := *r.Temperature
		resp.Temperature = &t
	}
	return resp
}

// ToStoryListResponse 转换记录列表
func ToStoryListResponse(records []*entity.StoryRecord, selection []string) *StoryListResponse {
	selected := make(map[string]struct{}, len(selection))
	for _, id := range selection {
		selected[id] = struct{}{}
	}

	out := make([]*StoryResponse, 0, len(records))
	for _, r := range records {
		_, ok := selected[r.ID]
		out = append(out, ToStoryResponse(r, ok))
	}
	return &StoryListResponse{Stories: out, Total: len(out)}
}

// StoryTitle 列表标题："{时间} - {指令前 50 字}..."
func StoryTitle(r *entity.StoryRecord) string {
	preview := r.Instruction
	if utf8.RuneCountInString(preview) > titlePreviewLn {
		preview = string([]rune(preview)[:titlePreviewLn])
	}
	return fmt.Sprintf("%s - %s...", formatTime(r.CreatedAt), preview)
}

// ToModelResponse 转换模型目录条目，可用性由凭证决定
func ToModelResponse(spec entity.ModelSpec, available bool, reason string) *ModelResponse {
	return &ModelResponse{
		ID:                  string(spec.ID),
		Family:              string(spec.Family),
		ProviderModel:       spec.ProviderModel,
		SupportsTemperature: spec.SupportsTemperature(),
		Available:           available,
		UnavailableReason:   reason,
		InputPrice:          spec.InputPrice,
		OutputPrice:         spec.OutputPrice,
	}
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}
