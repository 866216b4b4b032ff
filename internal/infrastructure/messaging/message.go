// Package messaging 提供基于 Redis Stream 的事件发布
package messaging

import (
	"encoding/json"
	"time"

	"z-story-studio/internal/domain/entity"
)

// 事件类型
const (
	TypeStoryGenerated = "story.generated"
	TypeStoryRevised   = "story.revised"
)

// DefaultStream 未配置时使用的流名称
const DefaultStream = "stream:story:events"

// Message 消息结构
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(id, msgType, sessionID string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		SessionID: sessionID,
		Payload:   payloadBytes,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// StoryEvent 成功生成后发布的载荷
type StoryEvent struct {
	SessionID   string         `json:"session_id"`
	RecordID    string         `json:"record_id"`
	Model       entity.ModelID `json:"model"`
	Temperature *float64       `json:"temperature,omitempty"`
	DerivedFrom []string       `json:"derived_from"`
	WordCount   int            `json:"word_count"`
	CreatedAt   time.Time      `json:"created_at"`
}
