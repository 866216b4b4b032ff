// Package entity 定义领域实体
package entity

// Role 对话角色枚举
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 发送给模型的一轮对话，角色只能是 user 或 assistant
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UserTurn 构造用户轮次
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AssistantTurn 构造助手轮次
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}
