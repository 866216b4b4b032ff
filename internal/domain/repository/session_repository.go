// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"

	"z-story-studio/internal/domain/entity"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("session not found")

// SessionStore 会话存储，每个会话的记录与选择集彼此隔离
type SessionStore interface {
	// Create 保存新会话，ID 已存在时返回错误
	Create(ctx context.Context, session *entity.Session) error
	// Get 返回会话副本，不存在时返回 ErrSessionNotFound
	Get(ctx context.Context, id string) (*entity.Session, error)
	// Save 覆盖保存会话并刷新过期时间
	Save(ctx context.Context, session *entity.Session) error
	// Delete 销毁会话，不存在时返回 ErrSessionNotFound
	Delete(ctx context.Context, id string) error
}
