package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/repository"
)

// SessionStore 以 JSON 文档保存会话，TTL 在每次保存时刷新
type SessionStore struct {
	client    *Client
	ttl       time.Duration
	keyPrefix string
}

// NewSessionStore 创建 Redis 会话存储
func NewSessionStore(client *Client, ttl time.Duration, keyPrefix string) *SessionStore {
	if keyPrefix == "" {
		keyPrefix = "story:session:"
	}
	return &SessionStore{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

func (s *SessionStore) key(id string) string {
	return s.keyPrefix + id
}

// Create 保存新会话
func (s *SessionStore) Create(ctx context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	return nil
}

// Get 读取会话
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	data, err := s.client.GetBytes(ctx, s.key(id))
	if err != nil {
		if IsNil(err) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Records == nil {
		session.Records = []*entity.StoryRecord{}
	}
	if session.Selection == nil {
		session.Selection = []string{}
	}
	return &session, nil
}

// Save 覆盖保存会话，已过期的会话不会被复活
func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.key(session.ID), data, s.ttl)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		return repository.ErrSessionNotFound
	}
	return nil
}

// Delete 销毁会话
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}
