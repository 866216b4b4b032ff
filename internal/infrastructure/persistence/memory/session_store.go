// Package memory 提供进程内存储实现
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/repository"
)

type sessionEntry struct {
	session   *entity.Session
	expiresAt time.Time
}

// SessionStore 进程内会话存储，空闲超过 TTL 的会话在访问时清理
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore 创建内存会话存储
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create 保存新会话
func (s *SessionStore) Create(ctx context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = s.entryLocked(session)
	return nil
}

// Get 返回会话副本
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || s.expiredLocked(e) {
		delete(s.sessions, id)
		return nil, repository.ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

// Save 覆盖保存并刷新过期时间
func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[session.ID]
	if !ok || s.expiredLocked(e) {
		delete(s.sessions, session.ID)
		return repository.ErrSessionNotFound
	}
	s.sessions[session.ID] = s.entryLocked(session)
	return nil
}

// Delete 销毁会话
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	delete(s.sessions, id)
	if !ok || s.expiredLocked(e) {
		return repository.ErrSessionNotFound
	}
	return nil
}

// Len 当前未过期的会话数
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	return len(s.sessions)
}

func (s *SessionStore) entryLocked(session *entity.Session) *sessionEntry {
	return &sessionEntry{
		session:   session.Clone(),
		expiresAt: s.now().Add(s.ttl),
	}
}

func (s *SessionStore) expiredLocked(e *sessionEntry) bool {
	return s.ttl > 0 && !s.now().Before(e.expiresAt)
}

func (s *SessionStore) sweepLocked() {
	for id, e := range s.sessions {
		if s.expiredLocked(e) {
			delete(s.sessions, id)
		}
	}
}
