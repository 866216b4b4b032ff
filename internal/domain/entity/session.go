package entity

import (
	"errors"
	"time"
)

// ErrUnknownRecord 会话中不存在该记录
var ErrUnknownRecord = errors.New("story record not in session")

// Session 单个用户会话的上下文：只追加的记录列表与当前选择集
type Session struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Records   []*StoryRecord `json:"records"`
	// Selection 被选中记录的 ID，按加入顺序
	Selection []string `json:"selection"`
}

// NewSession 创建空会话
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Records:   []*StoryRecord{},
		Selection: []string{},
	}
}

// Append 追加记录
func (s *Session) Append(rec *StoryRecord) {
	s.Records = append(s.Records, rec)
	s.UpdatedAt = time.Now()
}

// All 按创建顺序返回记录（最早在前）
func (s *Session) All() []*StoryRecord {
	out := make([]*StoryRecord, len(s.Records))
	copy(out, s.Records)
	return out
}

// Len 记录数
func (s *Session) Len() int {
	return len(s.Records)
}

// Record 按 ID 查找记录
func (s *Session) Record(id string) (*StoryRecord, bool) {
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// IsSelected 记录是否在选择集中
func (s *Session) IsSelected(id string) bool {
	return indexOf(s.Selection, id) >= 0
}

// ToggleSelection 不在选择集则加入，已在则移除；返回切换后的状态
func (s *Session) ToggleSelection(id string) (bool, error) {
	if _, ok := s.Record(id); !ok {
		return false, ErrUnknownRecord
	}
	s.UpdatedAt = time.Now()
	if i := indexOf(s.Selection, id); i >= 0 {
		s.Selection = append(s.Selection[:i], s.Selection[i+1:]...)
		return false, nil
	}
	s.Selection = append(s.Selection, id)
	return true, nil
}

// ClearSelection 清空选择集
func (s *Session) ClearSelection() {
	s.Selection = []string{}
	s.UpdatedAt = time.Now()
}

// Selected 按选择顺序返回被选中的记录
func (s *Session) Selected() []*StoryRecord {
	out := make([]*StoryRecord, 0, len(s.Selection))
	for _, id := range s.Selection {
		if r, ok := s.Record(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// Clone 深拷贝，供存储层隔离调用方修改
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Records = make([]*StoryRecord, len(s.Records))
	for i, r := range s.Records {
		cp.Records[i] = r.Clone()
	}
	cp.Selection = append([]string{}, s.Selection...)
	return &cp
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
