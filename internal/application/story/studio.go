package story

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/repository"
	"z-story-studio/internal/domain/service"
	apperrors "z-story-studio/pkg/errors"
	"z-story-studio/pkg/logger"
	"z-story-studio/pkg/metrics"
)

// EventPublisher 成功生成后的事件出口，可为空
type EventPublisher interface {
	PublishStory(ctx context.Context, sessionID, kind string, rec *entity.StoryRecord) error
}

type GenerateInput struct {
	SystemPrompt string
	Instruction  string
	Model        entity.ModelID
	Temperature  *float64
}

type ReviseInput struct {
	SystemPrompt        string
	RevisionInstruction string
	Model               entity.ModelID
	Temperature         *float64
}

// Studio 会话级用例入口。同一会话同一时刻只允许一个写操作
type Studio struct {
	store      repository.SessionStore
	assembler  *Assembler
	dispatcher *Dispatcher
	events     EventPublisher

	locks sync.Map // sessionID -> *sync.Mutex
}

func NewStudio(store repository.SessionStore, assembler *Assembler, dispatcher *Dispatcher, events EventPublisher) *Studio {
	return &Studio{
		store:      store,
		assembler:  assembler,
		dispatcher: dispatcher,
		events:     events,
	}
}

// StartSession 创建空会话
func (s *Studio) StartSession(ctx context.Context) (*entity.Session, error) {
	session := entity.NewSession(uuid.NewString())
	if err := s.store.Create(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to create session")
	}
	metrics.ActiveSessions.Inc()
	logger.Info(ctx, "session started", "session_id", session.ID)
	return session, nil
}

// EndSession 销毁会话及其全部记录
func (s *Studio) EndSession(ctx context.Context, sessionID string) error {
	unlock, err := s.acquire(sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		err = mapStoreError(err)
		s.forgetIfMissing(sessionID, err)
		return err
	}
	s.locks.Delete(sessionID)
	metrics.ActiveSessions.Dec()
	logger.Info(ctx, "session ended", "session_id", sessionID)
	return nil
}

func (s *Studio) Session(ctx context.Context, sessionID string) (*entity.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return session, nil
}

// Generate 新故事
// 调用一旦发出不可取消：调用方断开后仍等待结果并写入会话
func (s *Studio) Generate(ctx context.Context, sessionID string, in *GenerateInput) (*entity.StoryRecord, error) {
	if in == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("input is nil")
	}
	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conv := s.assembler.Fresh(in.SystemPrompt, in.Instruction)
	callCtx := context.WithoutCancel(ctx)
	rec, err := s.dispatcher.Dispatch(callCtx, session, &DispatchRequest{
		Kind:         service.WorkflowFresh,
		Model:        in.Model,
		Conversation: conv,
		Temperature:  in.Temperature,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(callCtx, session); err != nil {
		return nil, mapStoreError(err)
	}
	s.publish(callCtx, sessionID, service.WorkflowFresh, rec)
	return rec, nil
}

// Revise 以当前选择集为上下文生成修订，成功后清空选择集
func (s *Studio) Revise(ctx context.Context, sessionID string, in *ReviseInput) (*entity.StoryRecord, error) {
	if in == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("input is nil")
	}
	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conv, err := s.assembler.Revision(ctx, in.SystemPrompt, session.Selected(), in.RevisionInstruction)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to assemble revision")
	}
	callCtx := context.WithoutCancel(ctx)
	rec, err := s.dispatcher.Dispatch(callCtx, session, &DispatchRequest{
		Kind:         service.WorkflowRevision,
		Model:        in.Model,
		Conversation: conv,
		Temperature:  in.Temperature,
	})
	if err != nil {
		return nil, err
	}

	session.ClearSelection()
	if err := s.store.Save(callCtx, session); err != nil {
		return nil, mapStoreError(err)
	}
	s.publish(callCtx, sessionID, service.WorkflowRevision, rec)
	return rec, nil
}

// ToggleSelection 切换记录的选中状态，返回切换后状态与当前选择集
func (s *Studio) ToggleSelection(ctx context.Context, sessionID, recordID string) (bool, []string, error) {
	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return false, nil, err
	}
	defer unlock()

	selected, err := session.ToggleSelection(recordID)
	if err != nil {
		return false, nil, mapStoreError(err)
	}
	if err := s.store.Save(ctx, session); err != nil {
		return false, nil, mapStoreError(err)
	}
	return selected, session.Selection, nil
}

func (s *Studio) ClearSelection(ctx context.Context, sessionID string) error {
	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	session.ClearSelection()
	if err := s.store.Save(ctx, session); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// Selection 按选择顺序返回被选中的记录
func (s *Studio) Selection(ctx context.Context, sessionID string) ([]*entity.StoryRecord, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Selected(), nil
}

// Stories 默认最早在前；newestFirst 仅用于展示。同时返回同一快照中的选择集
func (s *Studio) Stories(ctx context.Context, sessionID string, newestFirst bool) ([]*entity.StoryRecord, []string, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	records := session.All()
	if newestFirst {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}
	return records, session.Selection, nil
}

// Story 单条记录及其是否被选中
func (s *Studio) Story(ctx context.Context, sessionID, recordID string) (*entity.StoryRecord, bool, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	rec, ok := session.Record(recordID)
	if !ok {
		return nil, false, apperrors.ErrRecordNotFound.WithDetail(fmt.Sprintf("record %s not found", recordID))
	}
	return rec, session.IsSelected(recordID), nil
}

// lockSession 加锁后读取会话；会话不存在时释放锁并移除锁条目
func (s *Studio) lockSession(ctx context.Context, sessionID string) (*entity.Session, func(), error) {
	unlock, err := s.acquire(sessionID)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		unlock()
		s.forgetIfMissing(sessionID, err)
		return nil, nil, err
	}
	return session, unlock, nil
}

// forgetIfMissing 未知或已过期的会话不保留锁条目
func (s *Studio) forgetIfMissing(sessionID string, err error) {
	if apperrors.HasCode(err, apperrors.CodeSessionNotFound) {
		s.locks.Delete(sessionID)
	}
}

// acquire 非阻塞加锁，会话正忙时直接返回冲突
func (s *Studio) acquire(sessionID string) (func(), error) {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, apperrors.ErrGenerationInProgress
	}
	return mu.Unlock, nil
}

func (s *Studio) publish(ctx context.Context, sessionID, kind string, rec *entity.StoryRecord) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishStory(ctx, sessionID, kind, rec); err != nil {
		logger.Warn(ctx, "failed to publish story event", "session_id", sessionID, "record_id", rec.ID, "error", err.Error())
	}
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, repository.ErrSessionNotFound):
		return apperrors.ErrSessionNotFound.WithError(err)
	case stderrors.Is(err, entity.ErrUnknownRecord):
		return apperrors.ErrRecordNotFound.WithError(err)
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.Wrap(err, apperrors.CodeCacheError, "session store error")
	}
}
