package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/internal/storage"
	"github.com/lcc-star/rag-pdf/pkg/logger"
)

const (
	defaultSessionTitle = "新对话"
	titleRuneBudget     = 20
)

// ConversationService 管理全部会话与当前活动会话。
// 所有变更同步写穿到SessionStore之后才返回；共享状态只在持锁时访问。
type ConversationService struct {
	store storage.SessionStore

	mu       sync.RWMutex
	sessions map[string]*model.Session
	activeID string
	now      func() time.Time
}

// NewConversationService 恢复持久化的会话集合并创建一个新的草稿会话作为活动会话。
// 存档缺失或损坏由存储层兜底为空集合，这里不会失败退出
func NewConversationService(store storage.SessionStore) *ConversationService {
	sessions, err := store.Load()
	if err != nil {
		logger.Warnf("恢复会话失败，使用空集合: %v", err)
		sessions = make(map[string]*model.Session)
	}

	s := &ConversationService{
		store:    store,
		sessions: sessions,
		now:      time.Now,
	}

	s.mu.Lock()
	s.createSessionLocked()
	s.mu.Unlock()

	return s
}

// CreateSession 创建新会话并切换为活动会话
func (s *ConversationService) CreateSession() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSessionLocked().Clone()
}

func (s *ConversationService) createSessionLocked() *model.Session {
	nowMillis := s.now().UnixMilli()

	// chat-<毫秒时间戳>：不透明且按时间有序；同毫秒内创建时顺延保证唯一
	id := fmt.Sprintf("chat-%d", nowMillis)
	for _, exists := s.sessions[id]; exists; _, exists = s.sessions[id] {
		nowMillis++
		id = fmt.Sprintf("chat-%d", nowMillis)
	}

	session := &model.Session{
		ID:        id,
		Title:     defaultSessionTitle,
		Messages:  make([]model.Message, 0),
		CreatedAt: nowMillis,
		UpdatedAt: nowMillis,
	}
	s.sessions[id] = session
	s.activeID = id

	if err := s.persistLocked(); err != nil {
		logger.Errorf("持久化新会话失败: %v", err)
	}
	return session
}

// ActiveSession 返回当前活动会话的副本
func (s *ConversationService) ActiveSession() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[s.activeID]
	if !exists {
		return nil
	}
	return session.Clone()
}

// Session 按ID获取会话副本
func (s *ConversationService) Session(id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, id)
	}
	return session.Clone(), nil
}

// SwitchTo 切换活动会话，未知ID返回ErrSessionNotFound
func (s *ConversationService) SwitchTo(id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, id)
	}

	s.activeID = id
	return session.Clone(), nil
}

// AppendMessage 向活动会话追加一条消息。消息一经追加不可变更；
// 时间戳取当前时间，且在会话内保证单调不减。
// 首条用户提问会在默认标题上派生会话标题
func (s *ConversationService) AppendMessage(role, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[s.activeID]
	if !exists {
		session = s.createSessionLocked()
	}

	timestamp := s.now().UnixMilli()
	if last := session.LastMessageAt(); timestamp < last {
		timestamp = last
	}

	message := model.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: timestamp,
	}
	session.Messages = append(session.Messages, message)
	session.UpdatedAt = timestamp

	if role == model.RoleUser && session.Title == defaultSessionTitle {
		session.Title = deriveTitle(content)
	}

	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return &message, nil
}

// ListSessionsByRecency 按最后一条消息的时间倒序返回会话。
// 没有任何消息的会话是"草稿"，不出现在列表里
func (s *ConversationService) ListSessionsByRecency() []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if !session.HasMessages() {
			continue
		}
		sessions = append(sessions, session.Clone())
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt() > sessions[j].LastMessageAt()
	})

	return sessions
}

func (s *ConversationService) persistLocked() error {
	if err := s.store.Save(s.sessions); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}

// deriveTitle 截取问题前20个字符作为标题，超长时追加省略号
func deriveTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= titleRuneBudget {
		return question
	}
	return string(runes[:titleRuneBudget]) + "..."
}
