package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/internal/storage"
)

func fixedClock(millis int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(millis) }
}

func TestCreateSessionIDsUnique(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())
	s.now = fixedClock(1700000000000)

	first := s.CreateSession()
	second := s.CreateSession()

	assert.Equal(t, "chat-1700000000000", first.ID)
	// 同一毫秒内创建时顺延时间戳保证ID唯一
	assert.Equal(t, "chat-1700000000001", second.ID)
	assert.Equal(t, defaultSessionTitle, second.Title)
}

func TestAppendMessageRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewConversationService(store)
	s.now = fixedClock(1700000000000)

	session := s.CreateSession()
	userMsg, err := s.AppendMessage(model.RoleUser, "第七页讲了什么？")
	require.NoError(t, err)
	botMsg, err := s.AppendMessage(model.RoleBot, "第七页介绍了归并排序。")
	require.NoError(t, err)

	// 重启后恢复的会话与追加时完全一致
	restored := NewConversationService(store)
	got, err := restored.Session(session.ID)
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, *userMsg, got.Messages[0])
	assert.Equal(t, *botMsg, got.Messages[1])
	assert.Equal(t, "第七页讲了什么？", got.Title)
}

func TestAppendMessageTimestampsMonotonic(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())

	s.now = fixedClock(1700000000500)
	first, err := s.AppendMessage(model.RoleUser, "第一条")
	require.NoError(t, err)

	// 时钟回拨时后续消息的时间戳不会倒退
	s.now = fixedClock(1700000000100)
	second, err := s.AppendMessage(model.RoleBot, "第二条")
	require.NoError(t, err)

	assert.Equal(t, int64(1700000000500), first.Timestamp)
	assert.Equal(t, int64(1700000000500), second.Timestamp)
}

func TestTitleDerivation(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())

	long := strings.Repeat("问", 25)
	_, err := s.AppendMessage(model.RoleUser, long)
	require.NoError(t, err)

	active := s.ActiveSession()
	assert.Equal(t, strings.Repeat("问", 20)+"...", active.Title)

	// 标题只派生一次，后续提问不再改写
	_, err = s.AppendMessage(model.RoleUser, "另一个问题")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("问", 20)+"...", s.ActiveSession().Title)
}

func TestTitleNotDerivedFromSystemMessage(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())

	_, err := s.AppendMessage(model.RoleSystem, "已成功上传PPT/PDF文件，您现在可以开始提问了！")
	require.NoError(t, err)
	assert.Equal(t, defaultSessionTitle, s.ActiveSession().Title)

	_, err = s.AppendMessage(model.RoleUser, "真正的问题")
	require.NoError(t, err)
	assert.Equal(t, "真正的问题", s.ActiveSession().Title)
}

func TestSwitchToUnknownSession(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())

	_, err := s.SwitchTo("chat-404")
	assert.True(t, errors.Is(err, storage.ErrSessionNotFound))

	_, err = s.Session("chat-404")
	assert.True(t, errors.Is(err, storage.ErrSessionNotFound))
}

func TestSwitchToKeepsMessages(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())

	first := s.ActiveSession()
	_, err := s.AppendMessage(model.RoleUser, "旧会话的问题")
	require.NoError(t, err)

	s.CreateSession()
	_, err = s.AppendMessage(model.RoleUser, "新会话的问题")
	require.NoError(t, err)

	got, err := s.SwitchTo(first.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "旧会话的问题", got.Messages[0].Content)
	assert.Equal(t, first.ID, s.ActiveSession().ID)
}

func TestListSessionsByRecency(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())

	s.now = fixedClock(1700000000100)
	older := s.CreateSession()
	_, err := s.AppendMessage(model.RoleUser, "先问的")
	require.NoError(t, err)

	s.now = fixedClock(1700000000200)
	newer := s.CreateSession()
	_, err = s.AppendMessage(model.RoleUser, "后问的")
	require.NoError(t, err)

	// 再建一个没有消息的草稿，不应出现在列表里
	s.CreateSession()

	list := s.ListSessionsByRecency()
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestActiveSessionReturnsCopy(t *testing.T) {
	s := NewConversationService(storage.NewMemoryStore())
	_, err := s.AppendMessage(model.RoleUser, "问题")
	require.NoError(t, err)

	copy1 := s.ActiveSession()
	copy1.Messages[0].Content = "篡改"
	copy1.Title = "篡改"

	copy2 := s.ActiveSession()
	assert.Equal(t, "问题", copy2.Messages[0].Content)
	assert.Equal(t, "问题", copy2.Title)
}
