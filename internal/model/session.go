package model

// 消息角色
const (
	RoleUser   = "user"
	RoleBot    = "bot"
	RoleSystem = "system"
)

type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // Unix毫秒，会话内单调不减
}

type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// LastMessageAt 返回最后一条消息的时间戳，空会话返回0
func (s *Session) LastMessageAt() int64 {
	if len(s.Messages) == 0 {
		return 0
	}
	return s.Messages[len(s.Messages)-1].Timestamp
}

func (s *Session) HasMessages() bool {
	return len(s.Messages) > 0
}

// Clone 返回会话的深拷贝，避免调用方修改内部状态
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}
