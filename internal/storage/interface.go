package storage

import (
	"github.com/lcc-star/rag-pdf/internal/model"
)

// SessionStore 持久化完整会话集合的快照存储。
// 每次变更都会整体写入（write-through），Load在存档缺失或损坏时返回空集合。
type SessionStore interface {
	Load() (map[string]*model.Session, error)
	Save(sessions map[string]*model.Session) error
}
