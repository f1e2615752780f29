package storage

import (
	"encoding/json"
	"sync"

	"github.com/lcc-star/rag-pdf/internal/model"
)

// MemoryStore 测试与无盘场景用的内存实现。
// Save/Load经过一次JSON序列化，行为与磁盘存储保持一致。
type MemoryStore struct {
	mu       sync.Mutex
	snapshot []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (map[string]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make(map[string]*model.Session)
	if len(m.snapshot) == 0 {
		return sessions, nil
	}
	if err := json.Unmarshal(m.snapshot, &sessions); err != nil {
		return make(map[string]*model.Session), nil
	}
	return sessions, nil
}

func (m *MemoryStore) Save(sessions map[string]*model.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.snapshot = data
	m.mu.Unlock()
	return nil
}
