package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/pkg/logger"
)

type DiskStore struct {
	path string
	mu   sync.Mutex
}

func NewDiskStore(dataDir string) *DiskStore {
	return &DiskStore{
		path: filepath.Join(dataDir, "sessions.json"),
	}
}

// Load 读取会话存档。首次运行（文件不存在）或存档损坏都返回空集合，绝不失败退出
func (d *DiskStore) Load() (map[string]*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sessions := make(map[string]*model.Session)

	data, err := os.ReadFile(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("读取会话存档失败，按空集合处理: %v", err)
		}
		return sessions, nil
	}

	if err := json.Unmarshal(data, &sessions); err != nil {
		logger.Warnf("会话存档损坏，按空集合处理: %v", err)
		return make(map[string]*model.Session), nil
	}

	return sessions, nil
}

func (d *DiskStore) Save(sessions map[string]*model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	tempPath := d.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := os.Rename(tempPath, d.path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	return nil
}
