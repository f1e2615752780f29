package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lcc-star/rag-pdf/internal/client"
	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/pkg/logger"
)

var ErrFileNotFound = errors.New("file not found")

// Backend 注册表依赖的远程文件操作
type Backend interface {
	ListFiles(ctx context.Context) ([]model.FileEntry, error)
	DeleteFile(ctx context.Context, name string) (string, error)
	RebuildIndex(ctx context.Context) (*model.RebuildResult, error)
	Preview(ctx context.Context, name string) (*model.Preview, error)
}

// Registry 客户端视角的"哪些文档已被索引"。
// 权威来源是后端服务，本地files.json只是最近一次成功刷新的快照，
// 仅在后端不可达时作为降级视图使用，并通过degraded标记暴露出来。
type Registry struct {
	backend   Backend
	cachePath string
	previews  *gocache.Cache

	mu       sync.RWMutex
	entries  []model.FileEntry
	degraded bool
}

func New(backend Backend, dataDir string, previewTTL time.Duration) *Registry {
	r := &Registry{
		backend:   backend,
		cachePath: filepath.Join(dataDir, "files.json"),
		previews:  gocache.New(previewTTL, 2*previewTTL),
	}
	// 启动时先用上次快照兜底，首次Refresh会覆盖
	r.entries = r.loadCacheFile()
	return r
}

// Refresh 从权威来源刷新文件列表。
// 后端不可达时回退到最近一次持久化的快照并标记degraded；
// 返回的error是降级原因，仅用于诊断，视图本身总是可用的。
func (r *Registry) Refresh(ctx context.Context) ([]model.FileEntry, bool, error) {
	files, err := r.backend.ListFiles(ctx)
	if err != nil {
		logger.Warnf("获取文件列表失败，回退到本地快照: %v", err)

		r.mu.Lock()
		r.entries = r.loadCacheFile()
		r.degraded = true
		view := cloneEntries(r.entries)
		r.mu.Unlock()
		return view, true, err
	}

	r.mu.Lock()
	r.entries = files
	r.degraded = false
	view := cloneEntries(r.entries)
	r.mu.Unlock()

	r.saveCacheFile(files)
	return view, false, nil
}

// List 返回当前视图（不触发网络请求）
func (r *Registry) List() []model.FileEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneEntries(r.entries)
}

// Degraded 当前视图是否来自本地快照而非权威来源
func (r *Registry) Degraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded
}

func (r *Registry) HasFiles() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries) > 0
}

// Remove 删除文件。不做乐观删除：等服务端确认后再刷新视图
func (r *Registry) Remove(ctx context.Context, name string) error {
	if _, err := r.backend.DeleteFile(ctx, name); err != nil {
		var svcErr *client.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == 404 {
			return fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return err
	}

	r.previews.Delete(name)

	if _, _, err := r.Refresh(ctx); err != nil {
		logger.Warnf("删除后刷新文件列表失败: %v", err)
	}
	return nil
}

// RebuildAll 触发全量重建索引，完成后刷新视图，返回处理文件数与服务端消息
func (r *Registry) RebuildAll(ctx context.Context) (int, string, error) {
	result, err := r.backend.RebuildIndex(ctx)
	if err != nil {
		return 0, "", err
	}

	r.previews.Flush()

	if _, _, err := r.Refresh(ctx); err != nil {
		logger.Warnf("重建索引后刷新文件列表失败: %v", err)
	}
	return len(result.ProcessedFiles), result.Message, nil
}

// Preview 获取文件预览，结果按TTL缓存
func (r *Registry) Preview(ctx context.Context, name string) (*model.Preview, error) {
	if cached, ok := r.previews.Get(name); ok {
		return cached.(*model.Preview), nil
	}

	preview, err := r.backend.Preview(ctx, name)
	if err != nil {
		var svcErr *client.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, err
	}

	r.previews.SetDefault(name, preview)
	return preview, nil
}

// loadCacheFile 读取最近一次成功刷新的快照，缺失或损坏都按空处理
func (r *Registry) loadCacheFile() []model.FileEntry {
	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("读取文件列表快照失败: %v", err)
		}
		return nil
	}

	var entries []model.FileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warnf("文件列表快照损坏，忽略: %v", err)
		return nil
	}
	return entries
}

func (r *Registry) saveCacheFile(entries []model.FileEntry) {
	if err := os.MkdirAll(filepath.Dir(r.cachePath), 0755); err != nil {
		logger.Warnf("创建数据目录失败: %v", err)
		return
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		logger.Warnf("序列化文件列表快照失败: %v", err)
		return
	}

	tempPath := r.cachePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		logger.Warnf("写入文件列表快照失败: %v", err)
		return
	}
	if err := os.Rename(tempPath, r.cachePath); err != nil {
		logger.Warnf("写入文件列表快照失败: %v", err)
	}
}

func cloneEntries(entries []model.FileEntry) []model.FileEntry {
	view := make([]model.FileEntry, len(entries))
	copy(view, entries)
	return view
}
