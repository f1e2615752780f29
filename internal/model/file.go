package model

// FileEntry 客户端视角下某个文档的索引状态。
// 权威来源是后端服务，本地缓存仅作为降级时的快照。
type FileEntry struct {
	Name    string `json:"name"`
	Indexed bool   `json:"indexed"`
	Error   string `json:"error,omitempty"`
}

// UploadOutcome 一次批量上传中单个文件的结果，按提交顺序产生
type UploadOutcome struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchProgress 批次内单调推进的进度快照
type BatchProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Percent   int `json:"percent"`
}

type Preview struct {
	FileName   string   `json:"file_name"`
	Pages      []string `json:"pages"`
	TotalPages int      `json:"total_pages"`
}

type RebuildResult struct {
	Message        string   `json:"message"`
	ProcessedFiles []string `json:"processed_files"`
}
