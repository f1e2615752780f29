package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/internal/registry"
	"github.com/lcc-star/rag-pdf/internal/transform"
	"github.com/lcc-star/rag-pdf/internal/upload"
	"github.com/lcc-star/rag-pdf/pkg/logger"
)

var (
	// ErrBusy 已有一个问题在处理中，并发的第二次提问被拒绝而非排队
	ErrBusy = errors.New("上一个问题仍在处理中")
	// ErrNoDocuments 尚无已索引文档，提问被禁用
	ErrNoDocuments = errors.New("请先上传PDF文件")
	// ErrEmptyQuestion 空白问题不发起请求
	ErrEmptyQuestion = errors.New("问题不能为空")
)

const (
	// 问答失败时展示给用户的固定文案，具体原因只进日志
	apologyMessage = "抱歉，处理您的问题时出现错误。请稍后再试。"
	// 服务端2xx但未给出answer字段时的兜底回答
	noAnswerMessage = "抱歉，未能获取回答"
	// 首次成功上传后追加的系统消息
	firstUploadNotice = "已成功上传PPT/PDF文件，您现在可以开始提问了！"
)

// Asker 远程问答端点
type Asker interface {
	Ask(ctx context.Context, question, questionType string) (string, error)
}

// AskResult 一次提问的结果：持久化的bot消息与派生的结构化内容
type AskResult struct {
	SessionID string               `json:"session_id"`
	Message   model.Message        `json:"message"`
	Rendered  model.RenderedAnswer `json:"rendered"`
}

// Controller 组合会话、注册表、上传与转换，回答"现在能否提问"
// 并负责把问题路由到远程问答端点。问答请求并发度严格为1
type Controller struct {
	conversations *ConversationService
	registry      *registry.Registry
	uploader      *upload.Orchestrator
	asker         Asker
	questionType  string

	mu       sync.Mutex
	inFlight bool
}

func NewController(conversations *ConversationService, reg *registry.Registry, uploader *upload.Orchestrator, asker Asker, defaultQuestionType string) *Controller {
	if defaultQuestionType == "" {
		defaultQuestionType = "semantic"
	}
	return &Controller{
		conversations: conversations,
		registry:      reg,
		uploader:      uploader,
		asker:         asker,
		questionType:  defaultQuestionType,
	}
}

// CanAsk 当且仅当注册表非空且没有进行中的请求时允许提问
func (c *Controller) CanAsk() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.HasFiles() && !c.inFlight
}

// Ask 处理一次提问：先乐观地追加用户消息，再请求远程回答。
// 任何传输层失败都转化为固定的道歉消息，原因只记录日志；
// 返回的error仅代表门禁拒绝或本地持久化失败
func (c *Controller) Ask(ctx context.Context, question, questionType string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if questionType == "" {
		questionType = c.questionType
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if !c.registry.HasFiles() {
		c.mu.Unlock()
		return nil, ErrNoDocuments
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	if _, err := c.conversations.AppendMessage(model.RoleUser, question); err != nil {
		return nil, err
	}

	answer, err := c.asker.Ask(ctx, question, questionType)
	if err != nil {
		// 对用户隐藏具体错误，保留诊断日志
		logger.Errorf("问答请求失败: %v", err)
		answer = apologyMessage
	} else if answer == "" {
		answer = noAnswerMessage
	}

	message, err := c.conversations.AppendMessage(model.RoleBot, answer)
	if err != nil {
		return nil, err
	}

	return &AskResult{
		SessionID: c.conversations.ActiveSession().ID,
		Message:   *message,
		Rendered:  transform.Render(answer),
	}, nil
}

// UploadBatch 提交一批文件并消费进度流。只要有一个文件成功就刷新注册表；
// 若活动会话还没有任何消息，追加一条系统消息告知可以开始提问
func (c *Controller) UploadBatch(ctx context.Context, files []upload.FileBlob, onProgress func(model.BatchProgress)) (*upload.BatchResult, error) {
	progressCh, resultCh := c.uploader.SubmitBatch(ctx, files)

	for p := range progressCh {
		if onProgress != nil {
			onProgress(p)
		}
	}
	result := <-resultCh

	if result.Succeeded > 0 {
		if _, degraded, err := c.registry.Refresh(ctx); degraded {
			logger.Warnf("上传后刷新文件列表降级: %v", err)
		}

		active := c.conversations.ActiveSession()
		if active != nil && !active.HasMessages() {
			if _, err := c.conversations.AppendMessage(model.RoleSystem, firstUploadNotice); err != nil {
				logger.Errorf("追加系统消息失败: %v", err)
			}
		}
	}

	return &result, nil
}

// RebuildIndex 全量重建索引并在会话中记录结果
func (c *Controller) RebuildIndex(ctx context.Context) (int, string, error) {
	processed, message, err := c.registry.RebuildAll(ctx)
	if err != nil {
		return 0, "", err
	}

	notice := fmt.Sprintf("索引已重建，共处理了%d个PDF文件", processed)
	if _, err := c.conversations.AppendMessage(model.RoleSystem, notice); err != nil {
		logger.Errorf("追加系统消息失败: %v", err)
	}
	return processed, message, nil
}
