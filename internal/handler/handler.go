package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/internal/registry"
	"github.com/lcc-star/rag-pdf/internal/service"
	"github.com/lcc-star/rag-pdf/internal/storage"
	"github.com/lcc-star/rag-pdf/internal/upload"
	"github.com/lcc-star/rag-pdf/internal/utils"
	"github.com/lcc-star/rag-pdf/pkg/logger"
)

// Handler 薄适配层：解码请求、调用核心组件、编码结果，不包含业务逻辑
type Handler struct {
	controller    *service.Controller
	conversations *service.ConversationService
	registry      *registry.Registry
}

func New(controller *service.Controller, conversations *service.ConversationService, reg *registry.Registry) *Handler {
	return &Handler{
		controller:    controller,
		conversations: conversations,
		registry:      reg,
	}
}

type askRequest struct {
	Question     string `json:"question" binding:"required"`
	QuestionType string `json:"question_type"`
}

func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.controller.Ask(c.Request.Context(), req.Question, req.QuestionType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNoDocuments), errors.Is(err, service.ErrEmptyQuestion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// UploadFiles 接收multipart批量上传，进度与最终结果通过SSE推送
func (h *Handler) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有选择文件"})
		return
	}

	blobs := make([]upload.FileBlob, 0, len(headers))
	var opened []interface{ Close() error }
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opened = append(opened, f)
		blobs = append(blobs, upload.FileBlob{Name: header.Filename, Content: f})
	}

	sse := utils.NewSSEWriter(c.Writer)

	result, err := h.controller.UploadBatch(c.Request.Context(), blobs, func(p model.BatchProgress) {
		if err := sse.WriteJSON("progress", p); err != nil {
			logger.Warnf("推送上传进度失败: %v", err)
		}
	})
	if err != nil {
		sse.WriteJSON("error", gin.H{"error": err.Error()})
		sse.Close()
		return
	}

	if err := sse.WriteJSON("result", gin.H{
		"outcomes":  result.Outcomes,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	}); err != nil {
		logger.Warnf("推送上传结果失败: %v", err)
	}
	sse.Close()
}

func (h *Handler) ListFiles(c *gin.Context) {
	files, degraded, _ := h.registry.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"files":    files,
		"degraded": degraded,
		"can_ask":  h.controller.CanAsk(),
	})
}

func (h *Handler) DeleteFile(c *gin.Context) {
	name := c.Param("name")

	if err := h.registry.Remove(c.Request.Context(), name); err != nil {
		if errors.Is(err, registry.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "文件已删除",
		"can_ask": h.controller.CanAsk(),
	})
}

func (h *Handler) RebuildIndex(c *gin.Context) {
	processed, message, err := h.controller.RebuildIndex(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         message,
		"processed_files": processed,
	})
}

func (h *Handler) PreviewFile(c *gin.Context) {
	name := c.Param("name")

	preview, err := h.registry.Preview(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, registry.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, preview)
}

func (h *Handler) CreateSession(c *gin.Context) {
	session := h.conversations.CreateSession()
	c.JSON(http.StatusOK, session)
}

func (h *Handler) ActiveSession(c *gin.Context) {
	session := h.conversations.ActiveSession()
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) GetSessionList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.conversations.ListSessionsByRecency(),
	})
}

func (h *Handler) SwitchSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	session, err := h.conversations.SwitchTo(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) GetMessages(c *gin.Context) {
	sessionID := c.Param("session_id")

	session, err := h.conversations.Session(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"messages":   session.Messages,
	})
}
