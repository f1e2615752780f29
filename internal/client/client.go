package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/internal/utils"
)

// Client 访问远程索引/问答服务的HTTP客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: utils.NewHTTPClient(timeout),
	}
}

// Upload 上传单个文件，multipart字段名为file
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return serviceError(resp)
	}
	return nil
}

// ListFiles 获取已索引文件列表
func (c *Client) ListFiles(ctx context.Context) ([]model.FileEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/list-files", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return nil, serviceError(resp)
	}

	var files []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	entries := make([]model.FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, model.FileEntry{Name: f.Name, Indexed: true})
	}
	return entries, nil
}

// DeleteFile 删除文件，等待服务端确认后返回其message
func (c *Client) DeleteFile(ctx context.Context, name string) (string, error) {
	u := c.baseURL + "/files/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return "", serviceError(resp)
	}

	var result struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return result.Message, nil
}

// RebuildIndex 触发全量重建索引，服务端不汇报中间进度，单次阻塞请求
func (c *Client) RebuildIndex(ctx context.Context) (*model.RebuildResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rebuild-index", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return nil, serviceError(resp)
	}

	var result model.RebuildResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return &result, nil
}

// Ask 提交问题，multipart字段为question与question_type。
// 2xx但answer字段缺失时返回空串，由调用方决定兜底文案。
func (c *Client) Ask(ctx context.Context, question, questionType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("question", question); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := mw.WriteField("question_type", questionType); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return "", serviceError(resp)
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return result.Answer, nil
}

// Preview 获取文件分页预览
func (c *Client) Preview(ctx context.Context, name string) (*model.Preview, error) {
	u := c.baseURL + "/preview/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return nil, serviceError(resp)
	}

	var result struct {
		Preview    []string `json:"preview"`
		TotalPages int      `json:"total_pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return &model.Preview{
		FileName:   name,
		Pages:      result.Preview,
		TotalPages: result.TotalPages,
	}, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// serviceError 从非2xx响应体中提取detail，没有则归为传输错误
func serviceError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(body) > 0 {
		var payload struct {
			Detail string `json:"detail"`
		}
		if jsonErr := json.Unmarshal(body, &payload); jsonErr == nil && payload.Detail != "" {
			return &ServiceError{StatusCode: resp.StatusCode, Detail: payload.Detail}
		}
	}
	return fmt.Errorf("%w: 状态码 %d", ErrTransport, resp.StatusCode)
}
