package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, 5*time.Second)
}

func TestUpload(t *testing.T) {
	var gotFilename, gotContent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		gotFilename = header.Filename
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotContent = string(buf[:n])

		w.WriteHeader(http.StatusOK)
	})

	err := c.Upload(context.Background(), "讲义.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "讲义.pdf", gotFilename)
	assert.Equal(t, "%PDF-1.4", gotContent)
}

func TestUploadServiceDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail": "PDF解析失败"}`))
	})

	err := c.Upload(context.Background(), "a.pdf", strings.NewReader("x"))
	require.Error(t, err)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Equal(t, "PDF解析失败", svcErr.Detail)
	assert.Equal(t, "PDF解析失败", Detail(err, "网络错误"))
}

func TestUploadNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>Bad Gateway</html>"))
	})

	err := c.Upload(context.Background(), "a.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	// 没有结构化detail时回退到通用文案
	assert.Equal(t, "网络错误", Detail(err, "网络错误"))
}

func TestUploadConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	c := New(server.URL, time.Second)

	err := c.Upload(context.Background(), "a.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestListFiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/list-files", r.URL.Path)
		w.Write([]byte(`[{"name": "a.pdf"}, {"name": "b.pdf"}]`))
	})

	files, err := c.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].Name)
	assert.True(t, files[0].Indexed)
	assert.Equal(t, "b.pdf", files[1].Name)
}

func TestListFilesEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	files, err := c.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteFileEscapesName(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"message": "文件已删除"}`))
	})

	message, err := c.DeleteFile(context.Background(), "my file#1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "文件已删除", message)
	assert.Equal(t, "/files/my%20file%231.pdf", gotPath)
}

func TestRebuildIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rebuild-index", r.URL.Path)
		w.Write([]byte(`{"message": "重建完成", "processed_files": ["a.pdf", "b.pdf"]}`))
	})

	result, err := c.RebuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "重建完成", result.Message)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, result.ProcessedFiles)
}

func TestAsk(t *testing.T) {
	var gotQuestion, gotType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ask", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotQuestion = r.FormValue("question")
		gotType = r.FormValue("question_type")
		w.Write([]byte(`{"answer": "答案是\"42\"，来自[slides.pdf第7页]"}`))
	})

	answer, err := c.Ask(context.Background(), "第七页讲了什么？", "semantic")
	require.NoError(t, err)
	assert.Equal(t, `答案是"42"，来自[slides.pdf第7页]`, answer)
	assert.Equal(t, "第七页讲了什么？", gotQuestion)
	assert.Equal(t, "semantic", gotType)
}

func TestAskMissingAnswerField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	})

	answer, err := c.Ask(context.Background(), "问题", "semantic")
	require.NoError(t, err)
	assert.Equal(t, "", answer)
}

func TestPreview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/preview/slides.pdf", r.URL.EscapedPath())
		w.Write([]byte(`{"preview": ["第一页内容", "第二页内容"], "total_pages": 12}`))
	})

	preview, err := c.Preview(context.Background(), "slides.pdf")
	require.NoError(t, err)
	assert.Equal(t, "slides.pdf", preview.FileName)
	assert.Equal(t, []string{"第一页内容", "第二页内容"}, preview.Pages)
	assert.Equal(t, 12, preview.TotalPages)
}
