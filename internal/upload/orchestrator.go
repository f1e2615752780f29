package upload

import (
	"context"
	"io"
	"math"
	"strings"

	"github.com/lcc-star/rag-pdf/internal/client"
	"github.com/lcc-star/rag-pdf/internal/model"
	"github.com/lcc-star/rag-pdf/pkg/logger"
)

// FileTransport 上传单个文件的远程端点
type FileTransport interface {
	Upload(ctx context.Context, filename string, content io.Reader) error
}

// FileBlob 待上传的一个文件
type FileBlob struct {
	Name    string
	Content io.Reader
}

// BatchResult 一个批次的最终结果。Outcomes按提交顺序排列，
// 被跳过的文件（扩展名不符）不产生Outcome，只计入Skipped
type BatchResult struct {
	Outcomes  []model.UploadOutcome
	Succeeded int
	Failed    int
	Skipped   int
}

type Orchestrator struct {
	transport FileTransport
	accept    []string
}

func NewOrchestrator(transport FileTransport, acceptExtensions []string) *Orchestrator {
	accept := make([]string, 0, len(acceptExtensions))
	for _, ext := range acceptExtensions {
		accept = append(accept, strings.ToLower(ext))
	}
	return &Orchestrator{
		transport: transport,
		accept:    accept,
	}
}

// Accepts 扩展名校验，大小写不敏感，在任何网络请求之前执行
func (o *Orchestrator) Accepts(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range o.accept {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SubmitBatch 顺序上传一批文件：第i+1个文件的请求在第i个响应之后才发起，
// 保证进度单调推进、结果顺序确定。单个文件失败不会中断批次。
// 进度更新流在批次结束时关闭，随后result通道给出最终结果。
func (o *Orchestrator) SubmitBatch(ctx context.Context, files []FileBlob) (<-chan model.BatchProgress, <-chan BatchResult) {
	progressCh := make(chan model.BatchProgress, len(files)+1)
	resultCh := make(chan BatchResult, 1)

	go func() {
		defer close(resultCh)
		defer close(progressCh)

		total := len(files)
		result := BatchResult{
			Outcomes: make([]model.UploadOutcome, 0, total),
		}
		completed := 0

		for _, f := range files {
			if !o.Accepts(f.Name) {
				// 纯跳过：不上传也不算失败，但推进进度
				logger.Infof("跳过非PDF文件: %s", f.Name)
				completed++
				result.Skipped++
				progressCh <- snapshot(completed, total, result.Succeeded)
				continue
			}

			err := o.transport.Upload(ctx, f.Name, f.Content)
			completed++
			if err != nil {
				logger.Errorf("上传失败 %s: %v", f.Name, err)
				result.Failed++
				result.Outcomes = append(result.Outcomes, model.UploadOutcome{
					Name:  f.Name,
					Error: client.Detail(err, "网络错误"),
				})
			} else {
				result.Succeeded++
				result.Outcomes = append(result.Outcomes, model.UploadOutcome{
					Name:    f.Name,
					Success: true,
				})
			}
			progressCh <- snapshot(completed, total, result.Succeeded)
		}

		resultCh <- result
	}()

	return progressCh, resultCh
}

func snapshot(completed, total, succeeded int) model.BatchProgress {
	return model.BatchProgress{
		Completed: completed,
		Total:     total,
		Succeeded: succeeded,
		Percent:   percent(completed, succeeded, total),
	}
}

// percent 基础进度为completed/total，成功数额外贡献最多20个百分点，
// 失败的上传仍然推进进度条，全部完成时必为100
func percent(completed, succeeded, total int) int {
	if total == 0 {
		return 100
	}
	base := int(math.Round(float64(completed) / float64(total) * 100))
	bonus := int(math.Round(float64(succeeded) / float64(total) * 20))
	if p := base + bonus; p < 100 {
		return p
	}
	return 100
}
