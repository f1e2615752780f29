package transform

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/lcc-star/rag-pdf/internal/model"
)

var (
	// 填空题格式：答案是"..."，来自[文档名第N页]
	fillBlankRe = regexp.MustCompile(`答案是"([^"]+)"，来自\[(.*?)第([0-9]+)页\]`)
	// 通用引用格式：[文档名第N页]
	citationRe = regexp.MustCompile(`\[(.*?)第([0-9]+)页\]`)
)

const sourcesMarker = "### 来源："

var md = goldmark.New()

// Render 将回答文本确定性地转换为结构化内容。纯函数，任何输入都有输出：
// 无法识别的文本整体按Markdown正文处理。
//
// 处理顺序（见各步说明，顺序不可交换）：
//  1. 在原文上定位"### 来源："区块（到下一个顶级标题或文本末尾）；
//  2. 在原文上抽取首个填空题格式，与来源区重叠时放弃抽取，保留在来源区内；
//  3. 全文扫描引用格式，得到完整引用集合；
//  4. 其余文本作为正文，切分为普通片段与引用片段并渲染Markdown。
func Render(answerText string) model.RenderedAnswer {
	citations := extractCitations(answerText)

	srcStart, srcEnd, srcMarkdown := findSources(answerText)

	var fill *model.FillBlank
	fillStart, fillEnd := -1, -1
	if loc := fillBlankRe.FindStringSubmatchIndex(answerText); loc != nil {
		s, e := loc[0], loc[1]
		overlapsSources := srcStart >= 0 && s < srcEnd && srcStart < e
		if !overlapsSources {
			fillStart, fillEnd = s, e
			fill = &model.FillBlank{
				Answer:       answerText[loc[2]:loc[3]],
				DocumentName: answerText[loc[4]:loc[5]],
				PageNumber:   atoi(answerText[loc[6]:loc[7]]),
			}
		}
	}

	var removed [][2]int
	if srcStart >= 0 {
		removed = append(removed, [2]int{srcStart, srcEnd})
	}
	if fillStart >= 0 {
		removed = append(removed, [2]int{fillStart, fillEnd})
	}
	prose := cutSpans(answerText, removed)

	answer := model.RenderedAnswer{
		Segments:  splitSegments(prose),
		Citations: citations,
		FillBlank: fill,
		ProseHTML: renderMarkdown(prose),
	}
	if srcStart >= 0 {
		answer.Sources = &model.SourcesBlock{
			Markdown: srcMarkdown,
			HTML:     renderMarkdown(srcMarkdown),
		}
	}
	return answer
}

// extractCitations 返回输入中全部引用，与出现顺序一致
func extractCitations(text string) []model.Citation {
	matches := citationRe.FindAllStringSubmatch(text, -1)
	citations := make([]model.Citation, 0, len(matches))
	for _, m := range matches {
		citations = append(citations, model.Citation{
			DocumentName: m[1],
			PageNumber:   atoi(m[2]),
		})
	}
	return citations
}

// findSources 定位来源区块：从标记起到下一个"### "或文本末尾。
// 返回区块在原文中的[start,end)及去掉标记后的Markdown内容；未找到时start为-1
func findSources(text string) (int, int, string) {
	start := strings.Index(text, sourcesMarker)
	if start < 0 {
		return -1, -1, ""
	}

	contentStart := start + len(sourcesMarker)
	end := len(text)
	if next := strings.Index(text[contentStart:], "### "); next >= 0 {
		end = contentStart + next
	}
	return start, end, text[contentStart:end]
}

// cutSpans 去除原文中给定的互不重叠区间
func cutSpans(text string, spans [][2]int) string {
	if len(spans) == 0 {
		return text
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var b strings.Builder
	prev := 0
	for _, span := range spans {
		b.WriteString(text[prev:span[0]])
		prev = span[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

// splitSegments 将正文切分为普通文本与引用片段的交替序列
func splitSegments(prose string) []model.Segment {
	locs := citationRe.FindAllStringSubmatchIndex(prose, -1)
	segments := make([]model.Segment, 0, len(locs)*2+1)

	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			segments = append(segments, model.Segment{
				Kind: model.SegmentText,
				Text: prose[prev:loc[0]],
			})
		}
		segments = append(segments, model.Segment{
			Kind: model.SegmentCitation,
			Text: prose[loc[0]:loc[1]],
			Citation: &model.Citation{
				DocumentName: prose[loc[2]:loc[3]],
				PageNumber:   atoi(prose[loc[4]:loc[5]]),
			},
		})
		prev = loc[1]
	}
	if prev < len(prose) {
		segments = append(segments, model.Segment{
			Kind: model.SegmentText,
			Text: prose[prev:],
		})
	}
	return segments
}

func renderMarkdown(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		// goldmark对任意输入都不应失败，兜底返回原文
		return source
	}
	return buf.String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
