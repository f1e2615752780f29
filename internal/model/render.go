package model

// Citation 回答文本中识别出的 [文档名 第N页] 引用
type Citation struct {
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number"`
}

// FillBlank 填空题格式的结构化抽取结果
type FillBlank struct {
	Answer       string `json:"answer"`
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number"`
}

type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentCitation SegmentKind = "citation"
)

// Segment 正文流中的一段：普通文本或引用片段
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Citation *Citation   `json:"citation,omitempty"`
}

// SourcesBlock 回答末尾的"### 来源："区块
type SourcesBlock struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// RenderedAnswer 由一条回答文本确定性地派生出的结构化内容
type RenderedAnswer struct {
	Segments  []Segment     `json:"segments"`
	Citations []Citation    `json:"citations"`
	FillBlank *FillBlank    `json:"fill_blank,omitempty"`
	Sources   *SourcesBlock `json:"sources,omitempty"`
	ProseHTML string        `json:"prose_html"`
}
