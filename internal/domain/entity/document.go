package entity

// ChapterPlan 单章规划
type ChapterPlan struct {
	Index       int    `json:"index"` // 从 1 开始
	Title       string `json:"title"`
	TargetWords int    `json:"target_words"`
}

// ChapterResult 单章生成结果
type ChapterResult struct {
	Plan       ChapterPlan `json:"plan"`
	Content    string      `json:"content"`
	WordCount  int         `json:"word_count"`
	Attempts   int         `json:"attempts"`
	Provider   string      `json:"provider,omitempty"` // 最终采用内容的提供商，纯扩写时为空
	PaddedUp   bool        `json:"padded_up"`          // 是否经过确定性扩写补足
	AllFailed  bool        `json:"all_failed"`         // 所有提供商尝试均失败
	DurationMs int         `json:"duration_ms,omitempty"`
}

// Document 装配完成的文档
type Document struct {
	Title              string  `json:"title"`
	Content            string  `json:"content"`
	WordCount          int     `json:"word_count"`
	ChapterCount       int     `json:"chapter_count"`
	ExtensionWordCount int     `json:"extension_word_count"`
	CompletionPercent  float64 `json:"completion_percent"` // 相对请求目标的百分比
}
