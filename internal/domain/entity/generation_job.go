// Package entity 定义领域实体
package entity

import (
	"time"
)

// ContentCategory 内容品类
type ContentCategory string

const (
	CategoryLongNarrative        ContentCategory = "long-narrative"
	CategoryInformational        ContentCategory = "informational"
	CategoryIllustratedShortForm ContentCategory = "illustrated-short-form"
)

// ParseCategory 解析内容品类，未知品类返回 false
func ParseCategory(s string) (ContentCategory, bool) {
	switch ContentCategory(s) {
	case CategoryLongNarrative, CategoryInformational, CategoryIllustratedShortForm:
		return ContentCategory(s), true
	}
	return "", false
}

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// GenerationJob 文档生成任务
type GenerationJob struct {
	ID             string          `json:"id"`
	Category       ContentCategory `json:"category"`
	Subject        string          `json:"subject"`
	Style          string          `json:"style,omitempty"`
	WordTarget     int             `json:"word_target"`
	Status         JobStatus       `json:"status"`
	Content        string          `json:"content,omitempty"`
	FinalWordCount int             `json:"final_word_count,omitempty"`
	ChapterCount   int             `json:"chapter_count,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	DurationMs     int             `json:"duration_ms,omitempty"`
	RetryCount     int             `json:"retry_count"`
	Progress       int             `json:"progress"` // 任务进度 (0-100)
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// NewGenerationJob 创建新任务
func NewGenerationJob(category ContentCategory, subject, style string, wordTarget int) *GenerationJob {
	return &GenerationJob{
		Category:   category,
		Subject:    subject,
		Style:      style,
		WordTarget: wordTarget,
		Status:     JobStatusPending,
		RetryCount: 0,
		CreatedAt:  time.Now(),
	}
}

// Start 开始执行任务
func (j *GenerationJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Complete 完成任务并记录装配结果
func (j *GenerationJob) Complete(content string, wordCount, chapterCount int) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Content = content
	j.FinalWordCount = wordCount
	j.ChapterCount = chapterCount
	j.Progress = 100
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// Fail 任务失败
func (j *GenerationJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// Cancel 取消任务，仅 pending 状态允许
func (j *GenerationJob) Cancel() bool {
	if j.Status != JobStatusPending {
		return false
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	return true
}

// Retry 重试任务
func (j *GenerationJob) Retry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = ""
}

// CanRetry 检查是否可以重试
func (j *GenerationJob) CanRetry(maxRetries int) bool {
	return j.RetryCount < maxRetries && j.Status == JobStatusFailed
}

// IsTerminal 是否处于终态
func (j *GenerationJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// UpdateProgress 更新任务进度
func (j *GenerationJob) UpdateProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
}
