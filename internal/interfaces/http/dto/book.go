// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"chaptercraft-api/internal/domain/entity"
)

// CreateBookRequest 创建文档生成任务请求
// word_target 与 length 二选一：未给 word_target 时按品类与篇幅档位取默认值。
type CreateBookRequest struct {
	Category   string `json:"category" binding:"required"`
	Subject    string `json:"subject" binding:"required,max=512"`
	Style      string `json:"style,omitempty" binding:"max=128"`
	WordTarget int    `json:"word_target,omitempty"`
	Length     string `json:"length,omitempty"` // short / medium / long
}

// CreateBookResponse 创建任务响应
type CreateBookResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	Category   string `json:"category"`
	WordTarget int    `json:"word_target"`
}

// ProgressStepResponse 单条进度记录
type ProgressStepResponse struct {
	Step      string    `json:"step"`
	Message   string    `json:"message"`
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressResponse 任务进度响应
// 任务完成后附带最终文档内容。
type ProgressResponse struct {
	JobID          string                 `json:"job_id"`
	Status         string                 `json:"status"`
	Progress       int                    `json:"progress"`
	CurrentStep    string                 `json:"current_step,omitempty"`
	Steps          []ProgressStepResponse `json:"steps,omitempty"`
	FinalWordCount int                    `json:"final_word_count,omitempty"`
	FinalContent   string                 `json:"final_content,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// FromProgressSnapshot 将进度快照转为响应
func FromProgressSnapshot(snap *entity.ProgressSnapshot) *ProgressResponse {
	resp := &ProgressResponse{
		JobID:          snap.JobID,
		Status:         string(snap.Status),
		Progress:       snap.OverallProgress,
		CurrentStep:    snap.CurrentStep,
		FinalWordCount: snap.FinalWordCount,
		ErrorMessage:   snap.ErrorMessage,
		UpdatedAt:      snap.UpdatedAt,
	}
	for _, step := range snap.Steps {
		resp.Steps = append(resp.Steps, ProgressStepResponse{
			Step:      step.Step,
			Message:   step.Message,
			Percent:   step.Percent,
			Timestamp: step.Timestamp,
		})
	}
	return resp
}
