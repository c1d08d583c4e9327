// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/internal/domain/repository"
)

// JobResponse 任务详情响应
type JobResponse struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	Subject        string     `json:"subject"`
	Style          string     `json:"style,omitempty"`
	WordTarget     int        `json:"word_target"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	FinalWordCount int        `json:"final_word_count,omitempty"`
	ChapterCount   int        `json:"chapter_count,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	DurationMs     int        `json:"duration_ms,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// FromJob 将任务实体转为响应（不含文档内容）
func FromJob(job *entity.GenerationJob) *JobResponse {
	return &JobResponse{
		ID:             job.ID,
		Category:       string(job.Category),
		Subject:        job.Subject,
		Style:          job.Style,
		WordTarget:     job.WordTarget,
		Status:         string(job.Status),
		Progress:       job.Progress,
		FinalWordCount: job.FinalWordCount,
		ChapterCount:   job.ChapterCount,
		ErrorMessage:   job.ErrorMessage,
		DurationMs:     job.DurationMs,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
}

// JobListResponse 任务列表响应
type JobListResponse struct {
	Jobs []*JobResponse `json:"jobs"`
}

// FromJobList 将分页任务结果转为响应与分页元数据
func FromJobList(result *repository.PagedResult[*entity.GenerationJob]) (*JobListResponse, *PageMeta) {
	resp := &JobListResponse{Jobs: make([]*JobResponse, 0, len(result.Items))}
	for _, job := range result.Items {
		resp.Jobs = append(resp.Jobs, FromJob(job))
	}
	meta := &PageMeta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      int(result.Total),
		TotalPages: result.TotalPages,
	}
	return resp, meta
}

// JobStatsResponse 任务统计响应
type JobStatsResponse struct {
	TotalJobs     int64 `json:"total_jobs"`
	PendingJobs   int64 `json:"pending_jobs"`
	RunningJobs   int64 `json:"running_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	TotalWords    int64 `json:"total_words"`
}

// FromJobStats 将统计实体转为响应
func FromJobStats(stats *repository.JobStats) *JobStatsResponse {
	return &JobStatsResponse{
		TotalJobs:     stats.TotalJobs,
		PendingJobs:   stats.PendingJobs,
		RunningJobs:   stats.RunningJobs,
		CompletedJobs: stats.CompletedJobs,
		FailedJobs:    stats.FailedJobs,
		TotalWords:    stats.TotalWords,
	}
}
