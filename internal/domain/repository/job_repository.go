// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"chaptercraft-api/internal/domain/entity"
)

// JobFilter 任务过滤条件
type JobFilter struct {
	Category entity.ContentCategory
	Status   entity.JobStatus
}

// JobRepository 生成任务仓储接口
type JobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.GenerationJob) error

	// GetByID 根据 ID 获取任务
	GetByID(ctx context.Context, id string) (*entity.GenerationJob, error)

	// Update 更新任务
	Update(ctx context.Context, job *entity.GenerationJob) error

	// Delete 删除任务
	Delete(ctx context.Context, id string) error

	// List 获取任务列表
	List(ctx context.Context, filter *JobFilter, pagination Pagination) (*PagedResult[*entity.GenerationJob], error)

	// GetByIdempotencyKey 根据幂等键获取任务
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.GenerationJob, error)

	// UpdateStatus 更新任务状态
	UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error

	// MarkRunning 将 pending 任务置为运行态并记录开始时间
	// 返回 false 表示任务已不在 pending（如并发取消），调用方应放弃执行
	MarkRunning(ctx context.Context, id string) (bool, error)

	// UpdateProgress 更新任务进度（0-100）
	UpdateProgress(ctx context.Context, id string, progress int) error

	// SaveResult 持久化装配结果（内容、终态、字数、进度）
	SaveResult(ctx context.Context, job *entity.GenerationJob) error

	// GetPendingJobs 获取待处理任务
	GetPendingJobs(ctx context.Context, limit int) ([]*entity.GenerationJob, error)

	// GetRunningJobs 获取运行中任务
	GetRunningJobs(ctx context.Context) ([]*entity.GenerationJob, error)

	// GetJobStats 获取任务统计信息
	GetJobStats(ctx context.Context) (*JobStats, error)
}

// JobStats 任务统计信息
type JobStats struct {
	TotalJobs     int64 `json:"total_jobs"`
	PendingJobs   int64 `json:"pending_jobs"`
	RunningJobs   int64 `json:"running_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	TotalWords    int64 `json:"total_words"`
}
