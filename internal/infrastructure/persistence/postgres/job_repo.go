// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/internal/domain/repository"
)

// JobRepository 任务仓储实现
type JobRepository struct {
	client *Client
}

// NewJobRepository 创建任务仓储
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

// Create 创建任务
func (r *JobRepository) Create(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Create")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if err := db.Create(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取任务
func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetByID")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	var job entity.GenerationJob
	if err := db.First(&job, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Update 更新任务
func (r *JobRepository) Update(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Update")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if err := db.Save(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// Delete 删除任务
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Delete")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if err := db.Delete(&entity.GenerationJob{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// List 获取任务列表
func (r *JobRepository) List(ctx context.Context, filter *repository.JobFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationJob], error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.List")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	query := db.Model(&entity.GenerationJob{})

	// 应用过滤条件
	if filter != nil {
		if filter.Category != "" {
			query = query.Where("category = ?", filter.Category)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	// 获取列表
	var jobs []*entity.GenerationJob
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return repository.NewPagedResult(jobs, total, pagination), nil
}

// GetByIdempotencyKey 根据幂等键获取任务
func (r *JobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetByIdempotencyKey")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	var job entity.GenerationJob
	if err := db.First(&job, "idempotency_key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get job by idempotency key: %w", err)
	}
	return &job, nil
}

// UpdateStatus 更新任务状态
func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.UpdateStatus")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if err := db.Model(&entity.GenerationJob{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// MarkRunning 将 pending 任务置为运行中
// 条件更新避免与取消竞争：状态已非 pending 时不覆盖，返回 false
func (r *JobRepository) MarkRunning(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.MarkRunning")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	now := time.Now()
	res := db.Model(&entity.GenerationJob{}).
		Where("id = ? AND status = ?", id, entity.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     entity.JobStatusRunning,
			"started_at": now,
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, fmt.Errorf("failed to mark job running: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateProgress 更新任务进度
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.UpdateProgress")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if err := db.Model(&entity.GenerationJob{}).Where("id = ?", id).Update("progress", progress).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// SaveResult 持久化装配结果
// 终态与全文内容一次写入，供进度查询接口读取 final_content
func (r *JobRepository) SaveResult(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.SaveResult")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	updates := map[string]interface{}{
		"status":           job.Status,
		"content":          job.Content,
		"final_word_count": job.FinalWordCount,
		"chapter_count":    job.ChapterCount,
		"progress":         job.Progress,
		"duration_ms":      job.DurationMs,
		"completed_at":     job.CompletedAt,
	}
	if job.ErrorMessage != "" {
		updates["error_message"] = job.ErrorMessage
	}

	if err := db.Model(&entity.GenerationJob{}).Where("id = ?", job.ID).Updates(updates).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save job result: %w", err)
	}
	return nil
}

// GetPendingJobs 获取待处理任务
func (r *JobRepository) GetPendingJobs(ctx context.Context, limit int) ([]*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetPendingJobs")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	var jobs []*entity.GenerationJob

	if err := db.Where("status = ?", entity.JobStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get pending jobs: %w", err)
	}

	return jobs, nil
}

// GetRunningJobs 获取运行中任务
func (r *JobRepository) GetRunningJobs(ctx context.Context) ([]*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetRunningJobs")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	var jobs []*entity.GenerationJob

	if err := db.Where("status = ?", entity.JobStatusRunning).
		Order("started_at ASC").
		Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get running jobs: %w", err)
	}

	return jobs, nil
}

// GetJobStats 获取任务统计信息
func (r *JobRepository) GetJobStats(ctx context.Context) (*repository.JobStats, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetJobStats")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	var stats repository.JobStats

	db.Model(&entity.GenerationJob{}).Count(&stats.TotalJobs)
	db.Model(&entity.GenerationJob{}).Where("status = ?", entity.JobStatusPending).Count(&stats.PendingJobs)
	db.Model(&entity.GenerationJob{}).Where("status = ?", entity.JobStatusRunning).Count(&stats.RunningJobs)
	db.Model(&entity.GenerationJob{}).Where("status = ?", entity.JobStatusCompleted).Count(&stats.CompletedJobs)
	db.Model(&entity.GenerationJob{}).Where("status = ?", entity.JobStatusFailed).Count(&stats.FailedJobs)

	var totalWords *int64
	db.Model(&entity.GenerationJob{}).Where("status = ?", entity.JobStatusCompleted).
		Select("SUM(final_word_count)").Scan(&totalWords)
	if totalWords != nil {
		stats.TotalWords = *totalWords
	}

	return &stats, nil
}
