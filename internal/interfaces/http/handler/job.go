// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/internal/domain/repository"
	"chaptercraft-api/internal/infrastructure/persistence/redis"
	"chaptercraft-api/internal/interfaces/http/dto"
	pkgerrors "chaptercraft-api/pkg/errors"
	"chaptercraft-api/pkg/logger"
)

// statsCacheTTL 统计结果缓存时长，聚合查询走缓存降低数据库压力
const statsCacheTTL = 10 * time.Second

// JobHandler 任务处理器
type JobHandler struct {
	jobRepo repository.JobRepository
	cache   *redis.Cache
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobRepo repository.JobRepository, cache *redis.Cache) *JobHandler {
	return &JobHandler{
		jobRepo: jobRepo,
		cache:   cache,
	}
}

// GetJob 获取任务详情
// @Summary 获取任务详情
// @Description 获取指定任务的详细信息和状态
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/jobs/{jid} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := bindJobID(c)

	job, err := h.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		logger.Error(ctx, "failed to get job", err, "job_id", jobID)
		dto.InternalError(c, "failed to get job")
		return
	}
	if job == nil {
		dto.AppError(c, pkgerrors.ErrJobNotFound.WithDetail(jobID))
		return
	}

	dto.Success(c, dto.FromJob(job))
}

// ListJobs 获取任务列表
// @Summary 获取任务列表
// @Description 分页列出任务，支持按品类与状态过滤
// @Tags Jobs
// @Produce json
// @Param category query string false "内容品类"
// @Param status query string false "任务状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.JobListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()

	filter := &repository.JobFilter{}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category, ok := entity.ParseCategory(raw)
		if !ok {
			dto.AppError(c, pkgerrors.ErrInvalidCategory.WithDetail(raw))
			return
		}
		filter.Category = category
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		filter.Status = entity.JobStatus(raw)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	result, err := h.jobRepo.List(ctx, filter, pagination)
	if err != nil {
		logger.Error(ctx, "failed to list jobs", err)
		dto.InternalError(c, "failed to list jobs")
		return
	}

	resp, meta := dto.FromJobList(result)
	dto.SuccessWithPage(c, resp, meta)
}

// CancelJob 取消任务
// @Summary 取消任务
// @Description 取消尚未开始执行的任务；运行中与终态任务不可取消
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 204 "已取消"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "任务无法取消"
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/jobs/{jid} [delete]
func (h *JobHandler) CancelJob(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := bindJobID(c)

	job, err := h.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		logger.Error(ctx, "failed to get job", err, "job_id", jobID)
		dto.InternalError(c, "failed to get job")
		return
	}
	if job == nil {
		dto.AppError(c, pkgerrors.ErrJobNotFound.WithDetail(jobID))
		return
	}

	if job.Status == entity.JobStatusCancelled {
		dto.NoContent(c)
		return
	}

	// 仅 pending 任务可取消
	if !job.Cancel() {
		dto.AppError(c, pkgerrors.ErrJobNotCancellable.WithDetail(string(job.Status)))
		return
	}

	if err := h.jobRepo.Update(ctx, job); err != nil {
		logger.Error(ctx, "failed to cancel job", err, "job_id", jobID)
		dto.InternalError(c, "failed to cancel job")
		return
	}

	logger.Info(ctx, "job cancelled", "job_id", jobID)
	dto.NoContent(c)
}

// GetStats 获取任务统计
// @Summary 获取任务统计
// @Description 返回各状态任务数量与累计生成字数
// @Tags Jobs
// @Produce json
// @Success 200 {object} dto.Response[dto.JobStatsResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/jobs/stats [get]
func (h *JobHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	load := func() (interface{}, error) {
		return h.jobRepo.GetJobStats(ctx)
	}

	var stats *repository.JobStats
	if h.cache != nil {
		raw, err := h.cache.GetOrLoadSafe(ctx, "snapshot:jobs:stats", statsCacheTTL, load)
		if err == nil {
			stats = &repository.JobStats{}
			if uerr := json.Unmarshal(raw, stats); uerr != nil {
				stats = nil
			}
		}
	}

	if stats == nil {
		fresh, err := h.jobRepo.GetJobStats(ctx)
		if err != nil {
			logger.Error(ctx, "failed to load job stats", err)
			dto.InternalError(c, "failed to load job stats")
			return
		}
		stats = fresh
	}

	dto.Success(c, dto.FromJobStats(stats))
}
