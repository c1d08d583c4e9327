// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chaptercraft-api/internal/application/generation"
	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/internal/domain/repository"
	"chaptercraft-api/internal/infrastructure/messaging"
	"chaptercraft-api/internal/interfaces/http/dto"
	pkgerrors "chaptercraft-api/pkg/errors"
	"chaptercraft-api/pkg/logger"
)

// IdempotencyKeyHeader 幂等键请求头
const IdempotencyKeyHeader = "Idempotency-Key"

// BookHandler 文档生成处理器
type BookHandler struct {
	jobRepo       repository.JobRepository
	producer      *messaging.Producer
	progressStore generation.ProgressStore
	genCfg        *config.GenerationConfig
}

// NewBookHandler 创建文档生成处理器
func NewBookHandler(
	jobRepo repository.JobRepository,
	producer *messaging.Producer,
	progressStore generation.ProgressStore,
	genCfg *config.GenerationConfig,
) *BookHandler {
	return &BookHandler{
		jobRepo:       jobRepo,
		producer:      producer,
		progressStore: progressStore,
		genCfg:        genCfg,
	}
}

// CreateBook 提交文档生成任务
// @Summary 提交文档生成任务
// @Description 创建异步生成任务并立即返回任务 ID，生成在后台执行
// @Tags Books
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "幂等键，重复提交返回同一任务"
// @Param request body dto.CreateBookRequest true "任务参数"
// @Success 202 {object} dto.Response[dto.CreateBookResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	category, ok := entity.ParseCategory(strings.TrimSpace(req.Category))
	if !ok {
		dto.AppError(c, pkgerrors.ErrInvalidCategory.WithDetail(req.Category))
		return
	}

	wordTarget, err := resolveWordTarget(h.genCfg, category, req.WordTarget, req.Length)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	// 幂等处理：相同幂等键直接返回既有任务
	idempotencyKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if idempotencyKey != "" {
		existing, err := h.jobRepo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			logger.Error(ctx, "idempotency lookup failed", err)
			dto.InternalError(c, "failed to create job")
			return
		}
		if existing != nil {
			dto.Accepted(c, &dto.CreateBookResponse{
				JobID:      existing.ID,
				Status:     "processing",
				Category:   string(existing.Category),
				WordTarget: existing.WordTarget,
			})
			return
		}
	}

	job := entity.NewGenerationJob(category, strings.TrimSpace(req.Subject), strings.TrimSpace(req.Style), wordTarget)
	job.ID = uuid.New().String()
	job.IdempotencyKey = idempotencyKey

	if err := h.jobRepo.Create(ctx, job); err != nil {
		logger.Error(ctx, "failed to create job", err)
		dto.InternalError(c, "failed to create job")
		return
	}

	if _, err := h.producer.PublishBookJob(ctx, &messaging.BookGenerationMessage{
		JobID:          job.ID,
		Category:       string(job.Category),
		Subject:        job.Subject,
		Style:          job.Style,
		WordTarget:     job.WordTarget,
		IdempotencyKey: idempotencyKey,
	}); err != nil {
		logger.Error(ctx, "failed to enqueue job", err, "job_id", job.ID)
		job.Fail("failed to enqueue generation job")
		if uerr := h.jobRepo.SaveResult(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to persist enqueue failure", uerr, "job_id", job.ID)
		}
		dto.ServiceUnavailable(c, "failed to enqueue generation job")
		return
	}

	dto.Accepted(c, &dto.CreateBookResponse{
		JobID:      job.ID,
		Status:     "processing",
		Category:   string(job.Category),
		WordTarget: job.WordTarget,
	})
}

// GetProgress 查询任务进度
// @Summary 查询任务进度
// @Description 返回任务的分步进度，任务完成后附带最终文档内容
// @Tags Books
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.ProgressResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/books/{jid}/progress [get]
func (h *BookHandler) GetProgress(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := bindJobID(c)
	if jobID == "" {
		dto.BadRequest(c, "job id required")
		return
	}

	snap, err := h.progressStore.Get(ctx, jobID)
	if err != nil {
		logger.Error(ctx, "failed to load progress snapshot", err, "job_id", jobID)
		dto.InternalError(c, "failed to load progress")
		return
	}

	job, err := h.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		logger.Error(ctx, "failed to load job", err, "job_id", jobID)
		dto.InternalError(c, "failed to load job")
		return
	}
	if job == nil && snap == nil {
		dto.AppError(c, pkgerrors.ErrJobNotFound.WithDetail(jobID))
		return
	}

	var resp *dto.ProgressResponse
	if snap != nil {
		resp = dto.FromProgressSnapshot(snap)
	} else {
		// worker 尚未写入进度快照，退化为任务表中的粗粒度进度
		resp = &dto.ProgressResponse{
			JobID:          job.ID,
			Status:         string(job.Status),
			Progress:       job.Progress,
			FinalWordCount: job.FinalWordCount,
			ErrorMessage:   job.ErrorMessage,
			UpdatedAt:      job.UpdatedAt,
		}
	}

	// 数据库中的任务状态优先于快照（取消等状态变更不经过 worker）
	if job != nil {
		resp.Status = string(job.Status)
		if job.Status == entity.JobStatusCompleted {
			resp.FinalContent = job.Content
			resp.FinalWordCount = job.FinalWordCount
			resp.Progress = 100
		}
		if job.Status == entity.JobStatusFailed && resp.ErrorMessage == "" {
			resp.ErrorMessage = job.ErrorMessage
		}
	}

	dto.Success(c, resp)
}
