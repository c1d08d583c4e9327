package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/internal/domain/repository"
	"chaptercraft-api/internal/infrastructure/messaging"
	pkgerrors "chaptercraft-api/pkg/errors"
	"chaptercraft-api/pkg/logger"
	"chaptercraft-api/pkg/metrics"
)

var runnerTracer = otel.Tracer("generation.runner")

// Runner 异步任务执行器
// 消费流消息，加载任务并驱动装配流程。生成本身永不失败，
// 只有最低字数未达标与持久化错误会使任务进入失败态。
type Runner struct {
	jobs      repository.JobRepository
	store     ProgressStore
	assembler *Assembler
}

// NewRunner 创建任务执行器
func NewRunner(jobs repository.JobRepository, store ProgressStore, assembler *Assembler) *Runner {
	return &Runner{
		jobs:      jobs,
		store:     store,
		assembler: assembler,
	}
}

// HandleMessage 流消息入口，注册为 book_gen 类型的处理函数
func (r *Runner) HandleMessage(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.BookGenerationMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("unmarshal book generation payload: %w", err)
	}
	if payload.JobID == "" {
		logger.Warn(ctx, "book generation message missing job_id", "message_id", msg.ID)
		return nil
	}
	return r.Run(ctx, payload.JobID)
}

// Run 执行单个生成任务
// 返回错误表示可重试（由流的重投递机制接管）；
// 业务性失败（字数未达标）落库后返回 nil，不再重试。
func (r *Runner) Run(ctx context.Context, jobID string) error {
	ctx = logger.WithContext(ctx, logger.JobIDKey, jobID)
	ctx, span := runnerTracer.Start(ctx, "runner.Run",
		trace.WithAttributes(attribute.String("job_id", jobID)))
	defer span.End()

	log := logger.FromContext(ctx)

	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "load job")
	}
	if job == nil {
		log.Warn("job not found, dropping message", "job_id", jobID)
		return nil
	}
	if job.IsTerminal() {
		// 重复投递或已取消的任务直接丢弃
		log.Info("job already terminal, skipping", "job_id", jobID, "status", string(job.Status))
		return nil
	}
	if job.WordTarget <= 0 {
		job.Fail("invalid word target")
		if uerr := r.jobs.SaveResult(ctx, job); uerr != nil {
			return pkgerrors.Wrap(uerr, pkgerrors.CodeDatabaseError, "persist job failure")
		}
		return nil
	}

	ok, err := r.jobs.MarkRunning(ctx, job.ID)
	if err != nil {
		span.RecordError(err)
		return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "mark job running")
	}
	if !ok {
		// 读取快照后任务被并发取消，放弃执行
		log.Info("job no longer pending, skipping", "job_id", jobID)
		return nil
	}
	job.Start()

	reporter := NewReporter(r.store, job.ID)
	reporter.SetStatus(ctx, entity.JobStatusRunning)

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	start := time.Now()
	category := string(job.Category)

	doc, err := r.assembler.Assemble(ctx, job, reporter)
	elapsed := time.Since(start)
	metrics.DocumentGenerationDuration.WithLabelValues(category).Observe(elapsed.Seconds())

	if err != nil {
		return r.failJob(ctx, job, reporter, err)
	}

	reporter.Report(ctx, "saving",
		fmt.Sprintf("persisting document with %d words across %d chapters", doc.WordCount, doc.ChapterCount), 95)

	job.Complete(doc.Content, doc.WordCount, doc.ChapterCount)
	if err := r.jobs.SaveResult(ctx, job); err != nil {
		span.RecordError(err)
		// 结果落库失败是可重试错误，任务保持 running 由重投递接管；
		// 进度存储独立于数据库，先把故障写进进度日志让查询方可见
		reporter.Report(ctx, "saving",
			"failed to persist result, delivery will be retried: "+err.Error(), 95)
		return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "persist job result")
	}

	reporter.Terminal(ctx, entity.JobStatusCompleted, "completed",
		fmt.Sprintf("document completed with %d words (%.1f%% of target)", doc.WordCount, doc.CompletionPercent),
		doc.WordCount, "")

	metrics.DocumentGenerationTotal.WithLabelValues(category, "success").Inc()

	log.Info("generation job completed",
		"job_id", job.ID,
		"word_count", doc.WordCount,
		"chapter_count", doc.ChapterCount,
		"duration_ms", elapsed.Milliseconds(),
	)
	span.SetAttributes(
		attribute.Int("document.word_count", doc.WordCount),
		attribute.Int("document.chapter_count", doc.ChapterCount),
	)
	return nil
}

// HandleExhausted 消息重投递耗尽进入死信队列后的收尾
// 任务不能停留在 running：落库为失败态并写终态进度，保留已累计的进度百分比。
func (r *Runner) HandleExhausted(ctx context.Context, msg *messaging.Message, cause error) {
	var payload messaging.BookGenerationMessage
	if err := msg.UnmarshalPayload(&payload); err != nil || payload.JobID == "" {
		return
	}
	ctx = logger.WithContext(ctx, logger.JobIDKey, payload.JobID)
	log := logger.FromContext(ctx)

	job, err := r.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		log.Error("failed to load job for abandoned message", "job_id", payload.JobID, "error", err)
		return
	}
	if job == nil || job.IsTerminal() {
		return
	}

	errMsg := "generation abandoned after repeated delivery failures"
	if cause != nil {
		errMsg += ": " + cause.Error()
	}

	job.Fail(errMsg)
	if uerr := r.jobs.SaveResult(ctx, job); uerr != nil {
		log.Error("failed to persist abandoned job", "job_id", job.ID, "error", uerr)
	}

	reporter := ResumeReporter(ctx, r.store, job.ID)
	reporter.Terminal(ctx, entity.JobStatusFailed, "failed", errMsg, 0, errMsg)
	metrics.DocumentGenerationTotal.WithLabelValues(string(job.Category), "failed").Inc()

	log.Warn("generation job abandoned", "job_id", job.ID, "error", errMsg)
}

// failJob 记录业务性失败：落库为失败态并写终态进度
// 字数未达标是确定性结果，重试不会改变，不向消费方返回错误。
func (r *Runner) failJob(ctx context.Context, job *entity.GenerationJob, reporter *Reporter, cause error) error {
	log := logger.FromContext(ctx)

	var appErr *pkgerrors.AppError
	msg := cause.Error()
	if errors.As(cause, &appErr) {
		msg = appErr.Message
		if appErr.Detail != "" {
			msg = appErr.Message + ": " + appErr.Detail
		}
	}

	job.Fail(msg)
	if uerr := r.jobs.SaveResult(ctx, job); uerr != nil {
		reporter.Report(ctx, "failed",
			"failed to persist job failure, delivery will be retried: "+uerr.Error(), 0)
		return pkgerrors.Wrap(uerr, pkgerrors.CodeDatabaseError, "persist job failure")
	}

	reporter.Terminal(ctx, entity.JobStatusFailed, "failed", msg, 0, msg)
	metrics.DocumentGenerationTotal.WithLabelValues(string(job.Category), "failed").Inc()

	log.Error("generation job failed", "job_id", job.ID, "error", msg)
	return nil
}
