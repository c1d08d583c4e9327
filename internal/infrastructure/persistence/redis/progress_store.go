// Package redis 提供任务进度快照存储
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaptercraft-api/internal/domain/entity"
)

var progressTracer = otel.Tracer("redis.progress")

// progressTTL 进度快照保留时长，终态后仍可查询一段时间
const progressTTL = 24 * time.Hour

// ProgressStore 基于 Redis 的进度快照存储
// worker 写入，api-gateway 读取
type ProgressStore struct {
	client *Client
}

// NewProgressStore 创建进度存储
func NewProgressStore(client *Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func progressKey(jobID string) string {
	return fmt.Sprintf("progress:%s", jobID)
}

// Save 覆盖写入任务进度快照
func (s *ProgressStore) Save(ctx context.Context, snapshot *entity.ProgressSnapshot) error {
	ctx, span := progressTracer.Start(ctx, "progress.Save",
		trace.WithAttributes(attribute.String("job_id", snapshot.JobID)))
	defer span.End()

	bytes, err := json.Marshal(snapshot)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal progress snapshot: %w", err)
	}

	if err := s.client.rdb.Set(ctx, progressKey(snapshot.JobID), bytes, progressTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save progress snapshot: %w", err)
	}
	return nil
}

// Get 读取任务进度快照，不存在时返回 nil
func (s *ProgressStore) Get(ctx context.Context, jobID string) (*entity.ProgressSnapshot, error) {
	ctx, span := progressTracer.Start(ctx, "progress.Get",
		trace.WithAttributes(attribute.String("job_id", jobID)))
	defer span.End()

	bytes, err := s.client.rdb.Get(ctx, progressKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get progress snapshot: %w", err)
	}

	var snapshot entity.ProgressSnapshot
	if err := json.Unmarshal(bytes, &snapshot); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal progress snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete 删除任务进度快照
func (s *ProgressStore) Delete(ctx context.Context, jobID string) error {
	ctx, span := progressTracer.Start(ctx, "progress.Delete",
		trace.WithAttributes(attribute.String("job_id", jobID)))
	defer span.End()

	return s.client.rdb.Del(ctx, progressKey(jobID)).Err()
}
