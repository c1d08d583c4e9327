package generation

import (
	"context"
	"sync"
	"time"

	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/pkg/logger"
)

// ProgressStore 进度快照存储接口
// 生产实现基于 Redis（worker 写、gateway 读），测试使用内存实现。
type ProgressStore interface {
	Save(ctx context.Context, snapshot *entity.ProgressSnapshot) error
	Get(ctx context.Context, jobID string) (*entity.ProgressSnapshot, error)
}

// Reporter 绑定单个任务的进度上报器
// 追加写进度条目；百分比单调不减；存储失败仅记日志，不影响生成流程。
type Reporter struct {
	store ProgressStore
	jobID string

	mu       sync.Mutex
	snapshot entity.ProgressSnapshot
}

// NewReporter 创建进度上报器
func NewReporter(store ProgressStore, jobID string) *Reporter {
	return &Reporter{
		store: store,
		jobID: jobID,
		snapshot: entity.ProgressSnapshot{
			JobID:     jobID,
			Status:    entity.JobStatusPending,
			UpdatedAt: time.Now(),
		},
	}
}

// ResumeReporter 创建上报器并从存储恢复既有快照
// 用于接管进行中任务的收尾（如消息进入死信队列后落终态），保留已累计的进度。
func ResumeReporter(ctx context.Context, store ProgressStore, jobID string) *Reporter {
	r := NewReporter(store, jobID)
	if store == nil {
		return r
	}
	if snap, err := store.Get(ctx, jobID); err == nil && snap != nil {
		r.snapshot = *snap
		r.snapshot.Steps = append([]entity.ProgressStep(nil), snap.Steps...)
	}
	return r
}

// Report 追加一条进度记录
// percent 低于当前进度时被钳制为当前值，保证单调不减。
func (r *Reporter) Report(ctx context.Context, step, message string, percent int) {
	r.mu.Lock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < r.snapshot.OverallProgress {
		percent = r.snapshot.OverallProgress
	}

	now := time.Now()
	r.snapshot.Steps = append(r.snapshot.Steps, entity.ProgressStep{
		Step:      step,
		Message:   message,
		Percent:   percent,
		Timestamp: now,
	})
	r.snapshot.CurrentStep = step
	r.snapshot.OverallProgress = percent
	r.snapshot.UpdatedAt = now

	snap := r.snapshot
	r.mu.Unlock()

	r.persist(ctx, &snap)
}

// SetStatus 更新任务状态
func (r *Reporter) SetStatus(ctx context.Context, status entity.JobStatus) {
	r.mu.Lock()
	r.snapshot.Status = status
	r.snapshot.UpdatedAt = time.Now()
	snap := r.snapshot
	r.mu.Unlock()

	r.persist(ctx, &snap)
}

// Terminal 记录终态：状态、收尾进度条目与最终字数
// 仅完成态推进到 100；失败等终态保持当前进度，反映工作实际停止的位置。
func (r *Reporter) Terminal(ctx context.Context, status entity.JobStatus, step, message string, finalWordCount int, errMsg string) {
	r.mu.Lock()

	now := time.Now()
	percent := 100
	if status != entity.JobStatusCompleted {
		percent = r.snapshot.OverallProgress
	}
	r.snapshot.Steps = append(r.snapshot.Steps, entity.ProgressStep{
		Step:      step,
		Message:   message,
		Percent:   percent,
		Timestamp: now,
	})
	r.snapshot.CurrentStep = step
	r.snapshot.OverallProgress = percent
	r.snapshot.Status = status
	r.snapshot.FinalWordCount = finalWordCount
	r.snapshot.ErrorMessage = errMsg
	r.snapshot.UpdatedAt = now

	snap := r.snapshot
	r.mu.Unlock()

	r.persist(ctx, &snap)
}

// Snapshot 返回当前快照副本
func (r *Reporter) Snapshot() entity.ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.snapshot
	snap.Steps = append([]entity.ProgressStep(nil), r.snapshot.Steps...)
	return snap
}

func (r *Reporter) persist(ctx context.Context, snap *entity.ProgressSnapshot) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, snap); err != nil {
		logger.Warn(ctx, "failed to persist progress snapshot", "job_id", r.jobID, "error", err.Error())
	}
}

// MemoryProgressStore 内存进度存储，用于测试与单进程部署
type MemoryProgressStore struct {
	mu        sync.RWMutex
	snapshots map[string]*entity.ProgressSnapshot
}

// NewMemoryProgressStore 创建内存进度存储
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{
		snapshots: make(map[string]*entity.ProgressSnapshot),
	}
}

// Save 覆盖写入快照
func (s *MemoryProgressStore) Save(_ context.Context, snapshot *entity.ProgressSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := *snapshot
	snap.Steps = append([]entity.ProgressStep(nil), snapshot.Steps...)
	s.snapshots[snapshot.JobID] = &snap
	return nil
}

// Get 读取快照，不存在时返回 nil
func (s *MemoryProgressStore) Get(_ context.Context, jobID string) (*entity.ProgressSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[jobID]
	if !ok {
		return nil, nil
	}
	cp := *snap
	cp.Steps = append([]entity.ProgressStep(nil), snap.Steps...)
	return &cp, nil
}
