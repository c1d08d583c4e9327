package generation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/internal/domain/repository"
	"chaptercraft-api/internal/infrastructure/messaging"
)

// fakeJobRepo 内存任务仓储
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*entity.GenerationJob

	// afterGet 在每次 GetByID 返回快照后调用，用于模拟并发写
	afterGet func()
	// saveErr 非空时 SaveResult 返回该错误
	saveErr error
}

func newFakeJobRepo(jobs ...*entity.GenerationJob) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[string]*entity.GenerationJob)}
	for _, j := range jobs {
		cp := *j
		r.jobs[j.ID] = &cp
	}
	return r
}

func (r *fakeJobRepo) Create(_ context.Context, job *entity.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id string) (*entity.GenerationJob, error) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	var cp *entity.GenerationJob
	if ok {
		c := *job
		cp = &c
	}
	hook := r.afterGet
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return cp, nil
}

func (r *fakeJobRepo) Update(_ context.Context, job *entity.GenerationJob) error {
	return r.Create(context.Background(), job)
}

func (r *fakeJobRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func (r *fakeJobRepo) List(context.Context, *repository.JobFilter, repository.Pagination) (*repository.PagedResult[*entity.GenerationJob], error) {
	return nil, nil
}

func (r *fakeJobRepo) GetByIdempotencyKey(_ context.Context, key string) (*entity.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.IdempotencyKey == key {
			cp := *job
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) UpdateStatus(_ context.Context, id string, status entity.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = status
	}
	return nil
}

func (r *fakeJobRepo) MarkRunning(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != entity.JobStatusPending {
		return false, nil
	}
	job.Status = entity.JobStatusRunning
	return true, nil
}

func (r *fakeJobRepo) UpdateProgress(_ context.Context, id string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Progress = progress
	}
	return nil
}

func (r *fakeJobRepo) SaveResult(_ context.Context, job *entity.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeJobRepo) GetPendingJobs(context.Context, int) ([]*entity.GenerationJob, error) {
	return nil, nil
}

func (r *fakeJobRepo) GetRunningJobs(context.Context) ([]*entity.GenerationJob, error) {
	return nil, nil
}

func (r *fakeJobRepo) GetJobStats(context.Context) (*repository.JobStats, error) {
	return &repository.JobStats{}, nil
}

func newTestRunner(repo repository.JobRepository, store ProgressStore) *Runner {
	return NewRunner(repo, store, NewAssembler(exactTargetProvider(), testGenConfig()))
}

func TestRunnerCompletesJob(t *testing.T) {
	job := testJob(entity.CategoryInformational, 5000)
	repo := newFakeJobRepo(job)
	store := NewMemoryProgressStore()
	r := newTestRunner(repo, store)

	require.NoError(t, r.Run(context.Background(), job.ID))

	saved, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, entity.JobStatusCompleted, saved.Status)
	assert.Equal(t, 5000, saved.FinalWordCount)
	assert.Equal(t, 2, saved.ChapterCount)
	assert.NotEmpty(t, saved.Content)
	assert.Equal(t, 100, saved.Progress)

	snap, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, entity.JobStatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.OverallProgress)
	assert.Equal(t, 5000, snap.FinalWordCount)
}

func TestRunnerSkipsMissingJob(t *testing.T) {
	r := newTestRunner(newFakeJobRepo(), NewMemoryProgressStore())

	// 未知任务不视为错误，消息被丢弃而非重试
	assert.NoError(t, r.Run(context.Background(), "no-such-job"))
}

func TestRunnerSkipsTerminalJob(t *testing.T) {
	job := testJob(entity.CategoryInformational, 5000)
	job.Status = entity.JobStatusCancelled
	repo := newFakeJobRepo(job)
	r := newTestRunner(repo, NewMemoryProgressStore())

	require.NoError(t, r.Run(context.Background(), job.ID))

	saved, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusCancelled, saved.Status, "cancelled jobs must not be executed")
}

func TestRunnerFailsInvalidWordTarget(t *testing.T) {
	job := testJob(entity.CategoryInformational, 0)
	repo := newFakeJobRepo(job)
	r := newTestRunner(repo, NewMemoryProgressStore())

	require.NoError(t, r.Run(context.Background(), job.ID))

	saved, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusFailed, saved.Status)
	assert.NotEmpty(t, saved.ErrorMessage)
}

func TestRunnerHandleMessage(t *testing.T) {
	job := testJob(entity.CategoryInformational, 5000)
	repo := newFakeJobRepo(job)
	r := newTestRunner(repo, NewMemoryProgressStore())

	msg, err := messaging.NewMessage(job.ID, messaging.MessageTypeBookGen, string(job.Category), &messaging.BookGenerationMessage{
		JobID:      job.ID,
		Category:   string(job.Category),
		Subject:    job.Subject,
		WordTarget: job.WordTarget,
	})
	require.NoError(t, err)

	require.NoError(t, r.HandleMessage(context.Background(), msg))

	saved, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusCompleted, saved.Status)
}

func TestRunnerSkipsJobCancelledAfterLoad(t *testing.T) {
	job := testJob(entity.CategoryInformational, 5000)
	repo := newFakeJobRepo(job)
	// 快照读取后任务被取消，模拟取消请求与执行开始之间的竞争
	repo.afterGet = func() {
		repo.mu.Lock()
		if j, ok := repo.jobs[job.ID]; ok && j.Status == entity.JobStatusPending {
			j.Status = entity.JobStatusCancelled
		}
		repo.mu.Unlock()
	}
	r := newTestRunner(repo, NewMemoryProgressStore())

	require.NoError(t, r.Run(context.Background(), job.ID))

	repo.afterGet = nil
	saved, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusCancelled, saved.Status, "cancelled job must not be resurrected")
}

func TestRunnerReturnsErrorWhenSaveResultFails(t *testing.T) {
	job := testJob(entity.CategoryInformational, 5000)
	repo := newFakeJobRepo(job)
	repo.saveErr = errors.New("connection refused")
	store := NewMemoryProgressStore()
	r := newTestRunner(repo, store)

	// 落库失败交由流重投递，但故障必须出现在进度日志里
	require.Error(t, r.Run(context.Background(), job.ID))

	saved, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusRunning, saved.Status)

	snap, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.NotEmpty(t, snap.Steps)
	last := snap.Steps[len(snap.Steps)-1]
	assert.Contains(t, last.Message, "failed to persist result")
	assert.Contains(t, last.Message, "connection refused")
}

func TestRunnerHandleExhaustedMarksJobFailed(t *testing.T) {
	job := testJob(entity.CategoryInformational, 5000)
	job.Status = entity.JobStatusRunning
	repo := newFakeJobRepo(job)
	store := NewMemoryProgressStore()

	// 中途中断的任务留有进度快照
	seed := NewReporter(store, job.ID)
	seed.SetStatus(context.Background(), entity.JobStatusRunning)
	seed.Report(context.Background(), "chapter_1", "chapter 1 complete", 40)

	r := newTestRunner(repo, store)
	msg, err := messaging.NewMessage(job.ID, messaging.MessageTypeBookGen, string(job.Category), &messaging.BookGenerationMessage{
		JobID: job.ID,
	})
	require.NoError(t, err)

	r.HandleExhausted(context.Background(), msg, errors.New("handler failed"))

	saved, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusFailed, saved.Status)
	assert.Contains(t, saved.ErrorMessage, "abandoned")

	snap, gerr := store.Get(context.Background(), job.ID)
	require.NoError(t, gerr)
	require.NotNil(t, snap)
	assert.Equal(t, entity.JobStatusFailed, snap.Status)
	assert.Equal(t, 40, snap.OverallProgress, "accumulated progress survives the failure")
	assert.Contains(t, snap.ErrorMessage, "handler failed")
}

func TestRunnerHandleExhaustedSkipsTerminalJob(t *testing.T) {
	job := testJob(entity.CategoryInformational, 5000)
	job.Status = entity.JobStatusCompleted
	job.FinalWordCount = 5000
	repo := newFakeJobRepo(job)
	r := newTestRunner(repo, NewMemoryProgressStore())

	msg, err := messaging.NewMessage(job.ID, messaging.MessageTypeBookGen, string(job.Category), &messaging.BookGenerationMessage{
		JobID: job.ID,
	})
	require.NoError(t, err)

	r.HandleExhausted(context.Background(), msg, errors.New("handler failed"))

	saved, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusCompleted, saved.Status)
	assert.Equal(t, 5000, saved.FinalWordCount)
}

func TestRunnerHandleMessageMissingJobID(t *testing.T) {
	r := newTestRunner(newFakeJobRepo(), NewMemoryProgressStore())

	msg, err := messaging.NewMessage("m-1", messaging.MessageTypeBookGen, "", &messaging.BookGenerationMessage{})
	require.NoError(t, err)

	assert.NoError(t, r.HandleMessage(context.Background(), msg))
}
