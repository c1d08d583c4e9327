package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaptercraft-api/internal/domain/entity"
)

func TestReporterAppendsSteps(t *testing.T) {
	r := NewReporter(NewMemoryProgressStore(), "job-1")
	ctx := context.Background()

	r.Report(ctx, "planning", "planned 3 chapters", 5)
	r.Report(ctx, "chapter_1", "chapter 1 done", 28)

	snap := r.Snapshot()
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, "chapter_1", snap.CurrentStep)
	assert.Equal(t, 28, snap.OverallProgress)
}

func TestReporterProgressNeverDecreases(t *testing.T) {
	r := NewReporter(NewMemoryProgressStore(), "job-1")
	ctx := context.Background()

	r.Report(ctx, "a", "", 40)
	r.Report(ctx, "b", "", 10)

	snap := r.Snapshot()
	assert.Equal(t, 40, snap.OverallProgress)
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, 40, snap.Steps[1].Percent, "late lower percent is clamped to the current value")
}

func TestReporterClampsPercentRange(t *testing.T) {
	r := NewReporter(NewMemoryProgressStore(), "job-1")
	ctx := context.Background()

	r.Report(ctx, "a", "", -10)
	assert.Equal(t, 0, r.Snapshot().OverallProgress)

	r.Report(ctx, "b", "", 150)
	assert.Equal(t, 100, r.Snapshot().OverallProgress)
}

func TestReporterTerminalCompleted(t *testing.T) {
	store := NewMemoryProgressStore()
	r := NewReporter(store, "job-1")
	ctx := context.Background()

	r.Report(ctx, "chapter_1", "", 40)
	r.Terminal(ctx, entity.JobStatusCompleted, "completed", "document ready", 15234, "")

	snap := r.Snapshot()
	assert.Equal(t, entity.JobStatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.OverallProgress)
	assert.Equal(t, 15234, snap.FinalWordCount)
	assert.Empty(t, snap.ErrorMessage)

	persisted, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, entity.JobStatusCompleted, persisted.Status)
}

func TestReporterTerminalFailed(t *testing.T) {
	r := NewReporter(NewMemoryProgressStore(), "job-1")
	ctx := context.Background()

	r.Terminal(ctx, entity.JobStatusFailed, "failed", "minimum word count unmet", 0, "minimum word count unmet")

	snap := r.Snapshot()
	assert.Equal(t, entity.JobStatusFailed, snap.Status)
	assert.Equal(t, "minimum word count unmet", snap.ErrorMessage)
}

func TestReporterTerminalFailedKeepsProgress(t *testing.T) {
	r := NewReporter(NewMemoryProgressStore(), "job-1")
	ctx := context.Background()

	r.Report(ctx, "chapter_2", "chapter 2 done", 40)
	r.Terminal(ctx, entity.JobStatusFailed, "failed", "minimum word count unmet", 0, "minimum word count unmet")

	// 失败终态停在工作实际中断的进度，而非 100
	snap := r.Snapshot()
	assert.Equal(t, entity.JobStatusFailed, snap.Status)
	assert.Equal(t, 40, snap.OverallProgress)
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, 40, snap.Steps[1].Percent)
}

func TestResumeReporterRestoresSnapshot(t *testing.T) {
	store := NewMemoryProgressStore()
	ctx := context.Background()

	first := NewReporter(store, "job-1")
	first.SetStatus(ctx, entity.JobStatusRunning)
	first.Report(ctx, "chapter_3", "chapter 3 done", 55)

	resumed := ResumeReporter(ctx, store, "job-1")
	snap := resumed.Snapshot()
	assert.Equal(t, 55, snap.OverallProgress)
	assert.Equal(t, "chapter_3", snap.CurrentStep)
	require.Len(t, snap.Steps, 1)

	resumed.Terminal(ctx, entity.JobStatusFailed, "failed", "abandoned", 0, "abandoned")
	persisted, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, entity.JobStatusFailed, persisted.Status)
	assert.Equal(t, 55, persisted.OverallProgress)
}

func TestResumeReporterWithoutSnapshotStartsFresh(t *testing.T) {
	r := ResumeReporter(context.Background(), NewMemoryProgressStore(), "absent")

	snap := r.Snapshot()
	assert.Equal(t, entity.JobStatusPending, snap.Status)
	assert.Equal(t, 0, snap.OverallProgress)
	assert.Empty(t, snap.Steps)
}

func TestReporterNilStoreIsSafe(t *testing.T) {
	r := NewReporter(nil, "job-1")
	ctx := context.Background()

	r.Report(ctx, "planning", "", 5)
	r.Terminal(ctx, entity.JobStatusCompleted, "completed", "", 100, "")

	assert.Equal(t, 100, r.Snapshot().OverallProgress)
}

func TestMemoryProgressStoreIsolation(t *testing.T) {
	store := NewMemoryProgressStore()
	ctx := context.Background()

	snap := &entity.ProgressSnapshot{
		JobID:           "job-1",
		OverallProgress: 50,
		Steps:           []entity.ProgressStep{{Step: "a", Percent: 50}},
	}
	require.NoError(t, store.Save(ctx, snap))

	// 保存后修改原快照不应影响存储内容
	snap.Steps[0].Step = "mutated"

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Steps[0].Step)
}

func TestMemoryProgressStoreMissingJob(t *testing.T) {
	store := NewMemoryProgressStore()

	got, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}
