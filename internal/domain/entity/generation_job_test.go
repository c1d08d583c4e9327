package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	cat, ok := ParseCategory("long-narrative")
	require.True(t, ok)
	assert.Equal(t, CategoryLongNarrative, cat)

	_, ok = ParseCategory("poetry")
	assert.False(t, ok)

	_, ok = ParseCategory("")
	assert.False(t, ok)
}

func TestGenerationJobLifecycle(t *testing.T) {
	job := NewGenerationJob(CategoryInformational, "urban beekeeping", "practical", 15000)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.False(t, job.IsTerminal())

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.False(t, job.IsTerminal())

	job.Complete("content", 15200, 6)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 15200, job.FinalWordCount)
	assert.Equal(t, 6, job.ChapterCount)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.CompletedAt)
	assert.True(t, job.IsTerminal())
}

func TestGenerationJobFail(t *testing.T) {
	job := NewGenerationJob(CategoryLongNarrative, "subject", "", 40000)
	job.Start()
	job.Fail("minimum word count not met")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "minimum word count not met", job.ErrorMessage)
	assert.True(t, job.IsTerminal())
}

func TestGenerationJobCancelOnlyPending(t *testing.T) {
	job := NewGenerationJob(CategoryInformational, "subject", "", 5000)
	assert.True(t, job.Cancel())
	assert.Equal(t, JobStatusCancelled, job.Status)

	// 已取消、运行中、已完成均不可再取消
	assert.False(t, job.Cancel())

	running := NewGenerationJob(CategoryInformational, "subject", "", 5000)
	running.Start()
	assert.False(t, running.Cancel())
	assert.Equal(t, JobStatusRunning, running.Status)
}

func TestGenerationJobRetry(t *testing.T) {
	job := NewGenerationJob(CategoryLongNarrative, "subject", "", 40000)
	job.Start()
	job.Fail("provider outage")

	assert.True(t, job.CanRetry(3))
	job.Retry()

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMessage)

	job.RetryCount = 3
	job.Fail("provider outage")
	assert.False(t, job.CanRetry(3))
}

func TestUpdateProgressClamps(t *testing.T) {
	job := NewGenerationJob(CategoryInformational, "subject", "", 5000)

	job.UpdateProgress(42)
	assert.Equal(t, 42, job.Progress)

	job.UpdateProgress(-5)
	assert.Equal(t, 0, job.Progress)

	job.UpdateProgress(250)
	assert.Equal(t, 100, job.Progress)
}
