package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaptercraft-api/internal/domain/entity"
)

func testJob(category entity.ContentCategory, wordTarget int) *entity.GenerationJob {
	job := entity.NewGenerationJob(category, "a test story", "", wordTarget)
	job.ID = "job-test"
	return job
}

func TestAssembleExactTargetProvider(t *testing.T) {
	// 提供商每次恰好命中目标字数：无任何扩展段落
	provider := exactTargetProvider()
	a := NewAssembler(provider, testGenConfig())

	job := testJob(entity.CategoryInformational, 5000)
	doc, err := a.Assemble(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, 5000, doc.WordCount)
	assert.Equal(t, 2, doc.ChapterCount)
	assert.Equal(t, 0, doc.ExtensionWordCount)
	assert.InDelta(t, 100.0, doc.CompletionPercent, 0.01)
}

func TestAssembleAllProvidersFailStillCompletes(t *testing.T) {
	provider := &fakeProvider{
		respond: func(GenerateRequest, int) (string, error) {
			return "", errors.New("provider outage")
		},
	}
	a := NewAssembler(provider, testGenConfig())

	job := testJob(entity.CategoryLongNarrative, 9000)
	doc, err := a.Assemble(context.Background(), job, nil)
	require.NoError(t, err, "total provider outage must not fail the document")

	assert.GreaterOrEqual(t, doc.WordCount, 9000)
	assert.Equal(t, 3, doc.ChapterCount)
	// 缺口在章节层补足，文档层无需扩展段落
	assert.Equal(t, 0, doc.ExtensionWordCount)
}

func TestAssembleDocumentStructure(t *testing.T) {
	provider := exactTargetProvider()
	a := NewAssembler(provider, testGenConfig())

	job := testJob(entity.CategoryInformational, 5000)
	doc, err := a.Assemble(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, "a test story", doc.Title)
	assert.Contains(t, doc.Content, "Chapter 1: Introduction")
	assert.Contains(t, doc.Content, "Chapter 2: Getting Started")
	assert.Contains(t, doc.Content, "Document Statistics")
	// 标题与尾注不计入字数
	assert.Greater(t, CountWords(doc.Content), doc.WordCount)
}

func TestAssemblePassesContextTailBetweenChapters(t *testing.T) {
	provider := exactTargetProvider()
	a := NewAssembler(provider, testGenConfig())

	job := testJob(entity.CategoryLongNarrative, 9000)
	_, err := a.Assemble(context.Background(), job, nil)
	require.NoError(t, err)

	require.GreaterOrEqual(t, provider.callCount(), 3)
	assert.Empty(t, provider.calls[0].Context, "first chapter has no preceding text")
	for _, call := range provider.calls[1:] {
		assert.NotEmpty(t, call.Context, "later chapters must receive the preceding tail")
	}
}

func TestAssembleReportsMonotonicProgress(t *testing.T) {
	store := NewMemoryProgressStore()
	reporter := NewReporter(store, "job-test")
	a := NewAssembler(exactTargetProvider(), testGenConfig())

	job := testJob(entity.CategoryInformational, 5000)
	_, err := a.Assemble(context.Background(), job, reporter)
	require.NoError(t, err)

	snap := reporter.Snapshot()
	require.NotEmpty(t, snap.Steps)
	assert.Equal(t, "planning", snap.Steps[0].Step)

	last := 0
	for _, step := range snap.Steps {
		assert.GreaterOrEqual(t, step.Percent, last, "progress must never decrease")
		last = step.Percent
	}
}

func TestExtendSectionProviderFirstThenExpand(t *testing.T) {
	// 提供商返回一半字数，剩余缺口由扩写补足
	provider := &fakeProvider{
		respond: func(req GenerateRequest, _ int) (string, error) {
			return textOfWords(req.WordTarget / 2), nil
		},
	}
	a := NewAssembler(provider, testGenConfig())

	job := testJob(entity.CategoryInformational, 5000)
	content := a.extendSection(context.Background(), job, "Appendix 1: Supplementary Material", 1000)
	assert.GreaterOrEqual(t, CountWords(content), 1000)
}

func TestExtendSectionSurvivesProviderFailure(t *testing.T) {
	provider := &fakeProvider{
		respond: func(GenerateRequest, int) (string, error) {
			return "", errors.New("down")
		},
	}
	a := NewAssembler(provider, testGenConfig())

	job := testJob(entity.CategoryLongNarrative, 9000)
	content := a.extendSection(context.Background(), job, "Epilogue: Resolution", 800)
	assert.GreaterOrEqual(t, CountWords(content), 800)
}

func TestExtensionPhaseSizesToMinimumDeficit(t *testing.T) {
	provider := exactTargetProvider()
	a := NewAssembler(provider, testGenConfig())
	job := testJob(entity.CategoryInformational, 12000)

	// 章节合计 8000，最低 9600：扩展段按距最低字数的缺口定尺寸，补足即停
	sections, total, added := a.extensionPhase(context.Background(), job, nil,
		[]string{"Chapter 1: Opening\n\nbody"}, 8000, 9600)

	require.Len(t, provider.calls, 1)
	assert.Equal(t, 1600, provider.calls[0].WordTarget, "deficit measured against the minimum, not the full target")
	assert.Equal(t, 9600, total)
	assert.Equal(t, 1600, added)
	require.Len(t, sections, 2)
	assert.Contains(t, sections[1], "Appendix 1")
}

func TestExtensionPhaseStopsAtMinimum(t *testing.T) {
	provider := exactTargetProvider()
	a := NewAssembler(provider, testGenConfig())
	job := testJob(entity.CategoryLongNarrative, 10000)

	_, total, _ := a.extensionPhase(context.Background(), job, nil, nil, 5000, 8000)

	assert.GreaterOrEqual(t, total, 8000)
	assert.Less(t, total, 10000, "extensions do not overshoot toward the full target")
}

func TestClampChunk(t *testing.T) {
	a := NewAssembler(exactTargetProvider(), testGenConfig())

	assert.Equal(t, 1000, a.clampChunk(500), "small deficits round up to the chunk minimum")
	assert.Equal(t, 1500, a.clampChunk(1500))
	assert.Equal(t, 2500, a.clampChunk(8000), "large deficits cap at the chunk maximum")
}

func TestMinRequired(t *testing.T) {
	cfg := testGenConfig()
	a := NewAssembler(exactTargetProvider(), cfg)
	assert.Equal(t, 8000, a.minRequired(10000))

	cfg.MinCompletionRatio = 0
	assert.Equal(t, 8000, a.minRequired(10000), "missing ratio falls back to the default")
}

func TestExtensionTitles(t *testing.T) {
	assert.Equal(t, "Epilogue: Resolution", extensionTitle(entity.CategoryLongNarrative, 0))
	assert.Equal(t, "Appendix 1: Supplementary Material", extensionTitle(entity.CategoryLongNarrative, 1))
	assert.Equal(t, "Appendix 1: Supplementary Material", extensionTitle(entity.CategoryInformational, 0))
	assert.Equal(t, "Appendix 2: Supplementary Material", extensionTitle(entity.CategoryIllustratedShortForm, 1))
}

func TestAssembleRejectsNonPositiveTarget(t *testing.T) {
	a := NewAssembler(exactTargetProvider(), testGenConfig())

	job := testJob(entity.CategoryLongNarrative, 0)
	_, err := a.Assemble(context.Background(), job, nil)
	assert.Error(t, err)
}
