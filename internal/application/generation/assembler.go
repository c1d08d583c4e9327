package generation

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
	pkgerrors "chaptercraft-api/pkg/errors"
	"chaptercraft-api/pkg/logger"
	"chaptercraft-api/pkg/metrics"
)

var assemblerTracer = otel.Tracer("generation.assembler")

// 兜底常量
const (
	defaultMinCompletionRatio = 0.8
	defaultStandardExtensions = 5
	defaultGuaranteeAttempts  = 10
	defaultGuaranteeChunkMin  = 1000
	defaultGuaranteeChunkMax  = 2500
	defaultContextTailWords   = 120
)

// Assembler 文档装配器
// 驱动规划与逐章生成，再执行两阶段字数保底：
// 常规扩展段落（提供商优先）与纯扩写保底分块。
type Assembler struct {
	planner  *Planner
	chapters *ChapterGenerator
	expander *Expander
	provider ContentProvider
	cfg      *config.GenerationConfig
}

// NewAssembler 创建文档装配器
func NewAssembler(provider ContentProvider, cfg *config.GenerationConfig) *Assembler {
	expander := NewExpander()
	return &Assembler{
		planner:  NewPlanner(cfg),
		chapters: NewChapterGenerator(provider, expander, cfg),
		expander: expander,
		provider: provider,
		cfg:      cfg,
	}
}

// Assemble 装配整篇文档
// 唯一的致命错误是保底后仍低于最低字数（ErrMinWordCountUnmet）。
func (a *Assembler) Assemble(ctx context.Context, job *entity.GenerationJob, reporter *Reporter) (*entity.Document, error) {
	ctx, span := assemblerTracer.Start(ctx, "assembler.Assemble",
		trace.WithAttributes(
			attribute.String("job_id", job.ID),
			attribute.String("category", string(job.Category)),
			attribute.Int("word_target", job.WordTarget),
		))
	defer span.End()

	log := logger.FromContext(ctx)
	target := job.WordTarget

	// 章节规划
	plans := a.planner.Plan(job.Category, target)
	if len(plans) == 0 {
		return nil, pkgerrors.ErrInvalidParam.WithDetail("word_target must be positive")
	}
	if reporter != nil {
		reporter.Report(ctx, "planning",
			fmt.Sprintf("planned %d chapters for %d word target", len(plans), target), 5)
	}

	// 逐章生成
	var (
		sections      []string
		results       []entity.ChapterResult
		totalWords    int
		extensionWord int
	)
	for i, plan := range plans {
		docCtx := DocContext{
			Subject:      job.Subject,
			Style:        job.Style,
			PreviousTail: previousTail(results, a.contextTailWords()),
			RunningWords: totalWords,
			TotalTarget:  target,
		}

		res := a.chapters.Generate(ctx, job.Category, plan, docCtx, reporter)
		results = append(results, res)
		sections = append(sections, fmt.Sprintf("Chapter %d: %s\n\n%s", plan.Index, plan.Title, res.Content))
		totalWords += res.WordCount

		if reporter != nil {
			reporter.Report(ctx,
				fmt.Sprintf("chapter_%d", plan.Index),
				fmt.Sprintf("chapter %d of %d complete, %d words so far", plan.Index, len(plans), totalWords),
				5+70*(i+1)/len(plans),
			)
		}
	}

	minRequired := a.minRequired(target)

	// 常规扩展阶段：提供商优先，按距最低字数的缺口定尺寸
	if totalWords < minRequired {
		var extAdded int
		sections, totalWords, extAdded = a.extensionPhase(ctx, job, reporter, sections, totalWords, minRequired)
		extensionWord += extAdded
	}

	// 保底阶段：纯确定性扩写，固定尺寸分块
	if totalWords < minRequired {
		if reporter != nil {
			reporter.Report(ctx, "guarantee_phase",
				fmt.Sprintf("document at %d of %d minimum words, entering guarantee phase", totalWords, minRequired), 85)
		}

		maxAttempts := a.cfg.GuaranteeAttempts
		if maxAttempts <= 0 {
			maxAttempts = defaultGuaranteeAttempts
		}
		for i := 0; i < maxAttempts && totalWords < minRequired; i++ {
			chunk := a.clampChunk(minRequired - totalWords)
			title := fmt.Sprintf("Addendum %d", i+1)
			content := a.expander.Expand("", title, job.Subject, job.Category, chunk)

			wc := CountWords(content)
			sections = append(sections, fmt.Sprintf("%s\n\n%s", title, content))
			totalWords += wc
			extensionWord += wc
			metrics.ExpansionWordsTotal.WithLabelValues(string(job.Category), "guarantee").Add(float64(wc))

			if reporter != nil {
				reporter.Report(ctx, "guarantee_phase",
					fmt.Sprintf("guarantee chunk %d added %d words, total %d", i+1, wc, totalWords),
					85+(i+1)*10/maxAttempts,
				)
			}
		}
	}

	// 硬校验：保底耗尽仍未达标则任务失败
	if totalWords < minRequired {
		err := pkgerrors.ErrMinWordCountUnmet.
			WithDetail(fmt.Sprintf("final word count %d below required minimum %d (target %d)", totalWords, minRequired, target))
		span.RecordError(err)
		return nil, err
	}

	completion := float64(totalWords) / float64(target) * 100

	doc := &entity.Document{
		Title:              job.Subject,
		Content:            a.renderDocument(job, sections, totalWords, len(plans), completion),
		WordCount:          totalWords,
		ChapterCount:       len(plans),
		ExtensionWordCount: extensionWord,
		CompletionPercent:  completion,
	}

	metrics.DocumentWordCount.WithLabelValues(string(job.Category)).Observe(float64(totalWords))
	metrics.DocumentCompletionRatio.WithLabelValues(string(job.Category)).Observe(float64(totalWords) / float64(target))

	log.Info("document assembled",
		"job_id", job.ID,
		"chapters", len(plans),
		"word_count", totalWords,
		"extension_words", extensionWord,
		"completion_percent", fmt.Sprintf("%.1f", completion),
	)
	span.SetAttributes(
		attribute.Int("document.word_count", totalWords),
		attribute.Int("document.extension_words", extensionWord),
	)

	return doc, nil
}

// extensionPhase 常规扩展阶段
// 每段按 minRequired-totalWords 的剩余缺口定尺寸，达到最低字数即停，不向完整目标过冲。
func (a *Assembler) extensionPhase(ctx context.Context, job *entity.GenerationJob, reporter *Reporter, sections []string, totalWords, minRequired int) ([]string, int, int) {
	if reporter != nil {
		reporter.Report(ctx, "extension_phase",
			fmt.Sprintf("document at %d of %d minimum words, entering extension phase", totalWords, minRequired), 75)
	}

	maxExt := a.cfg.StandardExtensions
	if maxExt <= 0 {
		maxExt = defaultStandardExtensions
	}

	added := 0
	for i := 0; i < maxExt && totalWords < minRequired; i++ {
		deficit := minRequired - totalWords
		title := extensionTitle(job.Category, i)
		content := a.extendSection(ctx, job, title, deficit)

		wc := CountWords(content)
		sections = append(sections, fmt.Sprintf("%s\n\n%s", title, content))
		totalWords += wc
		added += wc

		if reporter != nil {
			reporter.Report(ctx, "extension_phase",
				fmt.Sprintf("extension %q added %d words, total %d", title, wc, totalWords),
				75+(i+1)*10/maxExt,
			)
		}
	}
	return sections, totalWords, added
}

// extendSection 生成一个扩展段落：先尝试提供商，失败或欠字时扩写补足
func (a *Assembler) extendSection(ctx context.Context, job *entity.GenerationJob, title string, targetWords int) string {
	content, _, err := a.provider.Generate(ctx, GenerateRequest{
		Category:   job.Category,
		Subject:    job.Subject,
		Topic:      title,
		Style:      job.Style,
		WordTarget: targetWords,
	})
	if err != nil {
		content = ""
	}

	if deficit := targetWords - CountWords(content); deficit > 0 {
		before := CountWords(content)
		content = a.expander.Expand(content, title, job.Subject, job.Category, deficit)
		metrics.ExpansionWordsTotal.WithLabelValues(string(job.Category), "extension").Add(float64(CountWords(content) - before))
	}
	return content
}

// renderDocument 拼装最终文本：标题、章节与扩展段落、统计尾注
func (a *Assembler) renderDocument(job *entity.GenerationJob, sections []string, wordCount, chapterCount int, completion float64) string {
	var b strings.Builder
	b.WriteString(job.Subject)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Document Statistics\nWord count: %d\nChapters: %d\nCompletion: %.1f%% of %d word target\n",
		wordCount, chapterCount, completion, job.WordTarget)
	return b.String()
}

// minRequired 最低可接受总字数
func (a *Assembler) minRequired(target int) int {
	ratio := a.cfg.MinCompletionRatio
	if ratio <= 0 || ratio > 1 {
		ratio = defaultMinCompletionRatio
	}
	return int(float64(target) * ratio)
}

// clampChunk 保底分块尺寸钳制
func (a *Assembler) clampChunk(deficit int) int {
	min := a.cfg.GuaranteeChunkMin
	if min <= 0 {
		min = defaultGuaranteeChunkMin
	}
	max := a.cfg.GuaranteeChunkMax
	if max <= 0 {
		max = defaultGuaranteeChunkMax
	}
	if deficit < min {
		return min
	}
	if deficit > max {
		return max
	}
	return deficit
}

func (a *Assembler) contextTailWords() int {
	if a.cfg.ContextTailWords > 0 {
		return a.cfg.ContextTailWords
	}
	return defaultContextTailWords
}

// previousTail 取前两章内容的尾部作为下一章语境
func previousTail(results []entity.ChapterResult, tailWords int) string {
	if len(results) == 0 {
		return ""
	}
	start := len(results) - 2
	if start < 0 {
		start = 0
	}
	var parts []string
	for _, r := range results[start:] {
		parts = append(parts, TailWords(r.Content, tailWords))
	}
	return strings.Join(parts, " ")
}

// extensionTitle 常规扩展段落标题：叙事类首个为尾声，其余为附录
func extensionTitle(category entity.ContentCategory, i int) string {
	if category == entity.CategoryLongNarrative {
		if i == 0 {
			return "Epilogue: Resolution"
		}
		return fmt.Sprintf("Appendix %d: Supplementary Material", i)
	}
	return fmt.Sprintf("Appendix %d: Supplementary Material", i+1)
}
