package generation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
	"chaptercraft-api/pkg/logger"
	"chaptercraft-api/pkg/metrics"
)

var chapterTracer = otel.Tracer("generation.chapter")

// 兜底常量
const (
	defaultChapterRetries   = 3
	defaultChapterWordFloor = 200
)

// DocContext 单章生成时可见的文档上下文
type DocContext struct {
	Subject      string
	Style        string
	PreviousTail string // 前两章尾部文本
	RunningWords int    // 已累计的文档字数，用于进度消息
	TotalTarget  int    // 文档目标总字数
}

// ChapterGenerator 单章生成器
// 对调用方永不失败：提供商重试耗尽后由确定性扩写兜底，
// 返回的章节字数恒不低于 plan.TargetWords。
type ChapterGenerator struct {
	provider ContentProvider
	expander *Expander
	cfg      *config.GenerationConfig
}

// NewChapterGenerator 创建单章生成器
func NewChapterGenerator(provider ContentProvider, expander *Expander, cfg *config.GenerationConfig) *ChapterGenerator {
	return &ChapterGenerator{provider: provider, expander: expander, cfg: cfg}
}

// Generate 生成单章内容
func (g *ChapterGenerator) Generate(ctx context.Context, category entity.ContentCategory, plan entity.ChapterPlan, docCtx DocContext, reporter *Reporter) entity.ChapterResult {
	ctx, span := chapterTracer.Start(ctx, "chapter.Generate",
		trace.WithAttributes(
			attribute.Int("chapter.index", plan.Index),
			attribute.Int("chapter.target_words", plan.TargetWords),
		))
	defer span.End()

	start := time.Now()
	log := logger.FromContext(ctx)

	minWords := g.minWords(category, plan.TargetWords)
	retries := g.cfg.ChapterRetries
	if retries <= 0 {
		retries = defaultChapterRetries
	}

	var (
		best         string
		bestWords    int
		bestProvider string
		succeeded    bool
		attemptsUsed int
	)

	for attempt := 1; attempt <= retries; attempt++ {
		attemptsUsed = attempt

		content, providerAttempts, err := g.provider.Generate(ctx, GenerateRequest{
			Category:   category,
			Subject:    docCtx.Subject,
			Topic:      plan.Title,
			Style:      docCtx.Style,
			Context:    docCtx.PreviousTail,
			WordTarget: plan.TargetWords,
		})

		if err != nil {
			log.Warn("chapter attempt produced no content",
				"chapter", plan.Index,
				"attempt", attempt,
				"error", err.Error(),
			)
			g.reportAttempt(ctx, reporter, plan, docCtx, attempt, 0)
			continue
		}

		wc := CountWords(content)
		if wc > bestWords {
			best = content
			bestWords = wc
			bestProvider = lastSuccessProvider(providerAttempts)
		}

		g.reportAttempt(ctx, reporter, plan, docCtx, attempt, wc)

		if wc >= minWords {
			succeeded = true
			break
		}

		log.Info("chapter attempt under minimum",
			"chapter", plan.Index,
			"attempt", attempt,
			"words", wc,
			"min_words", minWords,
		)
	}

	result := entity.ChapterResult{
		Plan:     plan,
		Attempts: attemptsUsed,
		Provider: bestProvider,
	}

	content := best
	if deficit := plan.TargetWords - bestWords; deficit > 0 {
		// 成功但欠字：补足到目标；全失败：从最优残稿激进扩写到目标
		content = g.expander.Expand(best, plan.Title, docCtx.Subject, category, deficit)
		added := CountWords(content) - bestWords
		metrics.ExpansionWordsTotal.WithLabelValues(string(category), "chapter").Add(float64(added))
		result.PaddedUp = true
	}
	result.AllFailed = !succeeded && bestWords == 0

	result.Content = content
	result.WordCount = CountWords(content)
	result.DurationMs = int(time.Since(start).Milliseconds())

	span.SetAttributes(
		attribute.Int("chapter.word_count", result.WordCount),
		attribute.Int("chapter.attempts", result.Attempts),
		attribute.Bool("chapter.padded_up", result.PaddedUp),
	)

	return result
}

// minWords 单章最低可接受字数
func (g *ChapterGenerator) minWords(category entity.ContentCategory, targetWords int) int {
	floor := defaultChapterWordFloor
	if f, ok := g.cfg.ChapterWordFloor[string(category)]; ok && f > 0 {
		floor = f
	}
	if half := targetWords / 2; half > floor {
		return half
	}
	return floor
}

// reportAttempt 上报单次尝试，附带文档累计字数
func (g *ChapterGenerator) reportAttempt(ctx context.Context, reporter *Reporter, plan entity.ChapterPlan, docCtx DocContext, attempt, words int) {
	if reporter == nil {
		return
	}
	percent := chapterPercent(docCtx.RunningWords+words, docCtx.TotalTarget)
	reporter.Report(ctx,
		fmt.Sprintf("chapter_%d", plan.Index),
		fmt.Sprintf("chapter %d attempt %d produced %d words (document total %d)",
			plan.Index, attempt, words, docCtx.RunningWords+words),
		percent,
	)
}

// chapterPercent 章节阶段进度映射到 5-75 区间
func chapterPercent(runningWords, totalTarget int) int {
	if totalTarget <= 0 {
		return 5
	}
	p := 5 + runningWords*70/totalTarget
	if p > 75 {
		p = 75
	}
	return p
}

// lastSuccessProvider 取尝试记录中成功项的提供商名
func lastSuccessProvider(attempts []ProviderAttempt) string {
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Outcome == AttemptSuccess {
			return attempts[i].Provider
		}
	}
	return ""
}
