package generation

import (
	"fmt"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
)

// 兜底常量，配置缺失时使用
const (
	defaultNominalChapterWords = 2500
	defaultMaxChapters         = 25
)

// Planner 章节规划器
// 根据目标总字数与品类计算章节数与每章目标字数。
type Planner struct {
	cfg *config.GenerationConfig
}

// NewPlanner 创建规划器
func NewPlanner(cfg *config.GenerationConfig) *Planner {
	return &Planner{cfg: cfg}
}

// Plan 生成章节规划
// 保证：章节号从 1 连续递增；sum(TargetWords) == wordTarget（末章吸收余数）。
func (p *Planner) Plan(category entity.ContentCategory, wordTarget int) []entity.ChapterPlan {
	if wordTarget <= 0 {
		return nil
	}

	nominal := p.nominalChapterWords(category)
	maxChapters := p.cfg.MaxChapters
	if maxChapters <= 0 {
		maxChapters = defaultMaxChapters
	}

	count := wordTarget / nominal
	if count < 1 {
		count = 1
	}
	if count > maxChapters {
		count = maxChapters
	}

	per := wordTarget / count
	plans := make([]entity.ChapterPlan, 0, count)
	assigned := 0
	for i := 0; i < count; i++ {
		target := per
		if i == count-1 {
			// 末章吸收余数
			target = wordTarget - assigned
		}
		plans = append(plans, entity.ChapterPlan{
			Index:       i + 1,
			Title:       chapterTitle(category, i),
			TargetWords: target,
		})
		assigned += target
	}

	return plans
}

// nominalChapterWords 品类标称单章字数
func (p *Planner) nominalChapterWords(category entity.ContentCategory) int {
	if n, ok := p.cfg.NominalChapterWords[string(category)]; ok && n > 0 {
		return n
	}
	return defaultNominalChapterWords
}

// chapterTitle 按品类主题列表循环取章节标题，超过一轮时追加分部后缀
func chapterTitle(category entity.ContentCategory, index int) string {
	topics := chapterTopicsFor(category)
	topic := topics[index%len(topics)]
	cycle := index / len(topics)
	if cycle > 0 {
		return fmt.Sprintf("%s (Part %d)", topic, cycle+1)
	}
	return topic
}
