package generation

import (
	"fmt"
	"strings"

	"chaptercraft-api/internal/domain/entity"
)

// Expander 确定性扩写器
// 不调用任何外部提供商，保证任意字数缺口都能被补足。
// 相同输入产生相同输出：块按固定顺序循环追加。
type Expander struct{}

// NewExpander 创建扩写器
func NewExpander() *Expander {
	return &Expander{}
}

// Expand 在 base 之后追加模板块直至补足 deficitWords
// deficitWords <= 0 时原样返回 base。
func (e *Expander) Expand(base, topic, subject string, category entity.ContentCategory, deficitWords int) string {
	if deficitWords <= 0 {
		return base
	}

	blocks := expansionBlocksFor(category)

	var b strings.Builder
	b.WriteString(base)

	added := 0
	for i := 0; added < deficitWords; i++ {
		block := fmt.Sprintf(blocks[i%len(blocks)], topic, subject)
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		added += CountWords(block)
	}

	return b.String()
}
