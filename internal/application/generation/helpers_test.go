package generation

import (
	"context"
	"strings"
	"sync"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
)

func testGenConfig() *config.GenerationConfig {
	return &config.GenerationConfig{
		MaxChapters:        25,
		ChapterRetries:     3,
		MinCompletionRatio: 0.8,
		StandardExtensions: 5,
		GuaranteeAttempts:  10,
		GuaranteeChunkMin:  1000,
		GuaranteeChunkMax:  2500,
		ContextTailWords:   120,
		NominalChapterWords: map[string]int{
			string(entity.CategoryLongNarrative):        3000,
			string(entity.CategoryInformational):        2500,
			string(entity.CategoryIllustratedShortForm): 800,
		},
		ChapterWordFloor: map[string]int{
			string(entity.CategoryLongNarrative):        800,
			string(entity.CategoryInformational):        200,
			string(entity.CategoryIllustratedShortForm): 100,
		},
	}
}

// textOfWords 生成恰好 n 个词的文本
func textOfWords(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

// fakeProvider 脚本化的内容提供商，respond 按调用序号决定返回
type fakeProvider struct {
	mu      sync.Mutex
	calls   []GenerateRequest
	respond func(req GenerateRequest, call int) (string, error)
}

func (f *fakeProvider) Generate(_ context.Context, req GenerateRequest) (string, []ProviderAttempt, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	call := len(f.calls)
	fn := f.respond
	f.mu.Unlock()

	content, err := fn(req, call)
	if err != nil {
		return "", []ProviderAttempt{{Provider: "fake", Outcome: AttemptCallError, Detail: err.Error()}}, err
	}
	return content, []ProviderAttempt{{Provider: "fake", Outcome: AttemptSuccess}}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// exactTargetProvider 每次调用都返回恰好请求字数的内容
func exactTargetProvider() *fakeProvider {
	return &fakeProvider{
		respond: func(req GenerateRequest, _ int) (string, error) {
			return textOfWords(req.WordTarget), nil
		},
	}
}
