package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
	pkgerrors "chaptercraft-api/pkg/errors"
	"chaptercraft-api/pkg/logger"
	"chaptercraft-api/pkg/metrics"
)

var gatewayTracer = otel.Tracer("generation.gateway")

// defaultProviderTimeout 提供商未配置超时时间时的兜底值
const defaultProviderTimeout = 60 * time.Second

// ChatModelFactory 按名称提供 ChatModel 客户端
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// ContentProvider 内容生成能力契约，Gateway 为其唯一生产实现
type ContentProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, []ProviderAttempt, error)
}

// GenerateRequest 一次内容生成请求
type GenerateRequest struct {
	Category   entity.ContentCategory
	Subject    string // 文档主题
	Topic      string // 本节主题
	Style      string
	Context    string // 前文尾部语境
	WordTarget int
}

// AttemptOutcome 单次提供商调用结果分类
type AttemptOutcome string

const (
	AttemptSuccess       AttemptOutcome = "success"
	AttemptTimeout       AttemptOutcome = "timeout"
	AttemptCallError     AttemptOutcome = "call_error"
	AttemptEmptyOutput   AttemptOutcome = "empty_output"
	AttemptNotConfigured AttemptOutcome = "not_configured"
)

// ProviderAttempt 单次提供商调用记录，仅用于回退决策，不落库
type ProviderAttempt struct {
	Provider   string         `json:"provider"`
	Outcome    AttemptOutcome `json:"outcome"`
	Detail     string         `json:"detail,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// AllProvidersFailedError 整条回退链全部失败
// 对调用方（章节生成器）而言是可恢复错误，不应终止任务。
type AllProvidersFailedError struct {
	Attempts []ProviderAttempt
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all %d providers failed", len(e.Attempts))
}

// Gateway 提供商网关
// 按固定优先级顺序尝试各提供商，首个成功即返回。
type Gateway struct {
	factory ChatModelFactory
	cfg     *config.LLMConfig
}

// NewGateway 创建提供商网关
func NewGateway(factory ChatModelFactory, cfg *config.LLMConfig) *Gateway {
	return &Gateway{factory: factory, cfg: cfg}
}

// Generate 依次尝试回退链中的提供商，返回首个成功结果
// 全部失败时返回 *AllProvidersFailedError 及完整尝试记录。
func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (string, []ProviderAttempt, error) {
	ctx, span := gatewayTracer.Start(ctx, "gateway.Generate",
		trace.WithAttributes(
			attribute.String("category", string(req.Category)),
			attribute.Int("word_target", req.WordTarget),
		))
	defer span.End()

	if req.WordTarget <= 0 {
		return "", nil, pkgerrors.ErrInvalidParam.WithDetail("word_target must be positive")
	}

	chain := g.chainFor(req.Category)
	if len(chain) == 0 {
		return "", nil, pkgerrors.New(pkgerrors.CodeProviderError, "no providers available for category").
			WithDetail(string(req.Category))
	}

	log := logger.FromContext(ctx)
	msgs := buildMessages(req)

	attempts := make([]ProviderAttempt, 0, len(chain))
	for i, name := range chain {
		attempt := g.callProvider(ctx, name, msgs)
		metrics.ProviderCallTotal.WithLabelValues(name, string(attempt.Outcome)).Inc()
		metrics.ProviderCallDuration.WithLabelValues(name).Observe(float64(attempt.DurationMs) / 1000)

		if attempt.Outcome == AttemptSuccess {
			if i > 0 {
				metrics.ProviderFallbackTotal.WithLabelValues(string(req.Category)).Inc()
			}
			attempts = append(attempts, ProviderAttempt{
				Provider:   attempt.Provider,
				Outcome:    AttemptSuccess,
				DurationMs: attempt.DurationMs,
			})
			span.SetAttributes(attribute.String("provider", name))
			return attempt.Detail, attempts, nil
		}

		log.Warn("provider attempt failed",
			"provider", name,
			"outcome", string(attempt.Outcome),
			"detail", attempt.Detail,
		)
		attempts = append(attempts, attempt)
	}

	err := &AllProvidersFailedError{Attempts: attempts}
	span.RecordError(err)
	return "", attempts, err
}

// callProvider 调用单个提供商并分类结果
// 成功时将生成文本临时放在 Detail 字段返回。
func (g *Gateway) callProvider(ctx context.Context, name string, msgs []*schema.Message) ProviderAttempt {
	providerCfg, ok := g.cfg.Providers[name]
	if !ok {
		return ProviderAttempt{Provider: name, Outcome: AttemptNotConfigured}
	}

	timeout := providerCfg.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	chatModel, err := g.factory.Get(callCtx, name)
	if err != nil {
		return ProviderAttempt{
			Provider:   name,
			Outcome:    AttemptCallError,
			Detail:     err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	out, err := chatModel.Generate(callCtx, msgs)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		outcome := AttemptCallError
		if callCtx.Err() == context.DeadlineExceeded {
			outcome = AttemptTimeout
		}
		return ProviderAttempt{Provider: name, Outcome: outcome, Detail: err.Error(), DurationMs: elapsed}
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return ProviderAttempt{Provider: name, Outcome: AttemptEmptyOutput, DurationMs: elapsed}
	}

	return ProviderAttempt{Provider: name, Outcome: AttemptSuccess, Detail: out.Content, DurationMs: elapsed}
}

// chainFor 计算品类对应的提供商链：回退链减去静态品类排除项
func (g *Gateway) chainFor(category entity.ContentCategory) []string {
	chain := g.cfg.FallbackChain
	if len(chain) == 0 && g.cfg.DefaultProvider != "" {
		chain = []string{g.cfg.DefaultProvider}
	}

	excluded := g.cfg.CategoryExclusions[string(category)]
	if len(excluded) == 0 {
		return chain
	}

	filtered := make([]string, 0, len(chain))
	for _, name := range chain {
		if !contains(excluded, name) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// buildMessages 构造提示词
func buildMessages(req GenerateRequest) []*schema.Message {
	system := "You are a professional writer producing publication-quality long-form content. Write flowing prose without markdown headings."
	if req.Style != "" {
		system += " Write in a " + req.Style + " style."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write the section %q of a work about %q.", req.Topic, req.Subject)
	fmt.Fprintf(&b, " Aim for approximately %d words.", req.WordTarget)
	if req.Context != "" {
		fmt.Fprintf(&b, "\n\nThe preceding text ends with:\n%s\n\nContinue naturally from there.", req.Context)
	}

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(b.String()),
	}
}
