package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
)

// fakeChatModel 固定返回内容或错误的 ChatModel
type fakeChatModel struct {
	content string
	err     error
	delay   time.Duration
}

func (m *fakeChatModel) Generate(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

type fakeFactory struct {
	models map[string]model.BaseChatModel
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	m, ok := f.models[name]
	if !ok {
		return nil, errors.New("model not initialized: " + name)
	}
	return m, nil
}

func testLLMConfig(chain ...string) *config.LLMConfig {
	providers := make(map[string]config.ProviderConfig, len(chain))
	for _, name := range chain {
		providers[name] = config.ProviderConfig{Timeout: time.Second}
	}
	return &config.LLMConfig{
		Providers:     providers,
		FallbackChain: chain,
	}
}

func testRequest() GenerateRequest {
	return GenerateRequest{
		Category:   entity.CategoryLongNarrative,
		Subject:    "a test story",
		Topic:      "Origins",
		WordTarget: 500,
	}
}

func TestGatewayFirstProviderSuccess(t *testing.T) {
	factory := &fakeFactory{models: map[string]model.BaseChatModel{
		"primary":   &fakeChatModel{content: "generated text"},
		"secondary": &fakeChatModel{content: "should not be reached"},
	}}
	g := NewGateway(factory, testLLMConfig("primary", "secondary"))

	content, attempts, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "generated text", content)

	require.Len(t, attempts, 1)
	assert.Equal(t, "primary", attempts[0].Provider)
	assert.Equal(t, AttemptSuccess, attempts[0].Outcome)
}

func TestGatewayFallsBackOnError(t *testing.T) {
	factory := &fakeFactory{models: map[string]model.BaseChatModel{
		"primary":   &fakeChatModel{err: errors.New("rate limited")},
		"secondary": &fakeChatModel{content: "fallback text"},
	}}
	g := NewGateway(factory, testLLMConfig("primary", "secondary"))

	content, attempts, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "fallback text", content)

	require.Len(t, attempts, 2)
	assert.Equal(t, AttemptCallError, attempts[0].Outcome)
	assert.Equal(t, AttemptSuccess, attempts[1].Outcome)
	assert.Equal(t, "secondary", attempts[1].Provider)
}

func TestGatewayAllProvidersFail(t *testing.T) {
	factory := &fakeFactory{models: map[string]model.BaseChatModel{
		"primary":   &fakeChatModel{err: errors.New("down")},
		"secondary": &fakeChatModel{err: errors.New("also down")},
	}}
	g := NewGateway(factory, testLLMConfig("primary", "secondary"))

	content, attempts, err := g.Generate(context.Background(), testRequest())
	assert.Empty(t, content)
	assert.Len(t, attempts, 2)

	var allFailed *AllProvidersFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Len(t, allFailed.Attempts, 2)
}

func TestGatewayEmptyOutputTriggersFallback(t *testing.T) {
	factory := &fakeFactory{models: map[string]model.BaseChatModel{
		"primary":   &fakeChatModel{content: "   \n  "},
		"secondary": &fakeChatModel{content: "real content"},
	}}
	g := NewGateway(factory, testLLMConfig("primary", "secondary"))

	content, attempts, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "real content", content)
	require.Len(t, attempts, 2)
	assert.Equal(t, AttemptEmptyOutput, attempts[0].Outcome)
}

func TestGatewayTimeoutClassified(t *testing.T) {
	providers := map[string]config.ProviderConfig{
		"slow": {Timeout: 20 * time.Millisecond},
	}
	cfg := &config.LLMConfig{Providers: providers, FallbackChain: []string{"slow"}}
	factory := &fakeFactory{models: map[string]model.BaseChatModel{
		"slow": &fakeChatModel{content: "too late", delay: 200 * time.Millisecond},
	}}
	g := NewGateway(factory, cfg)

	_, attempts, err := g.Generate(context.Background(), testRequest())
	require.Error(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, AttemptTimeout, attempts[0].Outcome)
}

func TestGatewayNotConfiguredProvider(t *testing.T) {
	cfg := &config.LLMConfig{
		Providers:     map[string]config.ProviderConfig{},
		FallbackChain: []string{"ghost"},
	}
	g := NewGateway(&fakeFactory{models: nil}, cfg)

	_, attempts, err := g.Generate(context.Background(), testRequest())
	require.Error(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, AttemptNotConfigured, attempts[0].Outcome)
}

func TestGatewayCategoryExclusions(t *testing.T) {
	cfg := testLLMConfig("primary", "secondary")
	cfg.CategoryExclusions = map[string][]string{
		string(entity.CategoryIllustratedShortForm): {"primary"},
	}
	factory := &fakeFactory{models: map[string]model.BaseChatModel{
		"primary":   &fakeChatModel{content: "from primary"},
		"secondary": &fakeChatModel{content: "from secondary"},
	}}
	g := NewGateway(factory, cfg)

	req := testRequest()
	req.Category = entity.CategoryIllustratedShortForm

	content, attempts, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "from secondary", content)
	require.Len(t, attempts, 1)
	assert.Equal(t, "secondary", attempts[0].Provider)
}

func TestGatewayDefaultProviderWhenNoChain(t *testing.T) {
	cfg := &config.LLMConfig{
		DefaultProvider: "primary",
		Providers: map[string]config.ProviderConfig{
			"primary": {Timeout: time.Second},
		},
	}
	factory := &fakeFactory{models: map[string]model.BaseChatModel{
		"primary": &fakeChatModel{content: "default route"},
	}}
	g := NewGateway(factory, cfg)

	content, _, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "default route", content)
}

func TestGatewayRejectsNonPositiveWordTarget(t *testing.T) {
	g := NewGateway(&fakeFactory{}, testLLMConfig("primary"))

	req := testRequest()
	req.WordTarget = 0

	_, _, err := g.Generate(context.Background(), req)
	assert.Error(t, err)
}

func TestBuildMessagesIncludesContextTail(t *testing.T) {
	req := testRequest()
	req.Context = "the final words of the previous chapter"
	req.Style = "noir"

	msgs := buildMessages(req)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "noir")
	assert.Contains(t, msgs[1].Content, "Origins")
	assert.Contains(t, msgs[1].Content, "a test story")
	assert.Contains(t, msgs[1].Content, "the final words of the previous chapter")
}
