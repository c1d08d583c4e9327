// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	FallbackChain   []string                  `yaml:"fallback_chain" mapstructure:"fallback_chain"`
	// CategoryExclusions 按内容品类静态屏蔽提供商（品类 -> 提供商名列表）
	CategoryExclusions map[string][]string `yaml:"category_exclusions" mapstructure:"category_exclusions"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GenerationConfig 文档生成引擎配置
type GenerationConfig struct {
	// MaxChapters 单个文档的章节数上限
	MaxChapters int `yaml:"max_chapters" mapstructure:"max_chapters"`
	// ChapterRetries 单章生成的提供商重试次数
	ChapterRetries int `yaml:"chapter_retries" mapstructure:"chapter_retries"`
	// MinCompletionRatio 全文字数保底比例（相对请求目标）
	MinCompletionRatio float64 `yaml:"min_completion_ratio" mapstructure:"min_completion_ratio"`
	// StandardExtensions 保底前的常规扩展段落数上限
	StandardExtensions int `yaml:"standard_extensions" mapstructure:"standard_extensions"`
	// GuaranteeAttempts 确定性保底扩写的分块次数上限
	GuaranteeAttempts int `yaml:"guarantee_attempts" mapstructure:"guarantee_attempts"`
	// GuaranteeChunkMin/Max 单次保底分块字数的下/上限
	GuaranteeChunkMin int `yaml:"guarantee_chunk_min" mapstructure:"guarantee_chunk_min"`
	GuaranteeChunkMax int `yaml:"guarantee_chunk_max" mapstructure:"guarantee_chunk_max"`
	// ContextTailWords 传递给下一章的前文尾部字数
	ContextTailWords int `yaml:"context_tail_words" mapstructure:"context_tail_words"`
	// NominalChapterWords 各品类的标称单章字数（规划用）
	NominalChapterWords map[string]int `yaml:"nominal_chapter_words" mapstructure:"nominal_chapter_words"`
	// ChapterWordFloor 各品类的单章绝对字数下限
	ChapterWordFloor map[string]int `yaml:"chapter_word_floor" mapstructure:"chapter_word_floor"`
	// DefaultWordTargets 各品类按篇幅档位的默认目标字数（short/medium/long）
	DefaultWordTargets map[string]map[string]int `yaml:"default_word_targets" mapstructure:"default_word_targets"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen              int           `yaml:"max_len" mapstructure:"max_len"`
	ConsumerGroupPrefix string        `yaml:"consumer_group_prefix" mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit          int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff        BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
