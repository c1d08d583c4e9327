// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "chaptercraft"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// 业务指标 - 文档生成
	DocumentGenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "generation_total",
			Help:      "Total number of document generations",
		},
		[]string{"category", "status"},
	)

	DocumentGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "generation_duration_seconds",
			Help:      "Document generation duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"category"},
	)

	DocumentWordCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "word_count",
			Help:      "Assembled document word count",
			Buckets:   []float64{500, 1000, 2000, 5000, 10000, 20000, 50000, 100000},
		},
		[]string{"category"},
	)

	DocumentCompletionRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "completion_ratio",
			Help:      "Final word count divided by requested target",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.25, 1.5},
		},
		[]string{"category"},
	)

	// 提供商指标
	ProviderCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_total",
			Help:      "Total number of provider calls",
		},
		[]string{"provider", "status"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	ProviderFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fallback_total",
			Help:      "Total number of fallbacks past the first ranked provider",
		},
		[]string{"category"},
	)

	// 扩写指标
	ExpansionWordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expansion",
			Name:      "words_total",
			Help:      "Total words produced by the deterministic expander",
		},
		[]string{"category", "phase"}, // phase: chapter/extension/guarantee
	)

	// 队列指标
	RedisStreamLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "stream_lag",
			Help:      "Redis stream consumer lag",
		},
		[]string{"stream", "consumer_group"},
	)

	RedisStreamProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "stream_processed_total",
			Help:      "Total number of Redis stream messages processed",
		},
		[]string{"stream", "status"},
	)

	// 活跃任务指标
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "active_jobs",
			Help:      "Current number of jobs being generated",
		},
	)
)
