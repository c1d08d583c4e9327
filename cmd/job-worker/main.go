// Package main 异步任务执行器入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chaptercraft-api/internal/application/generation"
	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/infrastructure/llm"
	"chaptercraft-api/internal/infrastructure/messaging"
	"chaptercraft-api/internal/infrastructure/persistence/postgres"
	"chaptercraft-api/internal/infrastructure/persistence/redis"
	"chaptercraft-api/pkg/logger"
	"chaptercraft-api/pkg/tracer"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	// 装配生成流水线：提供商网关 -> 章节生成 -> 文档装配 -> 任务执行
	jobRepo := postgres.NewJobRepository(pgClient)
	progressStore := redis.NewProgressStore(redisClient)
	factory := llm.NewEinoFactory(cfg)
	gateway := generation.NewGateway(factory, &cfg.LLM)
	assembler := generation.NewAssembler(gateway, &cfg.Generation)
	runner := generation.NewRunner(jobRepo, progressStore, assembler)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamBookGen,
		Group:         messaging.ConsumerGroupBookWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.MessageTypeBookGen, runner.HandleMessage)
	// 重试耗尽的消息落死信队列时把任务收尾为失败态
	consumer.OnDLQ(runner.HandleExhausted)

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	// 死信队列监控
	go consumer.MonitorDLQ(ctx, 100)

	log := logger.FromContext(ctx)
	log.Info("job-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	consumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
