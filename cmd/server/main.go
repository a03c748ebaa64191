// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-memory-go/internal/config"
	"chat-memory-go/internal/handler"
	"chat-memory-go/internal/middleware"
	"chat-memory-go/internal/pipeline"
	"chat-memory-go/internal/repository"
	"chat-memory-go/internal/service"
	"chat-memory-go/pkg/database"
	"chat-memory-go/pkg/embedding"
	"chat-memory-go/pkg/es"
	"chat-memory-go/pkg/kafka"
	"chat-memory-go/pkg/llm"
	"chat-memory-go/pkg/log"
	"chat-memory-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储与摘要索引
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	turnRepo := repository.NewTurnRepository(database.DB)
	lockRepo := repository.NewIngestLockRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	summaryIndex := service.NewESSummaryIndex(es.ESClient, cfg.Elasticsearch)
	archiver := service.NewMinioTranscriptArchiver(cfg.MinIO)
	boundaryDetector := service.NewBoundaryDetector(turnRepo)
	summarizer := service.NewSummarizerService(
		turnRepo,
		summaryIndex,
		llmClient,
		embeddingClient,
		archiver,
		cfg.Summary,
		cfg.Embedding.Model,
	)
	taskQueue := service.NewKafkaTaskQueue()
	ingestService := service.NewIngestService(turnRepo, lockRepo, boundaryDetector, taskQueue)
	searchService := service.NewSearchService(embeddingClient, summaryIndex, cfg.Summary)

	// 6. 初始化摘要任务处理器 (Processor) 并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(turnRepo, summarizer, cfg.Summary)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// 对话消息路由组
		messages := apiV1.Group("/messages")
		{
			messages.POST("", handler.NewMessageHandler(ingestService).PostMessages)
			messages.GET("", handler.NewMessageHandler(ingestService).GetMessages)
		}

		// 摘要路由组
		summaries := apiV1.Group("/summaries")
		{
			summaries.POST("", handler.NewSummaryHandler(summarizer, searchService).CreateSummary)
			summaries.GET("", handler.NewSummaryHandler(summarizer, searchService).SearchSummaries)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个循环，会在程序退出时自然结束；
	// 未处理完的摘要任务因为没有提交 offset，重启后会被重新消费。
	log.Info("服务已优雅关闭")
}
