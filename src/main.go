package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/configs/database"
	"macbook-agent-server/src/core/agent"
	"macbook-agent-server/src/core/chat"
	"macbook-agent-server/src/core/middleware"
	"macbook-agent-server/src/core/rag"
	"macbook-agent-server/src/core/utils"
	"macbook-agent-server/src/httpsvr/app"

	openai "github.com/angrymiao/go-openai"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	config, path, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(config.Log.LogLevel, config.Log.LogDir, config.Log.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.Info("配置加载完成: %s", path)

	if err := database.Init(config.DB); err != nil {
		logger.Error("初始化数据库失败: %v", err)
		os.Exit(1)
	}
	defer database.Close()
	db := database.GetDB()

	// OpenAI客户端在引擎、向量生成与建议服务间共享
	clientCfg := openai.DefaultConfig(config.LLM.APIKey)
	if config.LLM.BaseURL != "" {
		clientCfg.BaseURL = config.LLM.BaseURL
	}
	aiClient := openai.NewClientWithConfig(clientCfg)

	var rdb *redis.Client
	if config.RedisCache.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.RedisCache.Addr,
			Password: config.RedisCache.Password,
			DB:       config.RedisCache.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis连接失败，建议缓存不可用: %v", err)
			rdb = nil
		}
	}

	store := chat.NewGormConversationStore(db, logger)
	guard := chat.NewTurnGuard(config.RedisCache, time.Duration(config.Chat.TurnTTLSeconds)*time.Second, logger)

	embedder := rag.NewEmbeddingGenerator(aiClient, config.RAG.EmbeddingModel)
	ragClient := rag.NewClient(db, embedder, config.RAG, logger)

	registry := agent.NewToolRegistry(
		agent.NewWebSearchTool(config.Search, logger),
		agent.NewFactRetrievalTool(ragClient),
	)
	engine := agent.NewOpenAIEngine(config.LLM, config.DefaultPrompt, config.Chat.MaxToolRounds, registry, logger)

	suggestions := app.NewSuggestionService(aiClient, config, rdb, logger)
	appService := app.NewAppService(config, logger, store, engine, guard, suggestions, ragClient)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORS())
	appService.Start(ctx, router, router.Group("/"))

	addr := fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP服务启动: %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("收到退出信号，开始关闭服务")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("服务异常退出: %v", err)
		os.Exit(1)
	}
	logger.Info("服务已退出")
}
