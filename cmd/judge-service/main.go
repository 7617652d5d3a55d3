package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqldrill/internal/common/cache"
	"sqldrill/internal/common/db"
	"sqldrill/internal/common/http/middleware"
	"sqldrill/internal/judge/controller"
	"sqldrill/internal/judge/executor"
	"sqldrill/internal/judge/model"
	"sqldrill/internal/judge/repository"
	"sqldrill/internal/judge/sandbox"
	"sqldrill/internal/judge/service"
	"sqldrill/pkg/utils/logger"
	"sqldrill/pkg/utils/response"
)

func main() {
	configPath := flag.String("config", "configs/judge_service.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mainDB, err := db.NewPostgreSQLWithConfig(&cfg.MainDatabase)
	if err != nil {
		logger.Fatal(ctx, "failed to connect main database", zap.Error(err))
	}
	defer mainDB.Close()

	sandboxes := make(map[model.Dialect]db.Database)
	executors := make(map[model.Dialect]executor.Executor)

	if cfg.SandboxPostgreSQL.DSN != "" {
		sandboxPG, err := db.NewPostgreSQLWithConfig(&cfg.SandboxPostgreSQL)
		if err != nil {
			logger.Fatal(ctx, "failed to connect postgresql sandbox", zap.Error(err))
		}
		defer sandboxPG.Close()
		sandboxes[model.DialectPostgreSQL] = sandboxPG
		exec, err := executor.New(model.DialectPostgreSQL, cfg.Judge.StatementTimeout)
		if err != nil {
			logger.Fatal(ctx, "failed to build postgresql executor", zap.Error(err))
		}
		executors[model.DialectPostgreSQL] = exec
	}
	if cfg.SandboxMySQL.DSN != "" {
		sandboxMySQL, err := db.NewMySQLWithConfig(&cfg.SandboxMySQL)
		if err != nil {
			logger.Fatal(ctx, "failed to connect mysql sandbox", zap.Error(err))
		}
		defer sandboxMySQL.Close()
		sandboxes[model.DialectMySQL] = sandboxMySQL
		exec, err := executor.New(model.DialectMySQL, cfg.Judge.StatementTimeout)
		if err != nil {
			logger.Fatal(ctx, "failed to build mysql executor", zap.Error(err))
		}
		executors[model.DialectMySQL] = exec
	}
	if len(sandboxes) == 0 {
		logger.Fatal(ctx, "no sandbox database configured")
	}

	var fixtureCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCacheWithConfig(&cfg.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", zap.Error(err))
		}
		defer redisCache.Close()
		fixtureCache = redisCache
	}

	fixtures := repository.NewFixtureRepository(mainDB, fixtureCache)
	progress := repository.NewProgressRepository(mainDB)
	manager := sandbox.NewManager(sandboxes)
	judgeService := service.NewJudgeService(fixtures, progress, manager, executors)
	judgeController := controller.NewJudgeController(judgeService)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.TraceContextMiddleware())
	engine.Use(middleware.RequestLoggingMiddleware())

	engine.GET("/healthz", func(c *gin.Context) {
		if err := mainDB.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/execute/sql", judgeController.ExecuteSQL)
		v1.POST("/execute/setup", judgeController.PrepareEnvironment)
		v1.GET("/progress/:problemId", judgeController.GetProgress)
	}
	engine.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "")
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info(ctx, "judge service listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "graceful shutdown failed", zap.Error(err))
	}
}
