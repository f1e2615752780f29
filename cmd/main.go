package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/lcc-star/rag-pdf/internal/client"
	"github.com/lcc-star/rag-pdf/internal/config"
	"github.com/lcc-star/rag-pdf/internal/handler"
	"github.com/lcc-star/rag-pdf/internal/registry"
	"github.com/lcc-star/rag-pdf/internal/service"
	"github.com/lcc-star/rag-pdf/internal/storage"
	"github.com/lcc-star/rag-pdf/internal/upload"
	"github.com/lcc-star/rag-pdf/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// .env可选，仅本地开发用
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 组装核心组件
	backend := client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	conversations := service.NewConversationService(storage.NewDiskStore(cfg.Storage.DataDir))
	reg := registry.New(backend, cfg.Storage.DataDir, cfg.Upload.PreviewCacheTTL)
	uploader := upload.NewOrchestrator(backend, cfg.Upload.AcceptExtensions)
	controller := service.NewController(conversations, reg, uploader, backend, cfg.Backend.QuestionType)

	h := handler.New(controller, conversations, reg)
	router := setupRouter(cfg, h)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("服务启动在端口 %d，后端地址 %s", cfg.Server.Port, cfg.Backend.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务正在关闭...")
	if err := server.Close(); err != nil {
		logger.Errorf("服务关闭失败: %v", err)
	}
	logger.Info("服务已关闭")
}

func setupRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/ask", h.Ask)

		files := api.Group("/files")
		{
			files.GET("", h.ListFiles)
			files.POST("/upload", h.UploadFiles)
			files.DELETE("/:name", h.DeleteFile)
			files.POST("/rebuild-index", h.RebuildIndex)
			files.GET("/preview/:name", h.PreviewFile)
		}

		session := api.Group("/session")
		{
			session.POST("", h.CreateSession)
			session.GET("/active", h.ActiveSession)
			session.POST("/list", h.GetSessionList)
			session.POST("/switch/:session_id", h.SwitchSession)
			session.GET("/messages/:session_id", h.GetMessages)
		}
	}

	return router
}
