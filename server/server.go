package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ReadTune/cache"
	"ReadTune/config"
	"ReadTune/core/auth"
	"ReadTune/core/generation"
	"ReadTune/core/journey"
	"ReadTune/core/player"
	"ReadTune/db"
	"ReadTune/logger"
	"ReadTune/model"
	"ReadTune/repository"
	"ReadTune/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	// Connect to Redis
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()
	logger.Info("Successfully connected to Redis")

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if err := db.AutoMigrateModels(&model.Journey{}, &model.Post{}); err != nil {
		logger.Fatal("Failed to migrate models", logger.ErrorField(err))
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	logRepo := repository.NewMySQLLogRepository(db.DB)
	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	journeyRepo := repository.NewGormJourneyRepository(db.GormDB)
	postRepo := repository.NewGormPostRepository(db.GormDB)

	generator := generation.NewClient(&generation.ClientConfig{
		APIBaseURL: cfg.GeneratorAPIURL,
		APIKey:     cfg.GeneratorAPIKey,
	})

	// 生成器落盘监听
	watcher := generation.NewWatcher(cfg.GeneratorDir, trackRepo)
	if err := watcher.Start(); err != nil {
		logger.Fatal("Failed to start generation watcher", logger.ErrorField(err))
	}
	defer watcher.Stop()

	// 会话登记与播放条 Hub
	registry := journey.NewRegistry()
	playerHub := player.NewPlayerHub(registry)
	go playerHub.Run()
	defer playerHub.Stop()

	// 初始化处理器
	apiHandler := NewAPIHandler(userRepo, journeyRepo, logRepo, trackRepo, postRepo,
		generator, registry, playerHub, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// 旅程相关的API端点
	router.HandleFunc("/api/journeys", apiHandler.AuthMiddleware(apiHandler.CreateJourneyHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/journeys/{id}", apiHandler.AuthMiddleware(apiHandler.GetJourneyHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/journeys/{id}/logs", apiHandler.AuthMiddleware(apiHandler.GetJourneyLogsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/journeys/{id}/logs", apiHandler.AuthMiddleware(apiHandler.CreateLogHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/journeys/{id}/music-status", apiHandler.AuthMiddleware(apiHandler.GetMusicStatusHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/journeys/{id}/complete", apiHandler.AuthMiddleware(apiHandler.CompleteJourneyHandler)).Methods(http.MethodPost)

	// 信息流相关的API端点
	router.HandleFunc("/api/posts", apiHandler.AuthMiddleware(apiHandler.CreatePostHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/posts", apiHandler.ListPostsHandler).Methods(http.MethodGet)

	// 播放条 WebSocket
	router.HandleFunc("/api/ws/player", apiHandler.PlayerWebSocketHandler).Methods(http.MethodGet)

	// 生成的音频文件经 MinIO 透传
	router.PathPrefix("/tracks/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		objectPath := strings.TrimPrefix(r.URL.Path, "/")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		object, err := storage.GetObject(ctx, objectPath)
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "public, max-age=31536000") // 缓存一年

		if _, err := io.Copy(w, object); err != nil {
			logger.Warn("Error serving file from MinIO", logger.ErrorField(err))
		}
	})

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.HTTPAddr))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("Shutting down server...")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
