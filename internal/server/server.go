package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pomelo/internal/ai"
	"pomelo/internal/config"
	"pomelo/internal/handler"
	authHandler "pomelo/internal/handler/auth"
	"pomelo/internal/pkg/cache"
	"pomelo/internal/pkg/jwt"
	"pomelo/internal/pkg/mongodb"
	"pomelo/internal/repository"
	authRepo "pomelo/internal/repository/auth"
	"pomelo/internal/secrets"
	"pomelo/internal/server/middleware"
	"pomelo/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB（必需，所有业务数据都在这里）
	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	// 创建索引
	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// 初始化 Redis（可选，CHAT_CONFIG 的 TTL 缓存）
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, chat config falls back to per-request reads")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	db := s.mongo.Database()

	// 仓库
	chatRepo := repository.NewChatRepo(db)
	creditsRepo := repository.NewCreditsRepo(db)
	userRepo := authRepo.NewUserRepo(db)
	refreshTokenRepo := authRepo.NewRefreshTokenRepo(db)

	// 从配置读取JWT参数，如果没有配置则使用默认值
	jwtSecret := s.cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "default-secret-key-change-in-production"
		log.Warn().Msg("JWT secret not configured, using default (NOT SECURE for production)")
	}

	accessTokenExpiry := s.cfg.Auth.AccessTokenExpiry
	if accessTokenExpiry == 0 {
		accessTokenExpiry = 24 * time.Hour
	}

	refreshTokenExpiry := s.cfg.Auth.RefreshTokenExpiry
	if refreshTokenExpiry == 0 {
		refreshTokenExpiry = 7 * 24 * time.Hour
	}

	// 服务
	authSvc := service.NewAuthService(
		userRepo,
		refreshTokenRepo,
		creditsRepo,
		jwtSecret,
		accessTokenExpiry,
		refreshTokenExpiry,
		s.cfg.Credits.SignupGrant,
	)
	secretStore := secrets.NewStore(s.cfg.Secrets.File, s.redis, s.cfg.Secrets.CacheTTL)
	chatSvc := service.NewChatService(chatRepo, creditsRepo, secretStore, ai.NewClient())

	// 处理器
	authHdl := authHandler.NewHandler(authSvc)
	chatHdl := handler.NewChatHandler(chatSvc)

	jwtUtil := jwt.NewJWT(jwtSecret, accessTokenExpiry)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 认证接口（公开）
		v1.POST("/auth/register", authHdl.Register)
		v1.POST("/auth/login", authHdl.Login)
		v1.POST("/auth/refresh", authHdl.Refresh)
		v1.POST("/auth/logout", authHdl.Logout)
		v1.GET("/auth/me", authHdl.GetMe)

		// 会话接口（需要认证）
		chat := v1.Group("/chat")
		chat.Use(middleware.Auth(jwtUtil))
		{
			chat.GET("/overview", chatHdl.Overview)
			chat.GET("", chatHdl.GetChat)
			chat.POST("", chatHdl.Send)
			chat.POST("/regenerate", chatHdl.Regenerate)
			chat.POST("/editPrompt", chatHdl.EditPrompt)
			chat.POST("/edit", chatHdl.EditTitle)
			chat.POST("/delete", chatHdl.Delete)
		}
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
