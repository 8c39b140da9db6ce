// Package main runs the polling platform HTTP server with WebSocket
// fan-out and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pulsevote/backend/config"
	"github.com/pulsevote/backend/internal/auth"
	"github.com/pulsevote/backend/internal/lifecycle"
	"github.com/pulsevote/backend/internal/middleware"
	"github.com/pulsevote/backend/internal/moderation"
	"github.com/pulsevote/backend/internal/polls"
	"github.com/pulsevote/backend/internal/realtime"
	"github.com/pulsevote/backend/internal/voting"
	"github.com/pulsevote/backend/pkg/database"
	"github.com/pulsevote/backend/pkg/redis"
	"github.com/pulsevote/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	hub := realtime.NewHub(logger)

	// Redis is optional: without it events stay local to this instance.
	var publisher realtime.Publisher
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		cancelSub, err := pubsub.Subscribe(func(event string, payload []byte) {
			hub.Broadcast(event, payload)
		})
		if err != nil {
			logger.Fatal("subscribe events", zap.Error(err))
		}
		defer cancelSub()
		publisher = pubsub
	}
	notifier := realtime.NewNotifier(hub, publisher, logger)

	// Moderation oracle; creation is fail-open when it errors, and the
	// check is skipped entirely without an API key.
	var moderator polls.Moderator
	if cfg.Moderation.APIKey != "" {
		moderator = moderation.NewClient(
			cfg.Moderation.APIKey,
			cfg.Moderation.Model,
			cfg.Moderation.BaseURL,
			time.Duration(cfg.Moderation.TimeoutSec)*time.Second,
			logger,
		)
	} else {
		logger.Warn("GEMINI_API_KEY not set, content moderation disabled")
	}

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Polls and voting
	pollRepo := polls.NewRepository(pool)
	voteRepo := voting.NewRepository(pool)
	pollService := polls.NewService(pollRepo, voteRepo, moderator, notifier, logger)
	pollHandler := polls.NewHandler(pollService, logger)
	votingService := voting.NewService(pollRepo, voteRepo, notifier, logger)
	votingHandler := voting.NewHandler(votingService, voteRepo, logger)

	// Auto-close sweeper
	sweeper := lifecycle.NewSweeper(
		pollRepo, notifier,
		time.Duration(cfg.Lifecycle.SweepIntervalSec)*time.Second,
		logger,
	)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/polls", pollHandler.List)
		api.POST("/polls", pollHandler.Create)
		api.GET("/polls/:id/details", middleware.RequireRole("admin"), pollHandler.Details)
		api.PATCH("/polls/:id/status", pollHandler.SetStatus)
		api.DELETE("/polls/:id", pollHandler.Delete)

		api.POST("/polls/:id/vote", votingHandler.Cast)
		api.GET("/me/votes", votingHandler.History)
	}

	// WebSocket (token in query; browsers cannot set headers here)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go sweeper.Run(sweepCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
