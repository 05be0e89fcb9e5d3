// Package main runs the live-classroom backend: WebSocket event hub, timed
// polls and collaborative note sessions, with graceful shutdown.
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

	"github.com/edupulse/backend/config"
	"github.com/edupulse/backend/internal/auth"
	"github.com/edupulse/backend/internal/content"
	"github.com/edupulse/backend/internal/middleware"
	"github.com/edupulse/backend/internal/notes"
	"github.com/edupulse/backend/internal/polls"
	"github.com/edupulse/backend/internal/realtime"
	"github.com/edupulse/backend/internal/tags"
	"github.com/edupulse/backend/pkg/database"
	"github.com/edupulse/backend/pkg/redis"
	"github.com/edupulse/backend/pkg/response"
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

	// Redis only backs the poll results cache; run without it if down.
	var resultsCache *polls.ResultsCache
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, results cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		resultsCache = polls.NewResultsCache(rdb.Client, logger)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Realtime core: registry, dispatcher, heartbeat.
	registry := realtime.NewRegistry(logger)
	hub := realtime.NewHub(registry, logger)
	monitor := realtime.NewMonitor(registry,
		time.Duration(cfg.Realtime.HeartbeatIntervalSec)*time.Second, logger)

	// External tagging service; nil interfaces select the local fallback.
	var tagGenerator tags.Generator
	var sketchTagger tags.SketchTagger
	if cfg.AI.TagServiceURL != "" {
		client := tags.NewClient(cfg.AI.TagServiceURL,
			time.Duration(cfg.AI.TimeoutSec)*time.Second, logger)
		tagGenerator = client
		sketchTagger = client
	}

	// Polls
	pollRepo := polls.NewRepository(pool)
	contentRepo := content.NewRepository(pool)
	pollService := polls.NewService(pollRepo, pollRepo, contentRepo, tagGenerator, hub, resultsCache, logger)
	pollHandler := polls.NewHandler(pollService)

	// Note sessions
	sessionRepo := notes.NewSessionRepository(pool)
	contributionRepo := notes.NewContributionRepository(pool)
	noteService := notes.NewService(sessionRepo, contributionRepo, sketchTagger, hub, logger)
	noteHandler := notes.NewHandler(noteService)

	validateWSToken := func(token string) (*realtime.Identity, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return nil, err
		}
		return &realtime.Identity{
			UserID:       claims.UserID,
			DepartmentID: claims.DepartmentID,
			Subjects:     claims.Subjects,
		}, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// WebSocket (optional token in query; clients may also send an auth message)
	router.GET("/ws", realtime.ServeWS(registry, logger, validateWSToken))

	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		// Polls
		api.POST("/polls", middleware.RequireRole("faculty", "admin"), pollHandler.Create)
		api.GET("/polls", pollHandler.List)
		api.GET("/polls/:id", pollHandler.Get)
		api.POST("/polls/:id/vote", pollHandler.Vote)
		api.POST("/polls/:id/close", pollHandler.Close)
		api.GET("/polls/:id/results", pollHandler.Results)
		api.GET("/polls/:id/related", pollHandler.Related)

		// Note sessions
		api.POST("/notes", middleware.RequireRole("faculty", "admin"), noteHandler.Create)
		api.GET("/notes", noteHandler.List)
		api.POST("/notes/:id/contributions", noteHandler.AddContribution)
		api.GET("/notes/:id/contributions", noteHandler.ListContributions)
		api.PATCH("/notes/:id/status", noteHandler.UpdateStatus)
		api.DELETE("/notes/:id", noteHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(context.Background())
	defer stopHeartbeat()
	go monitor.Run(heartbeatCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopHeartbeat()
	pollService.StopTimers()
	registry.CloseAll()

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
