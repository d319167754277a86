// Package main runs the HushHour live Q&A server: room lifecycle, questions
// and voting over HTTP, change events over WebSocket, graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hushhour/backend/config"
	"github.com/hushhour/backend/internal/memstore"
	"github.com/hushhour/backend/internal/middleware"
	"github.com/hushhour/backend/internal/questions"
	"github.com/hushhour/backend/internal/realtime"
	"github.com/hushhour/backend/internal/rooms"
	"github.com/hushhour/backend/pkg/database"
	"github.com/hushhour/backend/pkg/redis"
	"github.com/hushhour/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	var roomStore rooms.Store
	var questionStore questions.Store
	if dsn := cfg.Database.DSN(); dsn != "" {
		pool, err := database.NewPostgresPool(ctx, dsn, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		roomStore = rooms.NewRepository(pool)
		questionStore = questions.NewRepository(pool)
	} else {
		// No database configured: single-process demo mode. Rooms do not
		// survive a restart.
		store := memstore.New()
		roomStore = store
		questionStore = store
		logger.Warn("running on in-memory store, no durability")
	}

	var bridge realtime.Bridge
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		bridge = realtime.NewRedisPubSub(rdb.Client, logger)
	}

	hub := realtime.NewHub(logger, bridge)
	clock := clockwork.NewRealClock()

	roomHandler := rooms.NewHandler(roomStore, hub, clock, cfg.Frontend.URL, logger)
	questionHandler := questions.NewHandler(questionStore, roomStore, hub, clock, cfg.Frontend.URL, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		// Attendee surface: anonymous, no credentials beyond the room code.
		api.POST("/rooms", roomHandler.Create)
		api.GET("/rooms/:code", roomHandler.GetByCode)
		api.GET("/rooms/:code/questions", questionHandler.List)
		api.POST("/rooms/:code/questions", questionHandler.Submit)
		api.POST("/rooms/:code/questions/:id/vote", questionHandler.Vote)

		// Organizer surface: the token in the path is the capability.
		org := api.Group("/organizer/:code/:token")
		{
			org.GET("", questionHandler.Dashboard)
			org.POST("/start", roomHandler.Start)
			org.POST("/end", roomHandler.End)
			org.POST("/extend", roomHandler.Extend)
			org.POST("/reply/:question_id", questionHandler.Reply)
			org.POST("/mark_answered/:question_id", questionHandler.MarkAnswered)
		}
	}

	router.GET("/ws/:room_id", realtime.ServeWs(hub, logger, roomHandler.RoomExists))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

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
