package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yeremiapane/tableorder/config"
	"github.com/yeremiapane/tableorder/kds"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/router"
	"github.com/yeremiapane/tableorder/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		utils.InfoLogger.Warn("JWT_SECRET not set, using the development secret")
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := config.SeedAdmin(ctx, cfg, repository.NewUserStore(db)); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed admin user: %v", err)
	}

	var hubOpts []kds.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		hubOpts = append(hubOpts, kds.WithRelay(kds.NewRedisRelay(rdb, "")))
		utils.InfoLogger.Printf("Relaying realtime events through redis at %s", cfg.RedisAddr)
	}
	hub := kds.NewHub(hubOpts...)
	if err := hub.Start(ctx); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start realtime relay: %v", err)
	}

	r := router.SetupRouter(router.Options{
		DB:            db,
		Hub:           hub,
		PublicURL:     cfg.PublicURL,
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimitRPS:  cfg.RateLimitRPS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Graceful shutdown failed: %v", err)
	}
}
