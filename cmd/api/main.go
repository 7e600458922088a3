package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/doctor-appointment-api/internal/config"
	"github.com/harentsoaR/doctor-appointment-api/internal/handlers"
	"github.com/harentsoaR/doctor-appointment-api/internal/logging"
	"github.com/harentsoaR/doctor-appointment-api/internal/middleware"
	"github.com/harentsoaR/doctor-appointment-api/internal/services"
	"github.com/harentsoaR/doctor-appointment-api/internal/store"
	"github.com/harentsoaR/doctor-appointment-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback, _ := logging.New("info", "")
		fallback.Fatal().Err(err).Msg("config load error")
	}
	logger, logCloser := logging.New(cfg.LogLevel, cfg.LogstashAddr)
	defer logCloser.Close()
	logger.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("storage", cfg.StorageDriver).
		Str("database", cfg.MongoDatabase).
		Msg("starting api")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	st, closeStore, err := openStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	// --- Services ---
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	accounts := services.NewAccountService(st, tokens, logger)
	booking := services.NewBookingService(st, logger)
	h := handlers.NewHandler(accounts, booking, logger)

	// --- Gin Router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		cors.New(corsConfig(cfg.CORSOrigins)),
		middleware.Timeout(cfg.RequestTimeout),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(rootCtx.Done())

	h.Register(r, tokens, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		logCloser.Close()
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store.Store, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	ms := store.NewMongoStore(client.Database(cfg.MongoDatabase))
	if err := ms.Ping(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	if err := ms.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	logger.Info().Msg("MongoDB connected")

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("error closing MongoDB client")
		}
	}
	return ms, closeFn, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
