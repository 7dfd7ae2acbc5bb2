package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stellarcompass/compass/pkg/auth"
	"github.com/stellarcompass/compass/pkg/config"
	"github.com/stellarcompass/compass/pkg/horizon"
	"github.com/stellarcompass/compass/pkg/logger"
	"github.com/stellarcompass/compass/pkg/metrics"
	"github.com/stellarcompass/compass/pkg/portfolio"
	"github.com/stellarcompass/compass/pkg/prices"
	"github.com/stellarcompass/compass/pkg/redisclient"
	"go.uber.org/zap"
)

func main() {
	// 1. Initialize logger
	if err := logger.Init(); err != nil {
		panic(err)
	}
	log := logger.Log
	defer log.Sync()

	log.Info("starting stellar-compass API server")

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	log.Info("configuration loaded",
		zap.String("network", cfg.Network),
		zap.String("horizon", cfg.HorizonURL),
		zap.Int("port", cfg.HTTPPort))

	// 3. Initialize Redis client
	redisClient := redisclient.New(cfg.RedisURL)
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx); err != nil {
		log.Warn("redis not reachable at startup", zap.Error(err))
	}
	cancel()

	// 4. Wire the domain services
	chain := horizon.New(cfg.HorizonURL)
	oracle := prices.New(redisClient)
	portfolioSvc := portfolio.NewService(chain, oracle, redisClient, cfg.IdleThresholdDays, cfg.SnapshotTTL)

	server := &Server{
		cfg:       cfg,
		redis:     redisClient,
		portfolio: portfolioSvc,
	}

	// Admin routes only mount when a secret is configured
	if cfg.AdminJWTSecret != "" {
		authSvc, err := auth.NewService(auth.NewConfig())
		if err != nil {
			log.Fatal("failed to initialize auth service", zap.Error(err))
		}
		server.auth = authSvc
	} else {
		log.Warn("ADMIN_JWT_SECRET not set, admin endpoints disabled")
	}

	router := chi.NewRouter()
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)
	router.Use(metricsMiddleware)
	server.routes(router)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 5. Metrics server on its own port
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		log.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	// 6. Start HTTP server
	go func() {
		log.Info("starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// 7. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Log.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start).Seconds()

		metrics.APIRequestDuration.WithLabelValues(r.Method, r.URL.Path, "200").Observe(duration)
		metrics.APIRequestTotal.WithLabelValues(r.Method, r.URL.Path, "200").Inc()
	})
}
