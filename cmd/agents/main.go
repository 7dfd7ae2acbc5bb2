package main

import (
  "context"
  "fmt"
  "net/http"
  "os"
  "os/signal"
  "syscall"
  "time"

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
  // 1. Load configuration & init logging
  cfg, err := config.Load()
  if err != nil {
    panic("config load: " + err.Error())
  }
  if err := logger.Init(); err != nil {
    panic("logger init: " + err.Error())
  }
  defer logger.Log.Sync()

  logger.Log.Info("starting monitor agents",
    zap.Duration("idle_interval", cfg.IdleInterval),
    zap.Duration("scout_interval", cfg.ScoutInterval),
    zap.Duration("price_interval", cfg.PriceInterval),
    zap.Duration("rebalance_interval", cfg.RebalanceInterval))

  // 2. Redis connection
  rdb := redisclient.New(cfg.RedisURL)
  defer rdb.Close()

  // 3. Domain services
  chain := horizon.New(cfg.HorizonURL)
  oracle := prices.New(rdb)
  portfolioSvc := portfolio.NewService(chain, oracle, rdb, cfg.IdleThresholdDays, cfg.SnapshotTTL)

  a := newAgents(cfg, rdb, chain, oracle, portfolioSvc)

  // 4. Metrics endpoint
  metricsServer := &http.Server{
    Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
    Handler: metrics.Handler(),
  }
  go func() {
    if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
      logger.Log.Error("metrics server failed", zap.Error(err))
    }
  }()

  // 5. Run monitor loops
  ctx, cancel := context.WithCancel(context.Background())
  go a.runLoop(ctx, "idle", cfg.IdleInterval, a.checkIdleAssets)
  go a.runLoop(ctx, "scout", cfg.ScoutInterval, a.checkAPYSpikes)
  go a.runLoop(ctx, "price", cfg.PriceInterval, a.checkPriceMovements)
  go a.runLoop(ctx, "rebalance", cfg.RebalanceInterval, a.checkRebalance)

  // 6. Wait for SIGINT/SIGTERM
  stop := make(chan os.Signal, 1)
  signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
  <-stop
  logger.Log.Info("shutting down monitor agents")
  cancel()

  shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer shutdownCancel()
  metricsServer.Shutdown(shutdownCtx)
  time.Sleep(200 * time.Millisecond)
}
