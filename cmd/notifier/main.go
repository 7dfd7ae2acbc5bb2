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
  "github.com/stellarcompass/compass/pkg/logger"
  "github.com/stellarcompass/compass/pkg/metrics"
  "github.com/stellarcompass/compass/pkg/notify"
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

  logger.Log.Info("starting notifier",
    zap.Bool("email", cfg.Notify.EmailEnabled()),
    zap.Bool("sms", cfg.Notify.SMSEnabled()))

  // 2. Redis connection
  rdb := redisclient.New(cfg.RedisURL)
  defer rdb.Close()

  // 3. Delivery service
  notifySvc := notify.NewService(cfg.Notify)

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

  // 5. Consume the alert stream
  ctx, cancel := context.WithCancel(context.Background())
  go runNotifier(ctx, rdb, notifySvc)

  // 6. Wait for SIGINT/SIGTERM
  stop := make(chan os.Signal, 1)
  signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
  <-stop
  logger.Log.Info("shutting down notifier")
  cancel()

  shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer shutdownCancel()
  metricsServer.Shutdown(shutdownCtx)
  time.Sleep(200 * time.Millisecond)
}
