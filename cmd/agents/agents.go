package main

import (
  "context"
  "fmt"
  "sync"
  "time"

  "github.com/shopspring/decimal"
  "github.com/stellarcompass/compass/pkg/config"
  "github.com/stellarcompass/compass/pkg/horizon"
  "github.com/stellarcompass/compass/pkg/logger"
  "github.com/stellarcompass/compass/pkg/metrics"
  "github.com/stellarcompass/compass/pkg/models"
  "github.com/stellarcompass/compass/pkg/opportunities"
  "github.com/stellarcompass/compass/pkg/portfolio"
  "github.com/stellarcompass/compass/pkg/prices"
  "github.com/stellarcompass/compass/pkg/redisclient"
  "go.uber.org/zap"
)

// Drift beyond this fraction of total value triggers a rebalance alert.
const driftThreshold = 0.10

// A single asset above this share of total value triggers a concentration
// risk alert.
const concentrationThreshold = 0.80

// Risk tier per asset class for allocation drift checks. Unlisted assets
// count as High.
var assetTiers = map[string]string{
  "USDC": "Low",
  "USDT": "Low",
  "XLM":  "Medium",
  "yXLM": "Medium",
}

type agents struct {
  cfg       *config.Config
  rdb       *redisclient.Client
  chain     *horizon.Client
  oracle    *prices.Oracle
  portfolio *portfolio.Service

  mu        sync.Mutex
  lastAPY   map[string]float64
  lastPrice map[string]decimal.Decimal
}

func newAgents(cfg *config.Config, rdb *redisclient.Client, chain *horizon.Client, oracle *prices.Oracle, pf *portfolio.Service) *agents {
  return &agents{
    cfg:       cfg,
    rdb:       rdb,
    chain:     chain,
    oracle:    oracle,
    portfolio: pf,
    lastAPY:   make(map[string]float64),
    lastPrice: make(map[string]decimal.Decimal),
  }
}

// runLoop drives one monitor on its own ticker until the context ends.
func (a *agents) runLoop(ctx context.Context, name string, interval time.Duration, check func(ctx context.Context) error) {
  ticker := time.NewTicker(interval)
  defer ticker.Stop()

  logger.Log.Info("monitor started", zap.String("agent", name), zap.Duration("interval", interval))
  for {
    select {
    case <-ctx.Done():
      logger.Log.Info("monitor stopped", zap.String("agent", name))
      return
    case <-ticker.C:
      metrics.AgentChecks.WithLabelValues(name).Inc()
      if err := check(ctx); err != nil {
        metrics.AgentErrors.WithLabelValues(name).Inc()
        logger.Log.Error("monitor check failed", zap.String("agent", name), zap.Error(err))
      }
    }
  }
}

// wallets lists the connected wallet registry.
func (a *agents) wallets(ctx context.Context) ([]string, error) {
  ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
  defer cancel()
  return a.rdb.Client().SMembers(ctx, models.ConnectedWallets).Result()
}

// checkIdleAssets flags wallets whose holdings sat without a successful
// transaction past the idle threshold.
func (a *agents) checkIdleAssets(ctx context.Context) error {
  addrs, err := a.wallets(ctx)
  if err != nil {
    return fmt.Errorf("wallet registry: %w", err)
  }

  for _, addr := range addrs {
    p, err := a.portfolio.Fetch(ctx, addr)
    if err != nil {
      logger.Log.Warn("idle check skipped wallet", zap.String("wallet", addr), zap.Error(err))
      continue
    }
    if len(p.IdleAssets) == 0 {
      continue
    }

    idleDays := a.cfg.IdleThresholdDays
    if last, err := a.chain.LastActivity(ctx, addr); err == nil && !last.IsZero() {
      idleDays = int(time.Since(last).Hours() / 24)
    }

    a.emit(ctx, idleAlert(addr, idleDays, p))
  }
  return nil
}

// checkAPYSpikes alerts when a protocol's APY jumps more than two points
// since the previous observation.
func (a *agents) checkAPYSpikes(ctx context.Context) error {
  for _, proto := range opportunities.Registry() {
    a.mu.Lock()
    prev, seen := a.lastAPY[proto.Name]
    a.lastAPY[proto.Name] = proto.BaseAPY
    a.mu.Unlock()

    if !seen {
      continue
    }
    if alert, ok := apyAlert(proto.Name, prev, proto.BaseAPY); ok {
      a.emit(ctx, alert)
    }
  }
  return nil
}

// checkPriceMovements alerts on moves of 5% or more against the last
// observed price.
func (a *agents) checkPriceMovements(ctx context.Context) error {
  for _, code := range prices.Known() {
    current := a.oracle.Price(ctx, code)
    if current.IsZero() {
      continue
    }

    a.mu.Lock()
    prev, seen := a.lastPrice[code]
    a.lastPrice[code] = current
    a.mu.Unlock()

    if !seen || prev.IsZero() {
      continue
    }
    if alert, ok := priceAlert(code, prev, current); ok {
      a.emit(ctx, alert)
    }
  }
  return nil
}

// checkRebalance compares each wallet's risk-tier allocation against the
// tolerance profile and also watches single-asset concentration.
func (a *agents) checkRebalance(ctx context.Context) error {
  addrs, err := a.wallets(ctx)
  if err != nil {
    return fmt.Errorf("wallet registry: %w", err)
  }

  for _, addr := range addrs {
    p, err := a.portfolio.Snapshot(ctx, addr)
    if err != nil {
      logger.Log.Warn("rebalance check skipped wallet", zap.String("wallet", addr), zap.Error(err))
      continue
    }
    for _, alert := range driftAlerts(p, a.cfg.RiskTolerance) {
      a.emit(ctx, alert)
    }
    if alert, ok := concentrationAlert(p); ok {
      a.emit(ctx, alert)
    }
  }
  return nil
}

// emit pushes an alert to the durable stream and the live channel,
// log-and-continue on failure.
func (a *agents) emit(ctx context.Context, alert models.Alert) {
  if err := a.rdb.AddToStream(ctx, models.AlertStream, alert.ToMap()); err != nil {
    logger.Log.Warn("alert stream write failed", zap.String("type", alert.Type), zap.Error(err))
    return
  }
  if payload, err := alert.ToJSON(); err == nil {
    if err := a.rdb.Publish(ctx, models.AlertChannel, payload); err != nil {
      logger.Log.Warn("alert publish failed", zap.String("type", alert.Type), zap.Error(err))
    }
  }
  metrics.AlertsEmitted.WithLabelValues(alert.Type, alert.Priority).Inc()
  logger.Log.Info("alert emitted",
    zap.String("type", alert.Type),
    zap.String("priority", alert.Priority),
    zap.String("title", alert.Title))
}

// idleAlert builds the idle-asset alert. Priority escalates at twice the
// threshold.
func idleAlert(wallet string, idleDays int, p models.Portfolio) models.Alert {
  priority := models.PriorityMedium
  if idleDays >= 60 {
    priority = models.PriorityHigh
  }
  idleValue := portfolio.IdleValue(p)
  // Opportunity cost estimated at a 5% baseline APY
  cost := idleValue.Mul(decimal.RequireFromString("0.05"))

  return models.NewAlert(models.AlertIdleAsset, priority, wallet,
    fmt.Sprintf("%d assets idle for %d days", len(p.IdleAssets), idleDays),
    fmt.Sprintf("$%s sitting without yield. Est. $%s/year opportunity cost.", idleValue.StringFixed(2), cost.StringFixed(2)),
    "")
}

// apyAlert fires when the APY rose more than 2 points.
func apyAlert(protocol string, prev, current float64) (models.Alert, bool) {
  increase := current - prev
  if increase <= 2 {
    return models.Alert{}, false
  }
  return models.NewAlert(models.AlertAPYSpike, models.PriorityHigh, "",
    fmt.Sprintf("%s APY jumped to %.1f%%", protocol, current),
    fmt.Sprintf("Up %.1f points from %.1f%%. Time to invest?", increase, prev),
    ""), true
}

// priceAlert fires on a 5% move in either direction; 10% escalates to high.
func priceAlert(asset string, prev, current decimal.Decimal) (models.Alert, bool) {
  change, _ := current.Sub(prev).Div(prev).Float64()
  abs := change
  if abs < 0 {
    abs = -abs
  }
  if abs < 0.05 {
    return models.Alert{}, false
  }

  direction := "up"
  if change < 0 {
    direction = "down"
  }
  priority := models.PriorityMedium
  if abs >= 0.10 {
    priority = models.PriorityHigh
  }

  return models.NewAlert(models.AlertPriceMove, priority, "",
    fmt.Sprintf("%s %s %.1f%%", asset, direction, abs*100),
    fmt.Sprintf("%s moved from $%s to $%s", asset, prev, current),
    ""), true
}

// driftAlerts compares the wallet's tier allocation against the tolerance
// profile targets.
func driftAlerts(p models.Portfolio, tolerance string) []models.Alert {
  if !p.TotalValue.IsPositive() {
    return nil
  }

  targets := opportunities.AllocationProfile(tolerance)
  actual := map[string]float64{}
  for _, asset := range p.Assets {
    tier, ok := assetTiers[asset.Asset]
    if !ok {
      tier = "High"
    }
    share, _ := asset.Value.Div(p.TotalValue).Float64()
    actual[tier] += share
  }

  var out []models.Alert
  for tier, target := range targets {
    drift := actual[tier] - target
    if drift < 0 {
      drift = -drift
    }
    if drift <= driftThreshold {
      continue
    }
    out = append(out, models.NewAlert(models.AlertRebalance, models.PriorityMedium, p.PublicKey,
      "Portfolio rebalance suggested",
      fmt.Sprintf("%s allocation drifted %.1f%% from target %.0f%%", tier, drift*100, target*100),
      ""))
  }
  return out
}

// concentrationAlert fires when one asset dominates the portfolio.
func concentrationAlert(p models.Portfolio) (models.Alert, bool) {
  if !p.TotalValue.IsPositive() {
    return models.Alert{}, false
  }
  for _, asset := range p.Assets {
    share, _ := asset.Value.Div(p.TotalValue).Float64()
    if share >= concentrationThreshold {
      return models.NewAlert(models.AlertRisk, models.PriorityHigh, p.PublicKey,
        "Concentration risk",
        fmt.Sprintf("%.0f%% of portfolio in %s. Consider diversifying.", share*100, asset.Asset),
        ""), true
    }
  }
  return models.Alert{}, false
}
