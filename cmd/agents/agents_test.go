package main

import (
  "os"
  "strings"
  "testing"

  "github.com/shopspring/decimal"
  "github.com/stellarcompass/compass/pkg/logger"
  "github.com/stellarcompass/compass/pkg/models"
)

func TestMain(m *testing.M) {
  if err := logger.Init(); err != nil {
    panic(err)
  }
  os.Exit(m.Run())
}

const testWallet = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPriceAlert_Threshold(t *testing.T) {
  tests := []struct {
    name     string
    prev     string
    current  string
    fires    bool
    priority string
    word     string
  }{
    {"no move", "0.12", "0.12", false, "", ""},
    {"under 5 percent", "0.100", "0.104", false, "", ""},
    {"exactly 5 percent up", "0.100", "0.105", true, models.PriorityMedium, "up"},
    {"7 percent down", "0.100", "0.093", true, models.PriorityMedium, "down"},
    {"12 percent up", "0.100", "0.112", true, models.PriorityHigh, "up"},
    {"15 percent down", "0.100", "0.085", true, models.PriorityHigh, "down"},
  }

  for _, tt := range tests {
    t.Run(tt.name, func(t *testing.T) {
      alert, ok := priceAlert("XLM", dec(tt.prev), dec(tt.current))
      if ok != tt.fires {
        t.Fatalf("fires = %v; want %v", ok, tt.fires)
      }
      if !ok {
        return
      }
      if alert.Priority != tt.priority {
        t.Errorf("priority = %s; want %s", alert.Priority, tt.priority)
      }
      if !strings.Contains(alert.Title, tt.word) {
        t.Errorf("title %q missing direction %q", alert.Title, tt.word)
      }
      if alert.Type != models.AlertPriceMove {
        t.Errorf("type = %s", alert.Type)
      }
    })
  }
}

func TestAPYAlert_Threshold(t *testing.T) {
  if _, ok := apyAlert("Aquarius", 12.5, 14.0); ok {
    t.Error("1.5 point rise must not fire")
  }
  if _, ok := apyAlert("Aquarius", 12.5, 10.0); ok {
    t.Error("drop must not fire")
  }

  alert, ok := apyAlert("Aquarius", 12.5, 15.0)
  if !ok {
    t.Fatal("2.5 point rise must fire")
  }
  if alert.Priority != models.PriorityHigh {
    t.Errorf("priority = %s; want high", alert.Priority)
  }
  if !strings.Contains(alert.Title, "15.0%") {
    t.Errorf("title = %q", alert.Title)
  }
}

func TestIdleAlert_PriorityEscalation(t *testing.T) {
  p := models.Portfolio{
    PublicKey:  testWallet,
    TotalValue: dec("1000"),
    IdleAssets: []models.AssetBalance{
      {Asset: "XLM", Balance: dec("1000"), Value: dec("120")},
    },
  }

  a := idleAlert(testWallet, 31, p)
  if a.Priority != models.PriorityMedium {
    t.Errorf("31 days: priority = %s; want medium", a.Priority)
  }
  a = idleAlert(testWallet, 75, p)
  if a.Priority != models.PriorityHigh {
    t.Errorf("75 days: priority = %s; want high", a.Priority)
  }
  // $120 idle at 5% baseline = $6.00/year
  if !strings.Contains(a.Message, "$6.00") {
    t.Errorf("message = %q; want $6.00 opportunity cost", a.Message)
  }
}

func TestDriftAlerts(t *testing.T) {
  // All value in XLM (Medium tier); moderate target is 40% Medium,
  // 50% Low, 10% High: every tier drifts beyond 10%
  p := models.Portfolio{
    PublicKey:  testWallet,
    TotalValue: dec("1000"),
    Assets: []models.AssetBalance{
      {Asset: "XLM", Balance: dec("8333"), Value: dec("1000")},
    },
  }

  alerts := driftAlerts(p, "moderate")
  if len(alerts) != 2 {
    // Medium drifts 60 points, Low drifts 50; High drifts 10 (not > threshold)
    t.Fatalf("alerts = %d; want 2", len(alerts))
  }
  for _, a := range alerts {
    if a.Type != models.AlertRebalance || a.Priority != models.PriorityMedium {
      t.Errorf("unexpected alert %s/%s", a.Type, a.Priority)
    }
  }
}

func TestDriftAlerts_BalancedPortfolioIsQuiet(t *testing.T) {
  p := models.Portfolio{
    PublicKey:  testWallet,
    TotalValue: dec("1000"),
    Assets: []models.AssetBalance{
      {Asset: "USDC", Balance: dec("500"), Value: dec("500")}, // Low 50%
      {Asset: "XLM", Balance: dec("3333"), Value: dec("400")}, // Medium 40%
      {Asset: "BTC", Balance: dec("0.002"), Value: dec("100")}, // High 10%
    },
  }
  if alerts := driftAlerts(p, "moderate"); len(alerts) != 0 {
    t.Errorf("alerts = %d; want 0 for on-target allocation", len(alerts))
  }
}

func TestDriftAlerts_EmptyPortfolio(t *testing.T) {
  p := models.Portfolio{PublicKey: testWallet, TotalValue: decimal.Zero}
  if alerts := driftAlerts(p, "moderate"); alerts != nil {
    t.Errorf("alerts = %v; want nil for empty portfolio", alerts)
  }
}

func TestConcentrationAlert(t *testing.T) {
  p := models.Portfolio{
    PublicKey:  testWallet,
    TotalValue: dec("1000"),
    Assets: []models.AssetBalance{
      {Asset: "XLM", Balance: dec("7083"), Value: dec("850")},
      {Asset: "USDC", Balance: dec("150"), Value: dec("150")},
    },
  }
  alert, ok := concentrationAlert(p)
  if !ok {
    t.Fatal("85% concentration must fire")
  }
  if alert.Type != models.AlertRisk || alert.Priority != models.PriorityHigh {
    t.Errorf("unexpected alert %s/%s", alert.Type, alert.Priority)
  }
  if !strings.Contains(alert.Message, "XLM") {
    t.Errorf("message = %q", alert.Message)
  }

  p.Assets[0].Value = dec("500")
  p.Assets[1].Value = dec("500")
  if _, ok := concentrationAlert(p); ok {
    t.Error("50/50 split must not fire")
  }
}
