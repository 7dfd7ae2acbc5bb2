package opportunities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/models"
)

func holdings(assets map[string]string) models.Portfolio {
	p := models.Portfolio{PublicKey: "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"}
	total := decimal.Zero
	for asset, value := range assets {
		v := decimal.RequireFromString(value)
		bal := v // 1:1 for test purposes
		p.Assets = append(p.Assets, models.AssetBalance{Asset: asset, Balance: bal, Value: v})
		total = total.Add(v)
	}
	p.TotalValue = total
	return p
}

func TestMatch_OnlyHeldAssets(t *testing.T) {
	p := holdings(map[string]string{"XLM": "100"})

	opps := Match(p, "aggressive")
	if len(opps) == 0 {
		t.Fatal("expected matches for XLM")
	}
	for _, o := range opps {
		if o.Asset != "XLM" {
			t.Errorf("matched %s/%s; portfolio only holds XLM", o.Protocol, o.Asset)
		}
	}
}

func TestMatch_SkipsZeroBalances(t *testing.T) {
	p := models.Portfolio{
		PublicKey: "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H",
		Assets: []models.AssetBalance{
			{Asset: "XLM", Balance: decimal.Zero, Value: decimal.Zero},
		},
	}
	if opps := Match(p, "aggressive"); len(opps) != 0 {
		t.Errorf("got %d matches for a zero balance; want 0", len(opps))
	}
}

func TestMatch_OrderedByAPYDesc(t *testing.T) {
	p := holdings(map[string]string{"XLM": "100", "USDC": "200"})

	opps := Match(p, "moderate")
	if len(opps) < 2 {
		t.Fatalf("expected multiple matches, got %d", len(opps))
	}
	for i := 1; i < len(opps); i++ {
		if opps[i].APY > opps[i-1].APY {
			t.Errorf("APY order violated at %d: %.1f after %.1f", i, opps[i].APY, opps[i-1].APY)
		}
	}
	// StellarX AMM (15.8) tops the table for XLM holders
	if opps[0].Protocol != "StellarX AMM" {
		t.Errorf("opps[0].Protocol = %q; want StellarX AMM", opps[0].Protocol)
	}
}

func TestMatch_ConservativeFiltersMediumRisk(t *testing.T) {
	p := holdings(map[string]string{"XLM": "100"})

	opps := Match(p, "conservative")
	if len(opps) == 0 {
		t.Fatal("conservative XLM holder should still see Low-risk protocols")
	}
	for _, o := range opps {
		if o.Risk != "Low" {
			t.Errorf("conservative matched %s risk %s", o.Protocol, o.Risk)
		}
	}
}

func TestMatch_UnknownToleranceDefaultsToModerate(t *testing.T) {
	p := holdings(map[string]string{"XLM": "100"})

	got := Match(p, "yolo")
	want := Match(p, "moderate")
	if len(got) != len(want) {
		t.Errorf("unknown tolerance matched %d; moderate matches %d", len(got), len(want))
	}
}

func TestScoreProtocol_KnownTiers(t *testing.T) {
	tests := []struct {
		protocol string
		tier     string
	}{
		{"Ultrastellar", "Low"},    // old, audited
		{"Yndx Finance", "Medium"}, // young, unaudited, thin TVL
		{"missing", "High"},
	}
	for _, tt := range tests {
		if got := ScoreProtocol(tt.protocol); got.Tier != tt.tier {
			t.Errorf("ScoreProtocol(%s).Tier = %s (%.1f); want %s", tt.protocol, got.Tier, got.Overall, tt.tier)
		}
	}
}

func TestOptimize_ModerateSplit(t *testing.T) {
	p := holdings(map[string]string{"XLM": "600", "USDC": "400"})
	opps := Match(p, "moderate")

	plan := Optimize(p, opps, "moderate")
	if plan.Strategy != "moderate" {
		t.Errorf("Strategy = %q", plan.Strategy)
	}
	if !plan.TotalAllocated.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("TotalAllocated = %s; want 1000", plan.TotalAllocated)
	}
	// Low and Medium tiers have candidates; High does not under moderate matching
	if len(plan.Allocations) != 2 {
		t.Fatalf("Allocations = %d; want 2", len(plan.Allocations))
	}
	if plan.Allocations[0].Risk != "Low" || plan.Allocations[0].Percentage != 50 {
		t.Errorf("first slice = %s %.0f%%; want Low 50%%", plan.Allocations[0].Risk, plan.Allocations[0].Percentage)
	}
	// 500 @ 8.3% + 400 @ 15.8% = 41.50 + 63.20
	if want := decimal.RequireFromString("104.70"); !plan.ProjectedAnnual.Equal(want) {
		t.Errorf("ProjectedAnnual = %s; want %s", plan.ProjectedAnnual, want)
	}
	if want := decimal.RequireFromString("8.73"); !plan.ProjectedMonthly.Equal(want) {
		t.Errorf("ProjectedMonthly = %s; want %s", plan.ProjectedMonthly, want)
	}
}

func TestOptimize_EmptyOpportunities(t *testing.T) {
	p := holdings(map[string]string{"XLM": "100"})
	plan := Optimize(p, nil, "conservative")
	if len(plan.Allocations) != 0 {
		t.Errorf("Allocations = %d; want 0 with no opportunities", len(plan.Allocations))
	}
	if !plan.ProjectedAnnual.IsZero() {
		t.Errorf("ProjectedAnnual = %s; want 0", plan.ProjectedAnnual)
	}
}
