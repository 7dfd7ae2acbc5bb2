package opportunities

import (
	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/models"
)

// Allocation is one slice of a suggested portfolio split.
type Allocation struct {
	Protocol   string          `json:"protocol"`
	Asset      string          `json:"asset"`
	AmountUSD  decimal.Decimal `json:"allocation_usd"`
	Percentage float64         `json:"allocation_percentage"`
	APY        float64         `json:"expected_apy"`
	Risk       string          `json:"risk"`
}

// Plan is the full allocation suggestion for one portfolio.
type Plan struct {
	Allocations      []Allocation    `json:"allocations"`
	TotalAllocated   decimal.Decimal `json:"total_allocated"`
	ProjectedAnnual  decimal.Decimal `json:"projected_annual_return"`
	ProjectedMonthly decimal.Decimal `json:"projected_monthly_return"`
	Strategy         string          `json:"strategy"`
}

// Per-tolerance target split across risk tiers. Fractions sum to 1.
var allocationProfiles = map[string]map[string]float64{
	"conservative": {"Low": 0.80, "Medium": 0.20, "High": 0.00},
	"moderate":     {"Low": 0.50, "Medium": 0.40, "High": 0.10},
	"aggressive":   {"Low": 0.30, "Medium": 0.40, "High": 0.30},
}

// Tiers in display order.
var tierOrder = []string{"Low", "Medium", "High"}

// AllocationProfile returns the target tier split for a tolerance, falling
// back to moderate for unknown values.
func AllocationProfile(tolerance string) map[string]float64 {
	if profile, ok := allocationProfiles[tolerance]; ok {
		return profile
	}
	return allocationProfiles["moderate"]
}

// Optimize splits the portfolio's total value across risk tiers per the
// tolerance profile and picks the best-APY opportunity within each tier.
func Optimize(p models.Portfolio, opps []models.Opportunity, tolerance string) Plan {
	profile, ok := allocationProfiles[tolerance]
	if !ok {
		tolerance = "moderate"
		profile = allocationProfiles[tolerance]
	}

	plan := Plan{
		Allocations:      []Allocation{},
		TotalAllocated:   p.TotalValue,
		ProjectedAnnual:  decimal.Zero,
		ProjectedMonthly: decimal.Zero,
		Strategy:         tolerance,
	}

	for _, tier := range tierOrder {
		fraction := profile[tier]
		if fraction == 0 {
			continue
		}

		best, found := bestInTier(opps, tier)
		if !found {
			continue
		}

		amount := p.TotalValue.Mul(decimal.NewFromFloat(fraction)).Round(2)
		plan.Allocations = append(plan.Allocations, Allocation{
			Protocol:   best.Protocol,
			Asset:      best.Asset,
			AmountUSD:  amount,
			Percentage: fraction * 100,
			APY:        best.APY,
			Risk:       tier,
		})

		annual := amount.Mul(decimal.NewFromFloat(best.APY)).Div(decimal.NewFromInt(100))
		plan.ProjectedAnnual = plan.ProjectedAnnual.Add(annual)
	}

	plan.ProjectedAnnual = plan.ProjectedAnnual.Round(2)
	plan.ProjectedMonthly = plan.ProjectedAnnual.Div(twelve).Round(2)
	return plan
}

func bestInTier(opps []models.Opportunity, tier string) (models.Opportunity, bool) {
	var best models.Opportunity
	found := false
	for _, o := range opps {
		if o.Risk != tier {
			continue
		}
		if !found || o.APY > best.APY {
			best = o
			found = true
		}
	}
	return best, found
}
