package opportunities

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/metrics"
	"github.com/stellarcompass/compass/pkg/models"
)

// Risk tolerance profiles and the tiers each one accepts.
var toleranceTiers = map[string][]string{
	"conservative": {"Low"},
	"moderate":     {"Low", "Medium"},
	"aggressive":   {"Low", "Medium", "High"},
}

var twelve = decimal.NewFromInt(12)

// Match pairs a portfolio's positive-balance holdings with registry protocols
// that support them, filtered by risk tolerance and ordered by APY descending.
func Match(p models.Portfolio, tolerance string) []models.Opportunity {
	tiers, ok := toleranceTiers[tolerance]
	if !ok {
		tiers = toleranceTiers["moderate"]
	}

	out := []models.Opportunity{}
	for _, holding := range p.Assets {
		if !holding.Balance.IsPositive() {
			continue
		}
		for _, proto := range registry {
			if !supports(proto, holding.Asset) || !tierAllowed(proto.Risk, tiers) {
				continue
			}

			monthly := holding.Value.
				Mul(decimal.NewFromFloat(proto.BaseAPY)).
				Div(decimal.NewFromInt(100)).
				Div(twelve).
				Round(2)

			out = append(out, models.Opportunity{
				Protocol:    proto.Name,
				Asset:       holding.Asset,
				Type:        proto.Type,
				Risk:        proto.Risk,
				APY:         proto.BaseAPY,
				TVL:         proto.TVL,
				Description: fmt.Sprintf("%s. Est. $%s/month on your %s.", proto.Description, monthly, holding.Asset),
				Action:      proto.ActionURL,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].APY > out[j].APY
	})

	metrics.OpportunityMatches.Inc()
	return out
}

func supports(p Protocol, asset string) bool {
	for _, a := range p.Assets {
		if a == asset {
			return true
		}
	}
	return false
}

func tierAllowed(tier string, allowed []string) bool {
	for _, t := range allowed {
		if t == tier {
			return true
		}
	}
	return false
}
