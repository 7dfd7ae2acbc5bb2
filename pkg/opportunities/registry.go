package opportunities

import "github.com/shopspring/decimal"

// Protocol is one entry of the static Stellar DeFi registry. Real listings
// would come from a protocol indexer; the shapes stay the same.
type Protocol struct {
	Name        string
	Type        string
	Assets      []string
	BaseAPY     float64
	Risk        string // Low / Medium / High
	TVL         decimal.Decimal
	AgeDays     int
	Audited     bool
	Exploits    int // known exploit incidents
	Description string
	ActionURL   string
}

var registry = []Protocol{
	{
		Name:        "Aquarius",
		Type:        "liquidity_pool",
		Assets:      []string{"XLM", "USDC", "USDT"},
		BaseAPY:     12.5,
		Risk:        "Medium",
		TVL:         decimal.NewFromInt(45_000_000),
		AgeDays:     730,
		Audited:     true,
		Description: "Provide liquidity to AMM pools and earn AQUA rewards",
		ActionURL:   "https://aqua.network",
	},
	{
		Name:        "Stellar Lend",
		Type:        "lending",
		Assets:      []string{"XLM", "USDC"},
		BaseAPY:     8.3,
		Risk:        "Low",
		TVL:         decimal.NewFromInt(12_000_000),
		AgeDays:     365,
		Audited:     true,
		Description: "Lend assets to over-collateralized borrowers",
		ActionURL:   "https://stellarlend.io",
	},
	{
		Name:        "Ultrastellar",
		Type:        "staking",
		Assets:      []string{"XLM"},
		BaseAPY:     5.2,
		Risk:        "Low",
		TVL:         decimal.NewFromInt(8_500_000),
		AgeDays:     900,
		Audited:     true,
		Description: "Stake your XLM and earn passive rewards",
		ActionURL:   "https://ultrastellar.com",
	},
	{
		Name:        "StellarX AMM",
		Type:        "liquidity_pool",
		Assets:      []string{"XLM", "USDC", "BTC", "ETH"},
		BaseAPY:     15.8,
		Risk:        "Medium",
		TVL:         decimal.NewFromInt(28_000_000),
		AgeDays:     1095,
		Audited:     true,
		Description: "Earn trading fees by providing liquidity on StellarX",
		ActionURL:   "https://www.stellarx.com",
	},
	{
		Name:        "Yndx Finance",
		Type:        "yield_aggregator",
		Assets:      []string{"XLM", "USDC"},
		BaseAPY:     10.2,
		Risk:        "Medium",
		TVL:         decimal.NewFromInt(5_000_000),
		AgeDays:     180,
		Audited:     false,
		Description: "Auto-compound yields across Stellar protocols",
		ActionURL:   "https://yndx.finance",
	},
}

// Registry returns the protocol table.
func Registry() []Protocol {
	return registry
}

// Lookup finds a protocol by name.
func Lookup(name string) (Protocol, bool) {
	for _, p := range registry {
		if p.Name == name {
			return p, true
		}
	}
	return Protocol{}, false
}
