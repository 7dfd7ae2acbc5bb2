package opportunities

import "github.com/shopspring/decimal"

// RiskScore is the safety evaluation of one protocol. Scores run 0-100,
// lower is safer.
type RiskScore struct {
	Protocol       string  `json:"protocol"`
	Overall        float64 `json:"overall_score"`
	Tier           string  `json:"risk"`
	TimeFactor     float64 `json:"time_factor"`
	TVLFactor      float64 `json:"tvl_factor"`
	AuditFactor    float64 `json:"audit_factor"`
	ExploitFactor  float64 `json:"exploit_factor"`
	Recommendation string  `json:"recommendation"`
}

// ScoreProtocol evaluates a protocol from its age, locked value and audit
// status. Unknown protocols score as maximally risky.
func ScoreProtocol(name string) RiskScore {
	proto, ok := Lookup(name)
	if !ok {
		return RiskScore{Protocol: name, Overall: 100, Tier: "High", Recommendation: "Use caution"}
	}

	timeScore := 100 - float64(proto.AgeDays)/10
	if timeScore < 0 {
		timeScore = 0
	}

	tvl, _ := proto.TVL.Div(decimal.NewFromInt(500_000)).Float64()
	tvlScore := 100 - tvl
	if tvlScore < 0 {
		tvlScore = 0
	}

	auditScore := 50.0
	if proto.Audited {
		auditScore = 0
	}

	exploitScore := float64(proto.Exploits) * 30

	overall := (timeScore + tvlScore + auditScore + exploitScore) / 4

	tier := "High"
	switch {
	case overall < 30:
		tier = "Low"
	case overall < 60:
		tier = "Medium"
	}

	rec := "Use caution"
	if overall < 50 {
		rec = "Recommended"
	}

	return RiskScore{
		Protocol:       name,
		Overall:        overall,
		Tier:           tier,
		TimeFactor:     timeScore,
		TVLFactor:      tvlScore,
		AuditFactor:    auditScore,
		ExploitFactor:  exploitScore,
		Recommendation: rec,
	}
}
