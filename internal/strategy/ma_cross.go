package strategy

import (
	"daytrade-core/internal/market"
)

// MACrossParams tune the trend-following crossover evaluator.
type MACrossParams struct {
	StopPct    float64 `yaml:"stop_pct"`   // wide stop, e.g. 0.04
	TargetPct  float64 `yaml:"target_pct"` // e.g. 0.10
	Confidence float64 `yaml:"confidence"` // e.g. 88
}

// MACross rides an established fast-over-slow EMA trend with a wide stop.
// Unlike the scalper it is only eligible in trending regimes and aims for a
// larger move.
type MACross struct {
	id     string
	params MACrossParams
}

func NewMACross(id string, p MACrossParams) *MACross {
	if p.StopPct == 0 {
		p.StopPct = 0.04
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.10
	}
	if p.Confidence == 0 {
		p.Confidence = 88
	}
	return &MACross{id: id, params: p}
}

func (s *MACross) ID() string   { return s.id }
func (s *MACross) Name() string { return "MACrossTrend" }

func (s *MACross) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeTrending}
}

func (s *MACross) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	if snap.EMA9 > snap.EMA21 && snap.EMA21 > snap.EMA50 {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   snap.LTP * (1 - s.params.StopPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     "trend following: full EMA stack aligned",
		}
	}
	return waitVote(s.id, "no trend alignment")
}
