package strategy

import (
	"daytrade-core/internal/market"
)

// ScalpingParams tune the fast EMA-cross scalper.
type ScalpingParams struct {
	StopPct    float64 `yaml:"stop_pct"`   // e.g. 0.005
	TargetPct  float64 `yaml:"target_pct"` // e.g. 0.01
	Confidence float64 `yaml:"confidence"` // e.g. 90
}

// Scalping buys while the 9-period EMA leads the 21-period EMA.
type Scalping struct {
	id     string
	params ScalpingParams
}

func NewScalping(id string, p ScalpingParams) *Scalping {
	if p.StopPct == 0 {
		p.StopPct = 0.005
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.01
	}
	if p.Confidence == 0 {
		p.Confidence = 90
	}
	return &Scalping{id: id, params: p}
}

func (s *Scalping) ID() string   { return s.id }
func (s *Scalping) Name() string { return "Scalping" }

func (s *Scalping) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeTrending, market.RegimeRanging, market.RegimeVolatile}
}

func (s *Scalping) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	if snap.EMA9 > snap.EMA21 {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   snap.LTP * (1 - s.params.StopPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     "scalp entry: EMA9 above EMA21",
		}
	}
	return waitVote(s.id, "no EMA cross")
}
