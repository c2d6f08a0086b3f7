package strategy

import (
	"fmt"

	"daytrade-core/internal/market"
)

// MomentumParams tune the momentum breakout evaluator.
type MomentumParams struct {
	MinVolRatio float64 `yaml:"min_vol_ratio"` // e.g. 1.2
	StopPct     float64 `yaml:"stop_pct"`      // e.g. 0.02
	TargetPct   float64 `yaml:"target_pct"`    // e.g. 0.04
	Confidence  float64 `yaml:"confidence"`    // e.g. 85
}

// Momentum buys when price holds above VWAP on expanding volume.
type Momentum struct {
	id     string
	params MomentumParams
}

func NewMomentum(id string, p MomentumParams) *Momentum {
	if p.MinVolRatio == 0 {
		p.MinVolRatio = 1.2
	}
	if p.StopPct == 0 {
		p.StopPct = 0.02
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.04
	}
	if p.Confidence == 0 {
		p.Confidence = 85
	}
	return &Momentum{id: id, params: p}
}

func (s *Momentum) ID() string   { return s.id }
func (s *Momentum) Name() string { return "Momentum" }

func (s *Momentum) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeTrending, market.RegimeVolatile}
}

func (s *Momentum) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	if snap.LTP > snap.VWAP && snap.VolRatio > s.params.MinVolRatio {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   snap.LTP * (1 - s.params.StopPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     "momentum positive: price > VWAP on volume expansion",
		}
	}
	if snap.VolRatio <= s.params.MinVolRatio {
		return waitVote(s.id, fmt.Sprintf("volume ratio %.1fx below %.1fx", snap.VolRatio, s.params.MinVolRatio))
	}
	return waitVote(s.id, "price below VWAP")
}
