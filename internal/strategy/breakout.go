package strategy

import (
	"daytrade-core/internal/market"
)

// BreakoutParams tune the resistance breakout evaluator.
type BreakoutParams struct {
	StopBelowResPct float64 `yaml:"stop_below_res_pct"` // e.g. 0.02
	TargetPct       float64 `yaml:"target_pct"`         // e.g. 0.05
	Confidence      float64 `yaml:"confidence"`         // e.g. 75
}

// Breakout buys a close above the opening-range resistance.
type Breakout struct {
	id     string
	params BreakoutParams
}

func NewBreakout(id string, p BreakoutParams) *Breakout {
	if p.StopBelowResPct == 0 {
		p.StopBelowResPct = 0.02
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.05
	}
	if p.Confidence == 0 {
		p.Confidence = 75
	}
	return &Breakout{id: id, params: p}
}

func (s *Breakout) ID() string   { return s.id }
func (s *Breakout) Name() string { return "Breakout" }

func (s *Breakout) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeTrending, market.RegimeVolatile}
}

func (s *Breakout) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	res := snap.RangeHigh
	if res <= 0 {
		return waitVote(s.id, "no resistance level")
	}
	if snap.LTP > res {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   res * (1 - s.params.StopBelowResPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     "range breakout above resistance",
		}
	}
	return waitVote(s.id, "below resistance")
}
