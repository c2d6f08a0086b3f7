package strategy

import (
	"fmt"

	"daytrade-core/internal/market"
)

// VWAPPullbackParams tune the pullback-to-VWAP evaluator.
type VWAPPullbackParams struct {
	MaxDistPct float64 `yaml:"max_dist_pct"` // e.g. 0.005
	StopPct    float64 `yaml:"stop_pct"`     // stop below VWAP, e.g. 0.01
	TargetPct  float64 `yaml:"target_pct"`   // e.g. 0.03
	Confidence float64 `yaml:"confidence"`   // e.g. 80
}

// VWAPPullback buys shallow pullbacks toward VWAP inside an uptrend.
type VWAPPullback struct {
	id     string
	params VWAPPullbackParams
}

func NewVWAPPullback(id string, p VWAPPullbackParams) *VWAPPullback {
	if p.MaxDistPct == 0 {
		p.MaxDistPct = 0.005
	}
	if p.StopPct == 0 {
		p.StopPct = 0.01
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.03
	}
	if p.Confidence == 0 {
		p.Confidence = 80
	}
	return &VWAPPullback{id: id, params: p}
}

func (s *VWAPPullback) ID() string   { return s.id }
func (s *VWAPPullback) Name() string { return "VWAPPullback" }

func (s *VWAPPullback) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeTrending}
}

func (s *VWAPPullback) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	if snap.VWAP <= 0 {
		return waitVote(s.id, "no vwap")
	}
	dist := (snap.LTP - snap.VWAP) / snap.VWAP
	if dist > 0 && dist < s.params.MaxDistPct {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   snap.VWAP * (1 - s.params.StopPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     "VWAP support bounce",
		}
	}
	return waitVote(s.id, fmt.Sprintf("%.2f%% from VWAP, outside pullback zone", dist*100))
}
