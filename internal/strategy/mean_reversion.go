package strategy

import (
	"daytrade-core/internal/market"
)

// MeanReversionParams tune the lower-band reversion evaluator.
type MeanReversionParams struct {
	StopPct    float64 `yaml:"stop_pct"`   // e.g. 0.02
	TargetPct  float64 `yaml:"target_pct"` // e.g. 0.03
	Confidence float64 `yaml:"confidence"` // e.g. 70
}

// MeanReversion buys oversold closes below the lower Bollinger band.
type MeanReversion struct {
	id     string
	params MeanReversionParams
}

func NewMeanReversion(id string, p MeanReversionParams) *MeanReversion {
	if p.StopPct == 0 {
		p.StopPct = 0.02
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.03
	}
	if p.Confidence == 0 {
		p.Confidence = 70
	}
	return &MeanReversion{id: id, params: p}
}

func (s *MeanReversion) ID() string   { return s.id }
func (s *MeanReversion) Name() string { return "MeanReversion" }

func (s *MeanReversion) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeRanging}
}

func (s *MeanReversion) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	if snap.BBLower > 0 && snap.LTP < snap.BBLower {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   snap.LTP * (1 - s.params.StopPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     "oversold below lower Bollinger band",
		}
	}
	return waitVote(s.id, "inside bands")
}
