package strategy

import (
	"fmt"

	"daytrade-core/internal/market"
)

// RSIReversalParams tune the oversold-RSI bounce evaluator.
type RSIReversalParams struct {
	Oversold   float64 `yaml:"oversold"`   // e.g. 35
	StopPct    float64 `yaml:"stop_pct"`   // e.g. 0.02
	TargetPct  float64 `yaml:"target_pct"` // e.g. 0.04
	Confidence float64 `yaml:"confidence"` // e.g. 65
}

// RSIReversal buys when RSI dips into the oversold band.
type RSIReversal struct {
	id     string
	params RSIReversalParams
}

func NewRSIReversal(id string, p RSIReversalParams) *RSIReversal {
	if p.Oversold == 0 {
		p.Oversold = 35
	}
	if p.StopPct == 0 {
		p.StopPct = 0.02
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.04
	}
	if p.Confidence == 0 {
		p.Confidence = 65
	}
	return &RSIReversal{id: id, params: p}
}

func (s *RSIReversal) ID() string   { return s.id }
func (s *RSIReversal) Name() string { return "RSIReversal" }

func (s *RSIReversal) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeRanging, market.RegimeVolatile}
}

func (s *RSIReversal) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	if snap.RSI < s.params.Oversold {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   snap.LTP * (1 - s.params.StopPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     fmt.Sprintf("RSI oversold bounce (%.0f < %.0f)", snap.RSI, s.params.Oversold),
		}
	}
	return waitVote(s.id, "RSI neutral")
}
