package strategy

import (
	"daytrade-core/internal/market"
)

// StopHuntParams tune the confirmed-breakout evaluator.
type StopHuntParams struct {
	ConfirmPct  float64 `yaml:"confirm_pct"`   // above resistance, e.g. 0.002
	MinVolRatio float64 `yaml:"min_vol_ratio"` // e.g. 1.8
	StopPct     float64 `yaml:"stop_pct"`      // wide stop, e.g. 0.04
	TargetPct   float64 `yaml:"target_pct"`    // conservative, e.g. 0.06
	Confidence  float64 `yaml:"confidence"`    // e.g. 85
}

// StopHunt trades only confirmed breakouts with sustained volume, skipping
// the open manipulation zone and the late-day trap zone, with stops wide
// enough to survive shakeouts.
type StopHunt struct {
	id     string
	params StopHuntParams
}

func NewStopHunt(id string, p StopHuntParams) *StopHunt {
	if p.ConfirmPct == 0 {
		p.ConfirmPct = 0.002
	}
	if p.MinVolRatio == 0 {
		p.MinVolRatio = 1.8
	}
	if p.StopPct == 0 {
		p.StopPct = 0.04
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.06
	}
	if p.Confidence == 0 {
		p.Confidence = 85
	}
	return &StopHunt{id: id, params: p}
}

func (s *StopHunt) ID() string   { return s.id }
func (s *StopHunt) Name() string { return "StopHuntProtection" }

func (s *StopHunt) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeTrending, market.RegimeVolatile}
}

func (s *StopHunt) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	h, m := snap.Timestamp.Hour(), snap.Timestamp.Minute()
	if h == 9 && m < 30 {
		return waitVote(s.id, "avoiding open manipulation zone")
	}
	if h > 14 || (h == 14 && m >= 30) {
		return waitVote(s.id, "avoiding late-day trap zone")
	}

	res := snap.RangeHigh
	if res <= 0 {
		return waitVote(s.id, "no breakout level")
	}
	confirmed := snap.LTP > res*(1+s.params.ConfirmPct)
	sustained := snap.VolRatio > s.params.MinVolRatio
	aboveVWAP := snap.LTP > snap.VWAP

	if confirmed && sustained && aboveVWAP {
		return Vote{
			StrategyID: s.id,
			Action:     ActionBuy,
			Confidence: s.params.Confidence,
			Entry:      snap.LTP,
			StopLoss:   snap.LTP * (1 - s.params.StopPct),
			Target:     snap.LTP * (1 + s.params.TargetPct),
			Reason:     "breakout confirmed with stop-hunt protection",
		}
	}
	switch {
	case !confirmed:
		return waitVote(s.id, "waiting for breakout confirmation")
	case !sustained:
		return waitVote(s.id, "volume not sustained")
	default:
		return waitVote(s.id, "price below VWAP")
	}
}
